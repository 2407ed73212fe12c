package vote

import (
	"encoding/json"
	"net/http"

	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/user"
	"github.com/gorilla/mux"
)

type CastDTO struct {
	In bool `json:"in"`
}

type VoteStatusDTO struct {
	Voted bool   `json:"voted"`
	In    bool   `json:"in,omitempty"`
	Phase string `json:"phase,omitempty"`
}

type TallyDTO struct {
	In     int `json:"in"`
	Voters int `json:"voters"`
}

type Handler struct {
	service   Service
	attendees attendee.Service
}

func NewHandler(service Service, attendees attendee.Service) *Handler {
	return &Handler{service: service, attendees: attendees}
}

func (h *Handler) Cast(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	session, err := h.attendees.Resolve(r.Context(), eventID,
		attendee.SessionKeyFromRequest(r, eventID), user.OptionalId(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if session == nil {
		http.Error(w, "no attendee session, join first", http.StatusUnauthorized)
		return
	}

	var dto CastDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	change, err := h.service.Cast(r.Context(), *session, dto.In)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	status := VoteStatusDTO{Voted: true, In: dto.In}
	if change != nil {
		status.Phase = string(change.To)
	}
	rest.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	session, err := h.attendees.Resolve(r.Context(), eventID,
		attendee.SessionKeyFromRequest(r, eventID), user.OptionalId(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if session == nil {
		http.Error(w, "no attendee session, join first", http.StatusUnauthorized)
		return
	}

	vote, err := h.service.Current(r.Context(), *session)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if vote == nil {
		rest.RespondJSON(w, http.StatusOK, VoteStatusDTO{Voted: false})
		return
	}
	rest.RespondJSON(w, http.StatusOK, VoteStatusDTO{Voted: true, In: vote.In})
}

func (h *Handler) Tally(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	in, err := h.service.CountIn(r.Context(), eventID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	voters, err := h.service.CountVoters(r.Context(), eventID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.RespondJSON(w, http.StatusOK, TallyDTO{In: in, Voters: voters})
}
