package dayblock

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/timerange"
	"github.com/daypick/daypick/pkg/user"
	"github.com/gorilla/mux"
)

type SubmitDTO struct {
	Dates []string `json:"dates"`
}

type BlocksDTO struct {
	Dates []string `json:"dates"`
}

type Handler struct {
	service   Service
	attendees attendee.Service
}

func NewHandler(service Service, attendees attendee.Service) *Handler {
	return &Handler{service: service, attendees: attendees}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
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

	var dto SubmitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dates := make([]time.Time, 0, len(dto.Dates))
	for _, raw := range dto.Dates {
		day, err := timerange.ParseDay(raw)
		if err != nil {
			http.Error(w, "dates: expected YYYY-MM-DD, got "+raw, http.StatusBadRequest)
			return
		}
		dates = append(dates, day)
	}

	if err := h.service.Submit(r.Context(), *session, dates); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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

	dates, err := h.service.ListForSession(r.Context(), *session)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	dto := BlocksDTO{Dates: make([]string, 0, len(dates))}
	for _, date := range dates {
		dto.Dates = append(dto.Dates, timerange.FormatDay(date))
	}
	rest.RespondJSON(w, http.StatusOK, dto)
}
