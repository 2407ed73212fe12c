package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/timerange"
	"github.com/daypick/daypick/pkg/user"
	"github.com/gorilla/mux"
)

type CreateEventDTO struct {
	Title        string   `json:"title"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	VoteDeadline string   `json:"voteDeadline"` // RFC 3339
	Quorum       int      `json:"quorum"`
	Invitees     []string `json:"invitees,omitempty"`
	RequireLogin bool     `json:"requireLogin,omitempty"`
	ShowResults  bool     `json:"showResults,omitempty"`
}

type EventDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	VoteDeadline string `json:"voteDeadline"`
	Quorum       int    `json:"quorum"`
	Phase        string `json:"phase"`
	FinalDate    string `json:"finalDate,omitempty"`
	RequireLogin bool   `json:"requireLogin"`
	ShowResults  bool   `json:"showResults"`
}

type CreatedEventDTO struct {
	EventDTO
	HostToken string `json:"hostToken"`
}

type FinalizeDTO struct {
	FinalDate string `json:"finalDate"`
}

type SweepResultDTO struct {
	Failed   []string `json:"failed"`
	Advanced []string `json:"advanced"`
}

type EventHandler struct {
	service EventService
	sweeper *Sweeper
	clock   utils.Clock
}

func NewEventHandler(service EventService, sweeper *Sweeper, clock utils.Clock) *EventHandler {
	return &EventHandler{service: service, sweeper: sweeper, clock: clock}
}

// hostAuth builds the caller's host claim from the X-Host-Token header and
// the logged-in user, if any.
func hostAuth(r *http.Request) HostAuth {
	return HostAuth{
		Token:  r.Header.Get("X-Host-Token"),
		UserID: user.OptionalId(r.Context()),
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deadline, err := time.Parse(time.RFC3339, dto.VoteDeadline)
	if err != nil {
		http.Error(w, "voteDeadline: expected RFC 3339 timestamp", http.StatusBadRequest)
		return
	}

	event, err := h.service.Create(r.Context(), NewEvent{
		Title:        dto.Title,
		StartDate:    dto.StartDate,
		EndDate:      dto.EndDate,
		VoteDeadline: deadline,
		Quorum:       dto.Quorum,
		Invitees:     dto.Invitees,
		RequireLogin: dto.RequireLogin,
		ShowResults:  dto.ShowResults,
		HostUserID:   user.OptionalId(r.Context()),
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.RespondJSON(w, http.StatusCreated, CreatedEventDTO{
		EventDTO:  eventToDTO(event),
		HostToken: event.HostToken,
	})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Get(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.RespondJSON(w, http.StatusOK, eventToDTO(event))
}

func (h *EventHandler) OpenResults(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.OpenResults(r.Context(), mux.Vars(r)["eventId"], hostAuth(r))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.RespondJSON(w, http.StatusOK, eventToDTO(event))
}

func (h *EventHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var dto FinalizeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	finalDate, err := timerange.ParseDay(dto.FinalDate)
	if err != nil {
		http.Error(w, "finalDate: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	event, err := h.service.Finalize(r.Context(), mux.Vars(r)["eventId"], hostAuth(r), finalDate)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.RespondJSON(w, http.StatusOK, eventToDTO(event))
}

// Sweep triggers the deadline sweep on demand, independent of the ticker.
func (h *EventHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context(), h.clock.Now())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dto := SweepResultDTO{Failed: result.Failed, Advanced: result.Advanced}
	if dto.Failed == nil {
		dto.Failed = []string{}
	}
	if dto.Advanced == nil {
		dto.Advanced = []string{}
	}
	rest.RespondJSON(w, http.StatusOK, dto)
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		ID:           e.ID,
		Title:        e.Title,
		StartDate:    timerange.FormatDay(e.StartDate),
		EndDate:      timerange.FormatDay(e.EndDate),
		VoteDeadline: e.VoteDeadline.UTC().Format(time.RFC3339),
		Quorum:       e.Quorum,
		Phase:        string(e.Phase),
		RequireLogin: e.RequireLogin,
		ShowResults:  e.ShowResults,
	}
	if e.FinalDate != nil {
		dto.FinalDate = timerange.FormatDay(*e.FinalDate)
	}
	return dto
}
