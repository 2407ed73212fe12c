package availability

import (
	"net/http"

	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/daypick/daypick/pkg/timerange"
	"github.com/daypick/daypick/pkg/user"
	"github.com/gorilla/mux"
)

type DateCountDTO struct {
	Date      string `json:"date"`
	Available int    `json:"available"`
	Blocked   int    `json:"blocked"`
}

type AttendeeDTO struct {
	SessionID    string   `json:"sessionId"`
	DisplayName  string   `json:"displayName"`
	Submitted    bool     `json:"submitted"`
	BlockedDates []string `json:"blockedDates"`
}

type SummaryDTO struct {
	EventID               string         `json:"eventId"`
	Eligible              int            `json:"eligible"`
	Dates                 []DateCountDTO `json:"dates"`
	EarliestAll           string         `json:"earliestAll,omitempty"`
	EarliestMost          string         `json:"earliestMost,omitempty"`
	CompletedAvailability int            `json:"completedAvailability"`
	NotSetYet             int            `json:"notSetYet"`
	Attendees             []AttendeeDTO  `json:"attendees"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	auth := schedule.HostAuth{
		Token:  r.Header.Get("X-Host-Token"),
		UserID: user.OptionalId(r.Context()),
	}

	summary, err := h.service.SummarizeFor(r.Context(), mux.Vars(r)["eventId"], auth)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.RespondJSON(w, http.StatusOK, summaryToDTO(summary))
}

func summaryToDTO(s Summary) SummaryDTO {
	dto := SummaryDTO{
		EventID:               s.EventID,
		Eligible:              s.Eligible,
		Dates:                 make([]DateCountDTO, 0, len(s.Dates)),
		CompletedAvailability: s.CompletedAvailability,
		NotSetYet:             s.NotSetYet,
		Attendees:             make([]AttendeeDTO, 0, len(s.Attendees)),
	}
	for _, date := range s.Dates {
		dto.Dates = append(dto.Dates, DateCountDTO{
			Date:      timerange.FormatDay(date.Date),
			Available: date.Available,
			Blocked:   date.Blocked,
		})
	}
	if s.EarliestAll != nil {
		dto.EarliestAll = timerange.FormatDay(*s.EarliestAll)
	}
	if s.EarliestMost != nil {
		dto.EarliestMost = timerange.FormatDay(*s.EarliestMost)
	}
	for _, att := range s.Attendees {
		blocked := make([]string, 0, len(att.BlockedDates))
		for _, date := range att.BlockedDates {
			blocked = append(blocked, timerange.FormatDay(date))
		}
		dto.Attendees = append(dto.Attendees, AttendeeDTO{
			SessionID:    att.SessionID,
			DisplayName:  att.DisplayName,
			Submitted:    att.Submitted,
			BlockedDates: blocked,
		})
	}
	return dto
}
