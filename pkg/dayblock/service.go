package dayblock

import (
	"context"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/daypick/daypick/pkg/timerange"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// Submit replaces the session's blocked days with exactly the given set.
	// An empty set is a valid submission meaning "no conflicts".
	Submit(ctx context.Context, session attendee.Session, dates []time.Time) error
	ListForSession(ctx context.Context, session attendee.Session) ([]time.Time, error)
}

type ServiceImpl struct {
	repo   Repository
	events schedule.EventService
	bus    *event_bus.EventBus
	clock  utils.Clock
}

func NewService(repo Repository, events schedule.EventService, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, events: events, bus: bus, clock: clock}
}

func (s *ServiceImpl) Submit(ctx context.Context, session attendee.Session, dates []time.Time) error {
	event, err := s.events.RequireOpen(ctx, session.EventID)
	if err != nil {
		return err
	}

	normalized := make([]time.Time, 0, len(dates))
	seen := make(map[string]bool)
	for _, date := range dates {
		day := timerange.Normalize(date)
		if !timerange.Contains(event.StartDate, event.EndDate, day) {
			return apperr.Validation("dates", "blocked date "+timerange.FormatDay(day)+" is outside the event window")
		}
		key := timerange.FormatDay(day)
		if seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, day)
	}

	if err := s.repo.Replace(ctx, session.EventID, session.ID, normalized, s.clock.Now()); err != nil {
		return err
	}

	log.Debugf("event %s: session %s blocked %d day(s)", session.EventID, session.ID, len(normalized))
	s.bus.Notify(ctx, event_bus.BlocksSaved, session.EventID, event_bus.BlocksSavedPayload{
		SessionID: session.ID,
		Dates:     normalized,
	})
	return nil
}

func (s *ServiceImpl) ListForSession(ctx context.Context, session attendee.Session) ([]time.Time, error) {
	return s.repo.ListBySession(ctx, session.EventID, session.ID)
}
