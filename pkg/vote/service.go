package vote

import (
	"context"

	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// Cast records the session's vote (last write wins) and re-evaluates the
	// automatic phase rule. Returns the transition the vote triggered, if any.
	Cast(ctx context.Context, session attendee.Session, in bool) (*schedule.PhaseChange, error)
	CountIn(ctx context.Context, eventID string) (int, error)
	CountVoters(ctx context.Context, eventID string) (int, error)
	Current(ctx context.Context, session attendee.Session) (*Vote, error)
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

func (s *ServiceImpl) Cast(ctx context.Context, session attendee.Session, in bool) (*schedule.PhaseChange, error) {
	if _, err := s.events.RequireOpen(ctx, session.EventID); err != nil {
		return nil, err
	}

	err := s.repo.Upsert(ctx, Vote{
		EventID:   session.EventID,
		SessionID: session.ID,
		In:        in,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("event %s: session %s voted in=%t", session.EventID, session.ID, in)
	s.bus.Notify(ctx, event_bus.VoteRecorded, session.EventID, event_bus.VoteRecordedPayload{
		SessionID: session.ID,
		In:        in,
	})

	return s.events.Evaluate(ctx, session.EventID)
}

func (s *ServiceImpl) CountIn(ctx context.Context, eventID string) (int, error) {
	return s.repo.CountIn(ctx, eventID)
}

func (s *ServiceImpl) CountVoters(ctx context.Context, eventID string) (int, error) {
	return s.repo.CountVoters(ctx, eventID)
}

func (s *ServiceImpl) Current(ctx context.Context, session attendee.Session) (*Vote, error) {
	return s.repo.FindBySession(ctx, session.EventID, session.ID)
}
