package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/timerange"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// InviteRegistrar creates the host's invite list as claimable attendee names.
// Implemented by the attendee service.
type InviteRegistrar interface {
	RegisterNames(ctx context.Context, eventID string, labels []string) error
}

// NewEvent is the host's draft of an event. StartDate and EndDate are
// YYYY-MM-DD strings so parse failures surface as field level errors.
type NewEvent struct {
	Title        string
	StartDate    string
	EndDate      string
	VoteDeadline time.Time
	Quorum       int
	Invitees     []string
	RequireLogin bool
	ShowResults  bool
	HostUserID   string
}

type EventService interface {
	Create(ctx context.Context, draft NewEvent) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	// RequireOpen returns the event, or ErrPhaseClosed once it reached a
	// terminal phase. Every mutation goes through this check first.
	RequireOpen(ctx context.Context, id string) (Event, error)
	// Evaluate applies the automatic quorum/deadline rule for an event in the
	// vote phase. Returns the applied transition, or nil when nothing fired.
	Evaluate(ctx context.Context, eventID string) (*PhaseChange, error)
	OpenResults(ctx context.Context, id string, auth HostAuth) (Event, error)
	Finalize(ctx context.Context, id string, auth HostAuth, finalDate time.Time) (Event, error)
}

type EventServiceImpl struct {
	repo    EventRepository
	invites InviteRegistrar
	bus     *event_bus.EventBus
	clock   utils.Clock
}

func NewEventService(repo EventRepository, invites InviteRegistrar, bus *event_bus.EventBus, clock utils.Clock) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, invites: invites, bus: bus, clock: clock}
}

func (s *EventServiceImpl) Create(ctx context.Context, draft NewEvent) (Event, error) {
	validation := &apperr.ValidationError{}
	if draft.Title == "" {
		validation.Add("title", "title is required")
	}

	var startDate, endDate time.Time
	var err error
	if startDate, err = timerange.ParseDay(draft.StartDate); err != nil {
		validation.Add("startDate", "expected YYYY-MM-DD")
	}
	if endDate, err = timerange.ParseDay(draft.EndDate); err != nil {
		validation.Add("endDate", "expected YYYY-MM-DD")
	}
	if !startDate.IsZero() && !endDate.IsZero() {
		if _, err := timerange.Days(startDate, endDate); err != nil {
			validation.Add("endDate", "end date is before start date")
		}
	}
	if draft.Quorum < 1 {
		validation.Add("quorum", "quorum must be a positive integer")
	}
	if !draft.VoteDeadline.After(s.clock.Now()) {
		validation.Add("voteDeadline", "vote deadline must be in the future")
	}
	if validation.HasErrors() {
		return Event{}, validation
	}

	hostToken, err := utils.RandomToken(24)
	if err != nil {
		return Event{}, err
	}

	event := Event{
		ID:           uuid.New().String(),
		Title:        draft.Title,
		StartDate:    timerange.Normalize(startDate),
		EndDate:      timerange.Normalize(endDate),
		VoteDeadline: draft.VoteDeadline,
		Quorum:       draft.Quorum,
		Phase:        PhaseVote,
		RequireLogin: draft.RequireLogin,
		ShowResults:  draft.ShowResults,
		HostUserID:   draft.HostUserID,
		HostToken:    hostToken,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.Store(ctx, event); err != nil {
		return Event{}, err
	}
	if len(draft.Invitees) > 0 {
		if err := s.invites.RegisterNames(ctx, event.ID, draft.Invitees); err != nil {
			return Event{}, err
		}
	}

	log.Infof("created event %s (%s to %s, quorum %d)", event.ID, draft.StartDate, draft.EndDate, event.Quorum)
	return event, nil
}

func (s *EventServiceImpl) Get(ctx context.Context, id string) (Event, error) {
	return s.repo.FindById(ctx, id)
}

func (s *EventServiceImpl) RequireOpen(ctx context.Context, id string) (Event, error) {
	event, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if event.Phase.Terminal() {
		return Event{}, fmt.Errorf("event %s is %s: %w", id, event.Phase, apperr.ErrPhaseClosed)
	}
	return event, nil
}

func (s *EventServiceImpl) Evaluate(ctx context.Context, eventID string) (*PhaseChange, error) {
	event, err := s.repo.FindById(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Phase != PhaseVote {
		return nil, nil
	}

	// Quorum outranks deadline expiry: the advance is attempted first, so an
	// event that reached quorum is never failed even when the deadline has
	// already passed. Both writes are conditional on phase = vote.
	advanced, err := s.repo.AdvanceIfQuorum(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if advanced {
		change := &PhaseChange{EventID: eventID, From: PhaseVote, To: PhasePickDays}
		s.notifyPhase(ctx, change)
		return change, nil
	}

	if s.clock.Now().After(event.VoteDeadline) {
		failed, err := s.repo.FailIfBelowQuorum(ctx, eventID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		if failed {
			change := &PhaseChange{EventID: eventID, From: PhaseVote, To: PhaseFailed}
			s.notifyPhase(ctx, change)
			return change, nil
		}
	}
	return nil, nil
}

func (s *EventServiceImpl) OpenResults(ctx context.Context, id string, auth HostAuth) (Event, error) {
	event, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !event.IsHost(auth) {
		return Event{}, fmt.Errorf("only the host may open results: %w", apperr.ErrForbidden)
	}
	if !event.Phase.CanTransitionTo(PhaseResults) {
		return Event{}, fmt.Errorf("cannot open results from phase %s: %w", event.Phase, apperr.ErrIllegalTransition)
	}

	updated, err := s.repo.UpdatePhase(ctx, id, PhasePickDays, PhaseResults)
	if err != nil {
		return Event{}, err
	}
	if !updated {
		return Event{}, fmt.Errorf("event %s changed phase concurrently: %w", id, apperr.ErrConflict)
	}

	s.notifyPhase(ctx, &PhaseChange{EventID: id, From: PhasePickDays, To: PhaseResults})
	event.Phase = PhaseResults
	return event, nil
}

func (s *EventServiceImpl) Finalize(ctx context.Context, id string, auth HostAuth, finalDate time.Time) (Event, error) {
	event, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !event.IsHost(auth) {
		return Event{}, fmt.Errorf("only the host may finalize: %w", apperr.ErrForbidden)
	}
	if !event.Phase.CanTransitionTo(PhaseFinalized) {
		return Event{}, fmt.Errorf("cannot finalize from phase %s: %w", event.Phase, apperr.ErrIllegalTransition)
	}
	if !timerange.Contains(event.StartDate, event.EndDate, finalDate) {
		return Event{}, apperr.Validation("finalDate", "final date must lie within the event window")
	}

	day := timerange.Normalize(finalDate)
	updated, err := s.repo.SetFinalDate(ctx, id, day)
	if err != nil {
		return Event{}, err
	}
	if !updated {
		return Event{}, fmt.Errorf("event %s changed phase concurrently: %w", id, apperr.ErrConflict)
	}

	s.notifyPhase(ctx, &PhaseChange{EventID: id, From: PhaseResults, To: PhaseFinalized})
	s.bus.Notify(ctx, event_bus.FinalDateSet, id, event_bus.FinalDateSetPayload{FinalDate: day})
	event.Phase = PhaseFinalized
	event.FinalDate = &day
	return event, nil
}

func (s *EventServiceImpl) notifyPhase(ctx context.Context, change *PhaseChange) {
	log.Infof("event %s: phase %s -> %s", change.EventID, change.From, change.To)
	s.bus.Notify(ctx, event_bus.PhaseChanged, change.EventID, event_bus.PhaseChangedPayload{
		From: string(change.From),
		To:   string(change.To),
	})
}
