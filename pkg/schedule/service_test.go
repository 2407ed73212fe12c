package schedule

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/test_utils"
	"github.com/daypick/daypick/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistrar struct {
	registered map[string][]string
}

func (s *stubRegistrar) RegisterNames(ctx context.Context, eventID string, labels []string) error {
	if s.registered == nil {
		s.registered = make(map[string][]string)
	}
	s.registered[eventID] = append(s.registered[eventID], labels...)
	return nil
}

func newTestService(t *testing.T, clock utils.Clock) (*EventServiceImpl, *EventRepositoryImpl, *stubRegistrar, *sql.DB) {
	t.Helper()
	db := test_utils.SetupTestDB(t)
	repo := NewEventRepository(db)
	registrar := &stubRegistrar{}
	service := NewEventService(repo, registrar, event_bus.NewEventBus(), clock)
	return service, repo, registrar, db
}

// addInVoter inserts an attendee name, an active session, and an "in" vote
// directly, so quorum scenarios don't need the attendee and vote packages.
func addInVoter(t *testing.T, db *sql.DB, eventID string, in, active bool) string {
	t.Helper()
	nameID := uuid.NewString()
	sessionID := uuid.NewString()

	_, err := db.Exec(`INSERT INTO attendee_name (id, event_id, label, slug) VALUES (?, ?, ?, ?)`,
		nameID, eventID, "Voter "+nameID[:4], "voter-"+nameID[:4])
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO attendee_session
			(id, event_id, attendee_name_id, session_key, display_name, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, eventID, nameID, "key-"+sessionID, "Voter", active, time.Now().Unix())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vote (event_id, session_id, is_in, updated_at) VALUES (?, ?, ?, ?)`,
		eventID, sessionID, in, time.Now().Unix())
	require.NoError(t, err)
	return sessionID
}

func januaryDraft(deadline time.Time) NewEvent {
	return NewEvent{
		Title:        "Board game night",
		StartDate:    "2026-01-01",
		EndDate:      "2026-01-07",
		VoteDeadline: deadline,
		Quorum:       2,
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, time.December, 28, 18, 0, 0, 0, time.UTC)

	t.Run("creates an event in the vote phase with a host token", func(t *testing.T) {
		service, repo, _, _ := newTestService(t, &utils.MockClock{FixedNow: now})

		event, err := service.Create(ctx, januaryDraft(deadline))
		assert.NoError(t, err)
		assert.Equal(t, PhaseVote, event.Phase)
		assert.NotEmpty(t, event.HostToken)

		stored, err := repo.FindById(ctx, event.ID)
		assert.NoError(t, err)
		assert.Equal(t, event.ID, stored.ID)
		assert.Equal(t, 2, stored.Quorum)
		assert.Equal(t, deadline.Unix(), stored.VoteDeadline.Unix())
	})

	t.Run("registers the invite list", func(t *testing.T) {
		service, _, registrar, _ := newTestService(t, &utils.MockClock{FixedNow: now})

		draft := januaryDraft(deadline)
		draft.Invitees = []string{"Alice", "Bob"}
		event, err := service.Create(ctx, draft)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob"}, registrar.registered[event.ID])
	})

	t.Run("collects field errors", func(t *testing.T) {
		service, _, _, _ := newTestService(t, &utils.MockClock{FixedNow: now})

		_, err := service.Create(ctx, NewEvent{
			Title:        "",
			StartDate:    "2026-01-07",
			EndDate:      "2026-01-01",
			VoteDeadline: now.Add(-time.Hour),
			Quorum:       0,
		})
		var validation *apperr.ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.FieldErrors, "title")
		assert.Contains(t, validation.FieldErrors, "endDate")
		assert.Contains(t, validation.FieldErrors, "quorum")
		assert.Contains(t, validation.FieldErrors, "voteDeadline")
	})

	t.Run("rejects a deadline in the past", func(t *testing.T) {
		service, _, _, _ := newTestService(t, &utils.MockClock{FixedNow: now})

		_, err := service.Create(ctx, januaryDraft(now.Add(-time.Minute)))
		var validation *apperr.ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.FieldErrors, "voteDeadline")
	})
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, time.December, 28, 18, 0, 0, 0, time.UTC)

	t.Run("advances to pick_days once quorum is met", func(t *testing.T) {
		clock := &utils.MockClock{FixedNow: now}
		service, repo, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)

		addInVoter(t, db, event.ID, true, true)
		change, err := service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		assert.Nil(t, change, "one in-vote is below quorum 2")

		addInVoter(t, db, event.ID, true, true)
		change, err = service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, PhasePickDays, change.To)

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhasePickDays, stored.Phase)
	})

	t.Run("out-votes and inactive sessions do not count toward quorum", func(t *testing.T) {
		clock := &utils.MockClock{FixedNow: now}
		service, _, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)

		addInVoter(t, db, event.ID, true, true)
		addInVoter(t, db, event.ID, false, true)
		addInVoter(t, db, event.ID, true, false)

		change, err := service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		assert.Nil(t, change)
	})

	t.Run("fails the event once the deadline passed below quorum", func(t *testing.T) {
		clock := &utils.MockClock{FixedNow: now}
		service, repo, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)
		addInVoter(t, db, event.ID, true, true)

		clock.SetNow(deadline.Add(time.Minute))
		change, err := service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, PhaseFailed, change.To)

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhaseFailed, stored.Phase)
	})

	t.Run("quorum outranks an expired deadline", func(t *testing.T) {
		clock := &utils.MockClock{FixedNow: now}
		service, repo, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)
		addInVoter(t, db, event.ID, true, true)
		addInVoter(t, db, event.ID, true, true)

		clock.SetNow(deadline.Add(time.Hour))
		change, err := service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, PhasePickDays, change.To)

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhasePickDays, stored.Phase)
	})

	t.Run("no-op outside the vote phase", func(t *testing.T) {
		clock := &utils.MockClock{FixedNow: now}
		service, repo, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)
		addInVoter(t, db, event.ID, true, true)
		addInVoter(t, db, event.ID, true, true)

		_, err = service.Evaluate(ctx, event.ID)
		require.NoError(t, err)

		change, err := service.Evaluate(ctx, event.ID)
		assert.NoError(t, err)
		assert.Nil(t, change, "a second evaluation finds nothing to do")

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhasePickDays, stored.Phase)
	})
}

func TestHostTransitions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, time.December, 28, 18, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*EventServiceImpl, *EventRepositoryImpl, Event, *sql.DB) {
		clock := &utils.MockClock{FixedNow: now}
		service, repo, _, db := newTestService(t, clock)
		event, err := service.Create(ctx, januaryDraft(deadline))
		require.NoError(t, err)
		addInVoter(t, db, event.ID, true, true)
		addInVoter(t, db, event.ID, true, true)
		_, err = service.Evaluate(ctx, event.ID)
		require.NoError(t, err)
		return service, repo, event, db
	}

	t.Run("host opens results from pick_days", func(t *testing.T) {
		service, repo, event, _ := setup(t)

		updated, err := service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		assert.NoError(t, err)
		assert.Equal(t, PhaseResults, updated.Phase)

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhaseResults, stored.Phase)
	})

	t.Run("non-host cannot open results", func(t *testing.T) {
		service, _, event, _ := setup(t)

		_, err := service.OpenResults(ctx, event.ID, HostAuth{Token: "not-the-token"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("opening results twice is an illegal transition", func(t *testing.T) {
		service, _, event, _ := setup(t)
		_, err := service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		require.NoError(t, err)

		_, err = service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
	})

	t.Run("host finalizes a date inside the window", func(t *testing.T) {
		service, repo, event, _ := setup(t)
		_, err := service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		require.NoError(t, err)

		finalDate := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
		updated, err := service.Finalize(ctx, event.ID, HostAuth{Token: event.HostToken}, finalDate)
		assert.NoError(t, err)
		assert.Equal(t, PhaseFinalized, updated.Phase)
		require.NotNil(t, updated.FinalDate)
		assert.True(t, updated.FinalDate.Equal(finalDate))

		stored, _ := repo.FindById(ctx, event.ID)
		assert.Equal(t, PhaseFinalized, stored.Phase)
		require.NotNil(t, stored.FinalDate)
		assert.True(t, stored.FinalDate.Equal(finalDate))
	})

	t.Run("final date outside the window is a field error", func(t *testing.T) {
		service, _, event, _ := setup(t)
		_, err := service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		require.NoError(t, err)

		outside := time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)
		_, err = service.Finalize(ctx, event.ID, HostAuth{Token: event.HostToken}, outside)
		var validation *apperr.ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.FieldErrors, "finalDate")
	})

	t.Run("cannot finalize before results are open", func(t *testing.T) {
		service, _, event, _ := setup(t)

		finalDate := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
		_, err := service.Finalize(ctx, event.ID, HostAuth{Token: event.HostToken}, finalDate)
		assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
	})

	t.Run("finalized event refuses further mutations", func(t *testing.T) {
		service, _, event, _ := setup(t)
		_, err := service.OpenResults(ctx, event.ID, HostAuth{Token: event.HostToken})
		require.NoError(t, err)
		finalDate := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
		_, err = service.Finalize(ctx, event.ID, HostAuth{Token: event.HostToken}, finalDate)
		require.NoError(t, err)

		_, err = service.RequireOpen(ctx, event.ID)
		assert.ErrorIs(t, err, apperr.ErrPhaseClosed)
	})
}
