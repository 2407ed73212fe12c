package attendee

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/test_utils"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attendeeFixture struct {
	service   *ServiceImpl
	repo      *RepositoryImpl
	events    *schedule.EventServiceImpl
	eventRepo *schedule.EventRepositoryImpl
	clock     *utils.MockClock
}

func setupAttendee(t *testing.T) attendeeFixture {
	t.Helper()
	db := test_utils.SetupTestDB(t)
	clock := &utils.MockClock{FixedNow: time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)}
	bus := event_bus.NewEventBus()

	repo := NewRepository(db)
	eventRepo := schedule.NewEventRepository(db)
	events := schedule.NewEventService(eventRepo, NewRegistrar(repo), bus, clock)
	service := NewService(repo, events, bus, clock)

	return attendeeFixture{service: service, repo: repo, events: events, eventRepo: eventRepo, clock: clock}
}

func (f attendeeFixture) newEvent(t *testing.T, requireLogin bool) schedule.Event {
	t.Helper()
	event, err := f.events.Create(context.Background(), schedule.NewEvent{
		Title:        "Team offsite",
		StartDate:    "2026-01-01",
		EndDate:      "2026-01-07",
		VoteDeadline: f.clock.Now().Add(72 * time.Hour),
		Quorum:       2,
		RequireLogin: requireLogin,
	})
	require.NoError(t, err)
	return event
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active session with an event-scoped key", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		session, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		assert.NoError(t, err)
		assert.True(t, session.IsActive)
		assert.Equal(t, "Alice", session.DisplayName)
		assert.Equal(t, "UTC", session.TimeZone)

		prefix := strings.ReplaceAll(event.ID, "-", "")[:8]
		assert.True(t, strings.HasPrefix(session.SessionKey, prefix+"."),
			"session key %q should carry the event prefix", session.SessionKey)
	})

	t.Run("claiming an already claimed name conflicts", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		_, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)

		_, err = f.service.Join(ctx, event.ID, JoinRequest{Label: "alice"})
		assert.ErrorIs(t, err, apperr.ErrConflict, "slugs match case-insensitively")
	})

	t.Run("a rejected join leaves the caller's session active", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		_, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)
		bob, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Bob"})
		require.NoError(t, err)

		// Bob tries to take over Alice's name with his own key. The join is
		// rejected and must not have touched his current session.
		_, err = f.service.Join(ctx, event.ID, JoinRequest{SessionKey: bob.SessionKey, Label: "Alice"})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		current, err := f.repo.FindSessionByID(ctx, bob.ID)
		assert.NoError(t, err)
		assert.True(t, current.IsActive, "rejected join must not retire the caller's session")

		resolved, err := f.service.Resolve(ctx, event.ID, bob.SessionKey, "")
		assert.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, bob.ID, resolved.ID)
	})

	t.Run("re-joining under your own name succeeds", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		first, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)

		// The claim on "Alice" is held by the session being replaced, so it
		// does not count as a conflict.
		second, err := f.service.Join(ctx, event.ID, JoinRequest{SessionKey: first.SessionKey, Label: "Alice"})
		assert.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.NameID, second.NameID)

		old, err := f.repo.FindSessionByID(ctx, first.ID)
		assert.NoError(t, err)
		assert.False(t, old.IsActive)
	})

	t.Run("re-joining with the same key releases the old claim", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		first, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)

		second, err := f.service.Join(ctx, event.ID, JoinRequest{SessionKey: first.SessionKey, Label: "Bob"})
		assert.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		old, err := f.repo.FindSessionByID(ctx, first.ID)
		assert.NoError(t, err)
		assert.False(t, old.IsActive)

		// Alice is claimable again.
		_, err = f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		assert.NoError(t, err)
	})

	t.Run("a logged-in user holds one active session per event", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		first, err := f.service.Join(ctx, event.ID, JoinRequest{UserID: "user-1", Label: "Alice"})
		require.NoError(t, err)

		// Same user joins from another browser, no session key.
		second, err := f.service.Join(ctx, event.ID, JoinRequest{UserID: "user-1", Label: "Bob"})
		assert.NoError(t, err)

		old, err := f.repo.FindSessionByID(ctx, first.ID)
		assert.NoError(t, err)
		assert.False(t, old.IsActive)

		resolved, err := f.service.Resolve(ctx, event.ID, "", "user-1")
		assert.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, second.ID, resolved.ID)
	})

	t.Run("anonymous join is forbidden when the event requires login", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, true)

		_, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = f.service.Join(ctx, event.ID, JoinRequest{UserID: "user-1", Label: "Alice"})
		assert.NoError(t, err)
	})

	t.Run("blank name is a field error", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		_, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "   "})
		var validation *apperr.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("joining a closed event fails", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)
		updated, err := f.eventRepo.UpdatePhase(ctx, event.ID, schedule.PhaseVote, schedule.PhaseFailed)
		require.NoError(t, err)
		require.True(t, updated)

		_, err = f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		assert.ErrorIs(t, err, apperr.ErrPhaseClosed)
	})
}

func TestReplaceActiveSession(t *testing.T) {
	ctx := context.Background()

	// Two callers racing for the same name can both pass the service's read
	// check; the loser hits the unique index on active claims and must get a
	// conflict, not a raw database error.
	t.Run("racing claim on an active name is a conflict", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		alice, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)

		intruder := Session{
			ID:          uuid.New().String(),
			EventID:     event.ID,
			NameID:      alice.NameID,
			SessionKey:  "other-browser-key",
			DisplayName: "Alice",
			TimeZone:    "UTC",
			IsActive:    true,
			CreatedAt:   f.clock.Now(),
		}
		err = f.repo.ReplaceActiveSession(ctx, intruder, nil)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		// The losing transaction rolled back; the winner's session is intact.
		current, err := f.repo.FindSessionByID(ctx, alice.ID)
		assert.NoError(t, err)
		assert.True(t, current.IsActive)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("session key outranks the logged-in user", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		anonymous, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)
		loggedIn, err := f.service.Join(ctx, event.ID, JoinRequest{UserID: "user-1", Label: "Bob"})
		require.NoError(t, err)

		resolved, err := f.service.Resolve(ctx, event.ID, anonymous.SessionKey, "user-1")
		assert.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, anonymous.ID, resolved.ID, "the browser keeps its own identity")

		resolved, err = f.service.Resolve(ctx, event.ID, "", "user-1")
		assert.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, loggedIn.ID, resolved.ID)
	})

	t.Run("unknown key falls back to the user", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		loggedIn, err := f.service.Join(ctx, event.ID, JoinRequest{UserID: "user-1", Label: "Alice"})
		require.NoError(t, err)

		resolved, err := f.service.Resolve(ctx, event.ID, "stale-key", "user-1")
		assert.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, loggedIn.ID, resolved.ID)
	})

	t.Run("unrecognized caller resolves to nil", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		resolved, err := f.service.Resolve(ctx, event.ID, "", "")
		assert.NoError(t, err)
		assert.Nil(t, resolved)
	})
}

func TestSwitchName(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the session id so votes and blocks follow", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		session, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)

		updated, err := f.service.SwitchName(ctx, session, "Alicia", "")
		assert.NoError(t, err)
		assert.Equal(t, session.ID, updated.ID)
		assert.NotEqual(t, session.NameID, updated.NameID)
		assert.Equal(t, "Alicia", updated.DisplayName)
	})

	t.Run("cannot switch to a claimed name", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)

		_, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		require.NoError(t, err)
		session, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Bob"})
		require.NoError(t, err)

		_, err = f.service.SwitchName(ctx, session, "Alice", "")
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestRegistrar(t *testing.T) {
	ctx := context.Background()

	t.Run("registers invitees once per slug", func(t *testing.T) {
		f := setupAttendee(t)
		event := f.newEvent(t, false)
		registrar := NewRegistrar(f.repo)

		err := registrar.RegisterNames(ctx, event.ID, []string{"Alice", "alice", "Bob", "  "})
		assert.NoError(t, err)

		names, err := f.repo.ListNames(ctx, event.ID)
		assert.NoError(t, err)
		assert.Len(t, names, 2)
	})

	t.Run("invitees registered at creation are claimable", func(t *testing.T) {
		f := setupAttendee(t)
		event, err := f.events.Create(ctx, schedule.NewEvent{
			Title:        "Dinner",
			StartDate:    "2026-02-01",
			EndDate:      "2026-02-03",
			VoteDeadline: f.clock.Now().Add(24 * time.Hour),
			Quorum:       1,
			Invitees:     []string{"Alice", "Bob"},
		})
		require.NoError(t, err)

		names, err := f.service.ListNames(ctx, event.ID)
		assert.NoError(t, err)
		assert.Len(t, names, 2)

		session, err := f.service.Join(ctx, event.ID, JoinRequest{Label: "Alice"})
		assert.NoError(t, err)

		// Joining a pre-registered name must not duplicate it.
		names, err = f.service.ListNames(ctx, event.ID)
		assert.NoError(t, err)
		assert.Len(t, names, 2)
		assert.NotEmpty(t, session.NameID)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "alice", Slugify("  Alice  "))
	assert.Equal(t, "mary-jane", Slugify("Mary Jane"))
	assert.Equal(t, "", Slugify("   "))
}
