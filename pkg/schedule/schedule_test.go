package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from    Phase
		to      Phase
		allowed bool
	}{
		{PhaseVote, PhasePickDays, true},
		{PhaseVote, PhaseFailed, true},
		{PhaseVote, PhaseResults, false},
		{PhaseVote, PhaseFinalized, false},
		{PhasePickDays, PhaseResults, true},
		{PhasePickDays, PhaseFailed, false},
		{PhasePickDays, PhaseVote, false},
		{PhaseResults, PhaseFinalized, true},
		{PhaseResults, PhasePickDays, false},
		{PhaseFinalized, PhaseVote, false},
		{PhaseFinalized, PhaseFailed, false},
		{PhaseFailed, PhaseVote, false},
		{PhaseFailed, PhasePickDays, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to),
			"%s -> %s should be allowed=%t", c.from, c.to, c.allowed)
	}
}

func TestPhaseTerminal(t *testing.T) {
	assert.False(t, PhaseVote.Terminal())
	assert.False(t, PhasePickDays.Terminal())
	assert.False(t, PhaseResults.Terminal())
	assert.True(t, PhaseFinalized.Terminal())
	assert.True(t, PhaseFailed.Terminal())
}

func TestIsHost(t *testing.T) {
	event := Event{HostToken: "secret-token", HostUserID: "user-1"}

	t.Run("matching host token", func(t *testing.T) {
		assert.True(t, event.IsHost(HostAuth{Token: "secret-token"}))
	})

	t.Run("matching host user", func(t *testing.T) {
		assert.True(t, event.IsHost(HostAuth{UserID: "user-1"}))
	})

	t.Run("wrong token and wrong user", func(t *testing.T) {
		assert.False(t, event.IsHost(HostAuth{Token: "other", UserID: "user-2"}))
	})

	t.Run("empty claim is never the host", func(t *testing.T) {
		assert.False(t, event.IsHost(HostAuth{}))
	})

	t.Run("empty host user id does not match anonymous callers", func(t *testing.T) {
		anonymous := Event{HostToken: "secret-token"}
		assert.False(t, anonymous.IsHost(HostAuth{UserID: ""}))
	})
}
