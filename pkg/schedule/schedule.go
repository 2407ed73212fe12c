package schedule

import (
	"time"

	"github.com/daypick/daypick/pkg/timerange"
)

// Phase is the lifecycle state of an event. Phases only ever move forward:
//
//	vote -> pick_days -> results -> finalized
//	vote -> failed
type Phase string

const (
	PhaseVote      Phase = "vote"
	PhasePickDays  Phase = "pick_days"
	PhaseResults   Phase = "results"
	PhaseFinalized Phase = "finalized"
	PhaseFailed    Phase = "failed"
)

var transitions = map[Phase][]Phase{
	PhaseVote:     {PhasePickDays, PhaseFailed},
	PhasePickDays: {PhaseResults},
	PhaseResults:  {PhaseFinalized},
}

// CanTransitionTo reports whether next is a legal successor of p.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the phase accepts no further mutations.
func (p Phase) Terminal() bool {
	return p == PhaseFinalized || p == PhaseFailed
}

// Valid reports whether p is one of the five known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseVote, PhasePickDays, PhaseResults, PhaseFinalized, PhaseFailed:
		return true
	}
	return false
}

// Event is a proposed gathering: a date window the host offers, a vote
// deadline, and a quorum gate. StartDate, EndDate, and FinalDate are UTC
// midnight instants; VoteDeadline is a real instant.
type Event struct {
	ID           string
	Title        string
	StartDate    time.Time
	EndDate      time.Time
	VoteDeadline time.Time
	Quorum       int
	Phase        Phase
	FinalDate    *time.Time
	RequireLogin bool
	ShowResults  bool
	HostUserID   string
	HostToken    string
	CreatedAt    time.Time
}

// Days returns the inclusive UTC day sequence of the event window.
func (e Event) Days() ([]time.Time, error) {
	return timerange.Days(e.StartDate, e.EndDate)
}

// HostAuth carries the caller's claim to be the event host: the host token
// handed out at creation, a logged-in user id matching the creator, or both.
type HostAuth struct {
	Token  string
	UserID string
}

// IsHost reports whether auth identifies the event's host.
func (e Event) IsHost(auth HostAuth) bool {
	if auth.Token != "" && auth.Token == e.HostToken {
		return true
	}
	if auth.UserID != "" && auth.UserID == e.HostUserID {
		return true
	}
	return false
}

// PhaseChange describes a transition that was applied.
type PhaseChange struct {
	EventID string
	From    Phase
	To      Phase
}
