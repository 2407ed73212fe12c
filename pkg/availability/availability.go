package availability

import (
	"time"

	"github.com/daypick/daypick/pkg/timerange"
)

// DateCount is the availability of one candidate date: how many eligible
// attendees are free on it and how many vetoed it.
type DateCount struct {
	Date      time.Time
	Available int
	Blocked   int
}

// AttendeeAvailability is the per-attendee view of the results. DisplayName
// is replaced with "Anonymous" for sessions that asked for anonymized blocks.
type AttendeeAvailability struct {
	SessionID    string
	DisplayName  string
	Submitted    bool
	BlockedDates []time.Time
}

// Summary ranks the candidate dates of an event. Eligible attendees are
// active sessions that voted in; everyone else contributes nothing, even if
// they submitted blocks.
type Summary struct {
	EventID  string
	Eligible int
	Dates    []DateCount
	// EarliestAll is the earliest date every eligible attendee is free on,
	// nil when no such date exists.
	EarliestAll *time.Time
	// EarliestMost is the earliest date achieving the maximum availability,
	// the host's fallback when no date works for everyone.
	EarliestMost *time.Time
	// CompletedAvailability counts eligible attendees who submitted a block
	// set (an explicit empty set counts); NotSetYet counts the rest. The
	// host reads these to see whether results are still provisional.
	CompletedAvailability int
	NotSetYet             int
	Attendees             []AttendeeAvailability
}

// Aggregate computes per-date counts and the two ranked picks from an ordered
// day sequence, the eligible attendee count, and blocked counts keyed by
// YYYY-MM-DD. Pure: identical input always yields identical output.
func Aggregate(days []time.Time, eligible int, blockedByDay map[string]int) ([]DateCount, *time.Time, *time.Time) {
	dates := make([]DateCount, 0, len(days))
	var earliestAll, earliestMost *time.Time
	bestAvailable := -1

	for _, day := range days {
		blocked := blockedByDay[timerange.FormatDay(day)]
		available := eligible - blocked
		dates = append(dates, DateCount{Date: day, Available: available, Blocked: blocked})

		if eligible == 0 {
			continue
		}
		if available == eligible && earliestAll == nil {
			d := day
			earliestAll = &d
		}
		// Strictly greater keeps the earliest date on ties.
		if available > bestAvailable {
			bestAvailable = available
			d := day
			earliestMost = &d
		}
	}
	return dates, earliestAll, earliestMost
}
