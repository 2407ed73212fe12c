package vote

import "time"

// Vote is one attendee session's participation answer for an event. At most
// one row per (event, session); a later cast overwrites the earlier one.
type Vote struct {
	EventID   string
	SessionID string
	In        bool
	UpdatedAt time.Time
}
