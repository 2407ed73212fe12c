package dayblock

import "time"

// Block is an attendee's veto of one calendar day: the attendee cannot make
// that date. Absence of a block means available. An attendee's blocks are
// replaced wholesale on every submission.
type Block struct {
	EventID   string
	SessionID string
	Date      time.Time
}
