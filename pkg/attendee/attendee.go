package attendee

import (
	"strings"
	"time"
)

// Name is a claimable invitee identity within one event. Created from the
// host's invite list (or lazily at join) and immutable afterwards; what
// changes over time is which session holds the claim.
type Name struct {
	ID      string
	EventID string
	Label   string
	Slug    string
}

// Session pins one browser (or one logged-in user) to one attendee identity
// within one event. Sessions are deactivated, never deleted, when the caller
// switches identity or re-joins; only active sessions count toward quorum
// and aggregation.
type Session struct {
	ID              string
	EventID         string
	NameID          string
	UserID          string
	SessionKey      string
	DisplayName     string
	TimeZone        string
	AnonymousBlocks bool
	IsActive        bool
	CreatedAt       time.Time
}

// Slugify derives the per-event unique claiming key from a display label.
func Slugify(label string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
