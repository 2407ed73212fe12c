package user

import "time"

// User is a logged-in identity shared across events. Anonymous attendees
// never get a row here; they exist only as attendee sessions.
type User struct {
	Id          string
	GoogleSub   string
	DisplayName string
	PhotoUrl    string
	Timezone    string
	CreatedAt   time.Time
}
