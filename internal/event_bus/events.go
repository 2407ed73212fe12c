package event_bus

import "time"

const (
	VoteRecorded   ChangeName = "vote.recorded"
	BlocksSaved    ChangeName = "blocks.saved"
	PhaseChanged   ChangeName = "phase.changed"
	FinalDateSet   ChangeName = "final_date.set"
	AttendeeJoined ChangeName = "attendee.joined"
)

type VoteRecordedPayload struct {
	SessionID string
	In        bool
}

type BlocksSavedPayload struct {
	SessionID string
	Dates     []time.Time
}

type PhaseChangedPayload struct {
	From string
	To   string
}

type FinalDateSetPayload struct {
	FinalDate time.Time
}

type AttendeeJoinedPayload struct {
	SessionID   string
	DisplayName string
}
