package availability

import (
	"context"
	"fmt"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/dayblock"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/daypick/daypick/pkg/vote"
)

type Service interface {
	// Summarize aggregates availability over the event window.
	Summarize(ctx context.Context, eventID string) (Summary, error)
	// SummarizeFor enforces result visibility: the host always sees results,
	// everyone else only when the event shares them.
	SummarizeFor(ctx context.Context, eventID string, auth schedule.HostAuth) (Summary, error)
}

type ServiceImpl struct {
	events    schedule.EventService
	votes     vote.Repository
	blocks    dayblock.Repository
	attendees attendee.Repository
}

func NewService(events schedule.EventService, votes vote.Repository, blocks dayblock.Repository, attendees attendee.Repository) *ServiceImpl {
	return &ServiceImpl{events: events, votes: votes, blocks: blocks, attendees: attendees}
}

func (s *ServiceImpl) Summarize(ctx context.Context, eventID string) (Summary, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	days, err := event.Days()
	if err != nil {
		return Summary{}, err
	}

	votes, err := s.votes.FindByEvent(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	blockedByDay, err := s.blocks.CountEligibleByDate(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	submitted, err := s.blocks.ListSubmittedSessionIDs(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	sessions, err := s.attendees.ListActiveSessions(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	blocksBySession, err := s.blocks.ListByEvent(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{EventID: eventID}
	for _, session := range sessions {
		if !votes[session.ID] {
			continue
		}
		summary.Eligible++

		detail := AttendeeAvailability{
			SessionID:    session.ID,
			DisplayName:  session.DisplayName,
			Submitted:    submitted[session.ID],
			BlockedDates: blocksBySession[session.ID],
		}
		if session.AnonymousBlocks {
			detail.DisplayName = "Anonymous"
		}
		summary.Attendees = append(summary.Attendees, detail)

		if submitted[session.ID] {
			summary.CompletedAvailability++
		} else {
			summary.NotSetYet++
		}
	}

	summary.Dates, summary.EarliestAll, summary.EarliestMost = Aggregate(days, summary.Eligible, blockedByDay)
	return summary, nil
}

func (s *ServiceImpl) SummarizeFor(ctx context.Context, eventID string, auth schedule.HostAuth) (Summary, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	if !event.ShowResults && !event.IsHost(auth) {
		return Summary{}, fmt.Errorf("results are restricted to the host: %w", apperr.ErrForbidden)
	}
	return s.Summarize(ctx, eventID)
}
