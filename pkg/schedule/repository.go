package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/pkg/timerange"
	log "github.com/sirupsen/logrus"
)

// countInVotes counts "in" votes from active sessions only. It is embedded
// as a correlated subquery so the quorum decision and the phase write happen
// in one statement against one consistent read.
const countInVotes = `(
	SELECT COUNT(*) FROM vote v
	JOIN attendee_session s ON s.id = v.session_id
	WHERE v.event_id = event.id AND v.is_in = 1 AND s.is_active = 1
)`

type EventRepository interface {
	Store(ctx context.Context, event Event) error
	FindById(ctx context.Context, id string) (Event, error)
	// AdvanceIfQuorum moves the event vote -> pick_days when quorum is met.
	AdvanceIfQuorum(ctx context.Context, id string) (bool, error)
	// FailIfBelowQuorum moves the event vote -> failed when the deadline has
	// passed and quorum is still not met.
	FailIfBelowQuorum(ctx context.Context, id string, now time.Time) (bool, error)
	// UpdatePhase applies a host transition guarded by the expected current phase.
	UpdatePhase(ctx context.Context, id string, from, to Phase) (bool, error)
	// SetFinalDate applies results -> finalized together with the final date.
	SetFinalDate(ctx context.Context, id string, finalDate time.Time) (bool, error)
	// FindExpiredVoting lists ids of events still in the vote phase whose
	// deadline lies before now.
	FindExpiredVoting(ctx context.Context, now time.Time) ([]string, error)
}

type EventRepositoryImpl struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepositoryImpl {
	return &EventRepositoryImpl{db: db}
}

func (r *EventRepositoryImpl) Store(ctx context.Context, event Event) error {
	query := `INSERT INTO event (
				id, title, start_date, end_date, vote_deadline, quorum, phase,
				require_login, show_results, host_user_id, host_token, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var hostUserId any
	if event.HostUserID != "" {
		hostUserId = event.HostUserID
	}
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		timerange.FormatDay(event.StartDate),
		timerange.FormatDay(event.EndDate),
		event.VoteDeadline.Unix(),
		event.Quorum,
		string(event.Phase),
		event.RequireLogin,
		event.ShowResults,
		hostUserId,
		event.HostToken,
		event.CreatedAt.Unix(),
	)
	if err != nil {
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *EventRepositoryImpl) FindById(ctx context.Context, id string) (Event, error) {
	query := `SELECT id, title, start_date, end_date, vote_deadline, quorum, phase,
				final_date, require_login, show_results, host_user_id, host_token, created_at
			FROM event WHERE id = ?`

	var event Event
	var startDate, endDate string
	var finalDate, hostUserId sql.NullString
	var deadline, createdAt int64
	var phase string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&startDate,
		&endDate,
		&deadline,
		&event.Quorum,
		&phase,
		&finalDate,
		&event.RequireLogin,
		&event.ShowResults,
		&hostUserId,
		&event.HostToken,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		err := fmt.Errorf("could not query event: %w", err)
		log.Error(err)
		return Event{}, err
	}

	if event.StartDate, err = timerange.ParseDay(startDate); err != nil {
		return Event{}, err
	}
	if event.EndDate, err = timerange.ParseDay(endDate); err != nil {
		return Event{}, err
	}
	if finalDate.Valid {
		parsed, err := timerange.ParseDay(finalDate.String)
		if err != nil {
			return Event{}, err
		}
		event.FinalDate = &parsed
	}
	if hostUserId.Valid {
		event.HostUserID = hostUserId.String
	}
	event.VoteDeadline = time.Unix(deadline, 0).UTC()
	event.CreatedAt = time.Unix(createdAt, 0).UTC()
	event.Phase = Phase(phase)
	return event, nil
}

func (r *EventRepositoryImpl) AdvanceIfQuorum(ctx context.Context, id string) (bool, error) {
	query := `UPDATE event SET phase = ? WHERE id = ? AND phase = ? AND quorum <= ` + countInVotes
	result, err := r.db.ExecContext(ctx, query, string(PhasePickDays), id, string(PhaseVote))
	if err != nil {
		err := fmt.Errorf("could not advance event %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *EventRepositoryImpl) FailIfBelowQuorum(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `UPDATE event SET phase = ?
			WHERE id = ? AND phase = ? AND vote_deadline < ? AND quorum > ` + countInVotes
	result, err := r.db.ExecContext(ctx, query, string(PhaseFailed), id, string(PhaseVote), now.Unix())
	if err != nil {
		err := fmt.Errorf("could not fail event %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *EventRepositoryImpl) UpdatePhase(ctx context.Context, id string, from, to Phase) (bool, error) {
	query := `UPDATE event SET phase = ? WHERE id = ? AND phase = ?`
	result, err := r.db.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		err := fmt.Errorf("could not update phase of event %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *EventRepositoryImpl) SetFinalDate(ctx context.Context, id string, finalDate time.Time) (bool, error) {
	query := `UPDATE event SET phase = ?, final_date = ? WHERE id = ? AND phase = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(PhaseFinalized), timerange.FormatDay(finalDate), id, string(PhaseResults))
	if err != nil {
		err := fmt.Errorf("could not finalize event %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *EventRepositoryImpl) FindExpiredVoting(ctx context.Context, now time.Time) ([]string, error) {
	query := `SELECT id FROM event WHERE phase = ? AND vote_deadline < ?`
	rows, err := r.db.QueryContext(ctx, query, string(PhaseVote), now.Unix())
	if err != nil {
		err := fmt.Errorf("could not query expired events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			err := fmt.Errorf("could not scan event id: %w", err)
			log.Error(err)
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return ids, nil
}
