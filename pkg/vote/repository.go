package vote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// Upsert records the vote, last write wins.
	Upsert(ctx context.Context, vote Vote) error
	// CountIn counts "in" votes from active sessions.
	CountIn(ctx context.Context, eventID string) (int, error)
	// CountVoters counts active sessions that voted at all.
	CountVoters(ctx context.Context, eventID string) (int, error)
	// FindByEvent maps active sessions' ids to their current vote.
	FindByEvent(ctx context.Context, eventID string) (map[string]bool, error)
	FindBySession(ctx context.Context, eventID, sessionID string) (*Vote, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Upsert(ctx context.Context, vote Vote) error {
	query := `INSERT INTO vote (event_id, session_id, is_in, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (event_id, session_id) DO UPDATE SET is_in = excluded.is_in, updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, vote.EventID, vote.SessionID, vote.In, vote.UpdatedAt.Unix())
	if err != nil {
		err := fmt.Errorf("could not upsert vote: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) CountIn(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM vote v
			JOIN attendee_session s ON s.id = v.session_id
			WHERE v.event_id = ? AND v.is_in = 1 AND s.is_active = 1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		err := fmt.Errorf("could not count in-votes: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) CountVoters(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM vote v
			JOIN attendee_session s ON s.id = v.session_id
			WHERE v.event_id = ? AND s.is_active = 1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		err := fmt.Errorf("could not count voters: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) FindByEvent(ctx context.Context, eventID string) (map[string]bool, error) {
	query := `SELECT v.session_id, v.is_in FROM vote v
			JOIN attendee_session s ON s.id = v.session_id
			WHERE v.event_id = ? AND s.is_active = 1`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not query votes: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	votes := make(map[string]bool)
	for rows.Next() {
		var sessionID string
		var in bool
		if err := rows.Scan(&sessionID, &in); err != nil {
			err := fmt.Errorf("could not scan vote: %w", err)
			log.Error(err)
			return nil, err
		}
		votes[sessionID] = in
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return votes, nil
}

func (r *RepositoryImpl) FindBySession(ctx context.Context, eventID, sessionID string) (*Vote, error) {
	query := `SELECT event_id, session_id, is_in, updated_at FROM vote WHERE event_id = ? AND session_id = ?`
	var vote Vote
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, eventID, sessionID).
		Scan(&vote.EventID, &vote.SessionID, &vote.In, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not query vote: %w", err)
		log.Error(err)
		return nil, err
	}
	vote.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &vote, nil
}
