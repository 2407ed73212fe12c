package dayblock

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/daypick/daypick/pkg/timerange"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// Replace swaps the session's complete block set in one transaction and
	// records the submission marker, so an explicit empty set still counts
	// as "availability provided".
	Replace(ctx context.Context, eventID, sessionID string, dates []time.Time, submittedAt time.Time) error
	ListBySession(ctx context.Context, eventID, sessionID string) ([]time.Time, error)
	// ListByEvent maps active sessions' ids to their blocked dates.
	ListByEvent(ctx context.Context, eventID string) (map[string][]time.Time, error)
	// CountEligibleByDate counts blocks per date from eligible sessions only
	// (active sessions that voted in).
	CountEligibleByDate(ctx context.Context, eventID string) (map[string]int, error)
	// ListSubmittedSessionIDs lists ids of sessions that submitted a block
	// set, including empty ones.
	ListSubmittedSessionIDs(ctx context.Context, eventID string) (map[string]bool, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Replace(ctx context.Context, eventID, sessionID string, dates []time.Time, submittedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM day_block WHERE event_id = ? AND session_id = ?`, eventID, sessionID); err != nil {
		err := fmt.Errorf("could not clear day blocks: %w", err)
		log.Error(err)
		return err
	}
	for _, date := range dates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO day_block (event_id, session_id, date) VALUES (?, ?, ?)`,
			eventID, sessionID, timerange.FormatDay(date)); err != nil {
			err := fmt.Errorf("could not insert day block: %w", err)
			log.Error(err)
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO day_block_submission (event_id, session_id, submitted_at) VALUES (?, ?, ?)
		ON CONFLICT (event_id, session_id) DO UPDATE SET submitted_at = excluded.submitted_at`,
		eventID, sessionID, submittedAt.Unix()); err != nil {
		err := fmt.Errorf("could not record block submission: %w", err)
		log.Error(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("could not commit day blocks: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) ListBySession(ctx context.Context, eventID, sessionID string) ([]time.Time, error) {
	query := `SELECT date FROM day_block WHERE event_id = ? AND session_id = ? ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, eventID, sessionID)
	if err != nil {
		err := fmt.Errorf("could not query day blocks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			err := fmt.Errorf("could not scan day block: %w", err)
			log.Error(err)
			return nil, err
		}
		date, err := timerange.ParseDay(day)
		if err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return dates, nil
}

func (r *RepositoryImpl) ListByEvent(ctx context.Context, eventID string) (map[string][]time.Time, error) {
	query := `SELECT b.session_id, b.date FROM day_block b
			JOIN attendee_session s ON s.id = b.session_id
			WHERE b.event_id = ? AND s.is_active = 1 ORDER BY b.date`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not query day blocks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	blocks := make(map[string][]time.Time)
	for rows.Next() {
		var sessionID, day string
		if err := rows.Scan(&sessionID, &day); err != nil {
			err := fmt.Errorf("could not scan day block: %w", err)
			log.Error(err)
			return nil, err
		}
		date, err := timerange.ParseDay(day)
		if err != nil {
			return nil, err
		}
		blocks[sessionID] = append(blocks[sessionID], date)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return blocks, nil
}

func (r *RepositoryImpl) CountEligibleByDate(ctx context.Context, eventID string) (map[string]int, error) {
	query := `SELECT b.date, COUNT(*) FROM day_block b
			JOIN vote v ON v.event_id = b.event_id AND v.session_id = b.session_id AND v.is_in = 1
			JOIN attendee_session s ON s.id = b.session_id AND s.is_active = 1
			WHERE b.event_id = ?
			GROUP BY b.date`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not count day blocks: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			err := fmt.Errorf("could not scan block count: %w", err)
			log.Error(err)
			return nil, err
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return counts, nil
}

func (r *RepositoryImpl) ListSubmittedSessionIDs(ctx context.Context, eventID string) (map[string]bool, error) {
	query := `SELECT session_id FROM day_block_submission WHERE event_id = ?`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not query block submissions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	submitted := make(map[string]bool)
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			err := fmt.Errorf("could not scan block submission: %w", err)
			log.Error(err)
			return nil, err
		}
		submitted[sessionID] = true
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return submitted, nil
}
