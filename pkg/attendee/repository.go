package attendee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	CreateName(ctx context.Context, name Name) error
	FindNameBySlug(ctx context.Context, eventID, slug string) (*Name, error)
	FindNameByID(ctx context.Context, id string) (Name, error)
	ListNames(ctx context.Context, eventID string) ([]Name, error)

	// ReplaceActiveSession retires the caller's prior sessions and creates the
	// new one in a single transaction, so a rejected join never leaves the
	// caller without a session. A concurrent claim on the same name or user
	// hits a partial unique index and surfaces as apperr.ErrConflict.
	ReplaceActiveSession(ctx context.Context, session Session, retireIDs []string) error
	// FindActiveSessionByKey and FindActiveSessionByUser return nil when no
	// active session matches; the resolver treats nil as "caller must join".
	FindActiveSessionByKey(ctx context.Context, eventID, sessionKey string) (*Session, error)
	FindActiveSessionByUser(ctx context.Context, eventID, userID string) (*Session, error)
	FindSessionByID(ctx context.Context, id string) (Session, error)
	// FindActiveClaim returns the active session holding the name claim, nil if unclaimed.
	FindActiveClaim(ctx context.Context, nameID string) (*Session, error)
	UpdateSessionName(ctx context.Context, sessionID, nameID, displayName string) error
	ListActiveSessions(ctx context.Context, eventID string) ([]Session, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateName(ctx context.Context, name Name) error {
	query := `INSERT INTO attendee_name (id, event_id, label, slug) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, name.ID, name.EventID, name.Label, name.Slug)
	if err != nil {
		err := fmt.Errorf("could not create attendee name: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) FindNameBySlug(ctx context.Context, eventID, slug string) (*Name, error) {
	query := `SELECT id, event_id, label, slug FROM attendee_name WHERE event_id = ? AND slug = ?`
	var name Name
	err := r.db.QueryRowContext(ctx, query, eventID, slug).
		Scan(&name.ID, &name.EventID, &name.Label, &name.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not query attendee name: %w", err)
		log.Error(err)
		return nil, err
	}
	return &name, nil
}

func (r *RepositoryImpl) FindNameByID(ctx context.Context, id string) (Name, error) {
	query := `SELECT id, event_id, label, slug FROM attendee_name WHERE id = ?`
	var name Name
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&name.ID, &name.EventID, &name.Label, &name.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return Name{}, fmt.Errorf("attendee name %s: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		err := fmt.Errorf("could not query attendee name: %w", err)
		log.Error(err)
		return Name{}, err
	}
	return name, nil
}

func (r *RepositoryImpl) ListNames(ctx context.Context, eventID string) ([]Name, error) {
	query := `SELECT id, event_id, label, slug FROM attendee_name WHERE event_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not query attendee names: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var names []Name
	for rows.Next() {
		var name Name
		if err := rows.Scan(&name.ID, &name.EventID, &name.Label, &name.Slug); err != nil {
			err := fmt.Errorf("could not scan attendee name: %w", err)
			log.Error(err)
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return names, nil
}

const sessionColumns = `id, event_id, attendee_name_id, user_id, session_key,
	display_name, time_zone, anonymous_blocks, is_active, created_at`

func (r *RepositoryImpl) scanSession(row *sql.Row) (Session, error) {
	var s Session
	var userID sql.NullString
	var createdAt int64
	err := row.Scan(&s.ID, &s.EventID, &s.NameID, &userID, &s.SessionKey,
		&s.DisplayName, &s.TimeZone, &s.AnonymousBlocks, &s.IsActive, &createdAt)
	if err != nil {
		return Session{}, err
	}
	if userID.Valid {
		s.UserID = userID.String
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

func (r *RepositoryImpl) ReplaceActiveSession(ctx context.Context, session Session, retireIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	for _, id := range retireIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE attendee_session SET is_active = 0 WHERE id = ?`, id); err != nil {
			err := fmt.Errorf("could not retire session %s: %w", id, err)
			log.Error(err)
			return err
		}
	}

	var userID any
	if session.UserID != "" {
		userID = session.UserID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attendee_session (id, event_id, attendee_name_id, user_id, session_key,
			display_name, time_zone, anonymous_blocks, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.EventID,
		session.NameID,
		userID,
		session.SessionKey,
		session.DisplayName,
		session.TimeZone,
		session.AnonymousBlocks,
		session.IsActive,
		session.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("session slot already taken: %w", apperr.ErrConflict)
		}
		err := fmt.Errorf("could not create attendee session: %w", err)
		log.Error(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		err := fmt.Errorf("could not commit session replacement: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) FindActiveSessionByKey(ctx context.Context, eventID, sessionKey string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendee_session
			WHERE event_id = ? AND session_key = ? AND is_active = 1`
	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, eventID, sessionKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not query session by key: %w", err)
		log.Error(err)
		return nil, err
	}
	return &session, nil
}

func (r *RepositoryImpl) FindActiveSessionByUser(ctx context.Context, eventID, userID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendee_session
			WHERE event_id = ? AND user_id = ? AND is_active = 1`
	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not query session by user: %w", err)
		log.Error(err)
		return nil, err
	}
	return &session, nil
}

func (r *RepositoryImpl) FindSessionByID(ctx context.Context, id string) (Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendee_session WHERE id = ?`
	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("attendee session %s: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		err := fmt.Errorf("could not query session: %w", err)
		log.Error(err)
		return Session{}, err
	}
	return session, nil
}

func (r *RepositoryImpl) FindActiveClaim(ctx context.Context, nameID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendee_session
			WHERE attendee_name_id = ? AND is_active = 1`
	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, nameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not query name claim: %w", err)
		log.Error(err)
		return nil, err
	}
	return &session, nil
}

func (r *RepositoryImpl) UpdateSessionName(ctx context.Context, sessionID, nameID, displayName string) error {
	query := `UPDATE attendee_session SET attendee_name_id = ?, display_name = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, nameID, displayName, sessionID)
	if err != nil {
		err := fmt.Errorf("could not update session %s: %w", sessionID, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) ListActiveSessions(ctx context.Context, eventID string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendee_session
			WHERE event_id = ? AND is_active = 1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		err := fmt.Errorf("could not query sessions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var userID sql.NullString
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.EventID, &s.NameID, &userID, &s.SessionKey,
			&s.DisplayName, &s.TimeZone, &s.AnonymousBlocks, &s.IsActive, &createdAt); err != nil {
			err := fmt.Errorf("could not scan session: %w", err)
			log.Error(err)
			return nil, err
		}
		if userID.Valid {
			s.UserID = userID.String
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return sessions, nil
}
