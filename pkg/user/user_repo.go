package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daypick/daypick/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByGoogleSub(ctx context.Context, sub string) (*User, error)
}

type UserRepoImpl struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) error {
	query := `INSERT INTO users (id, google_sub, display_name, photo_url, timezone, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`
	_, err := u.db.ExecContext(ctx, query,
		user.Id,
		user.GoogleSub,
		user.DisplayName,
		user.PhotoUrl,
		user.Timezone,
		user.CreatedAt.Unix(),
	)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return err
	}
	return nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id string) (User, error) {
	query := `SELECT id, google_sub, display_name, photo_url, timezone, created_at FROM users WHERE id = ?`
	user, err := u.scanUser(u.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByGoogleSub(ctx context.Context, sub string) (*User, error) {
	query := `SELECT id, google_sub, display_name, photo_url, timezone, created_at FROM users WHERE google_sub = ?`
	user, err := u.scanUser(u.db.QueryRowContext(ctx, query, sub))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		log.Errorf("failed to get user by google sub: %v", err)
		return nil, err
	}
	return &user, nil
}

func (u *UserRepoImpl) scanUser(row *sql.Row) (User, error) {
	var user User
	var createdAt int64
	err := row.Scan(&user.Id, &user.GoogleSub, &user.DisplayName, &user.PhotoUrl, &user.Timezone, &createdAt)
	if err != nil {
		return User{}, err
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return user, nil
}
