package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	GetUser(ctx context.Context, id string) (User, error)
	// FindOrCreateGoogleUser resolves a Google profile to a local user row,
	// creating it on first login.
	FindOrCreateGoogleUser(ctx context.Context, sub, displayName, photoUrl string) (User, error)
}

type ServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *ServiceImpl) FindOrCreateGoogleUser(ctx context.Context, sub, displayName, photoUrl string) (User, error) {
	existing, err := s.repo.GetUserByGoogleSub(ctx, sub)
	if err != nil {
		return User{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	user := User{
		Id:          uuid.New().String(),
		GoogleSub:   sub,
		DisplayName: displayName,
		PhotoUrl:    photoUrl,
		Timezone:    "UTC",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}
