package attendee

import (
	"context"
	"fmt"
	"strings"

	"github.com/daypick/daypick/internal/apperr"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// JoinRequest is everything a caller supplies to become an attendee.
// SessionKey and UserID are the caller's current identity inputs, passed in
// as plain arguments by the transport layer.
type JoinRequest struct {
	SessionKey      string
	UserID          string
	Label           string
	DisplayName     string
	TimeZone        string
	AnonymousBlocks bool
}

type Service interface {
	// Resolve maps (eventID, sessionKey?, userID?) to the caller's active
	// session, or nil when the caller is unrecognized and must join.
	// Session-key identity always wins: it pins one browser to one identity
	// even when several browsers share the same logged-in user.
	Resolve(ctx context.Context, eventID, sessionKey, userID string) (*Session, error)
	Join(ctx context.Context, eventID string, req JoinRequest) (Session, error)
	SwitchName(ctx context.Context, session Session, label, displayName string) (Session, error)
	ListNames(ctx context.Context, eventID string) ([]Name, error)
}

// Registrar seeds an event's invite list as claimable names. It only needs
// the repository, so it can be built before the event service that calls it.
type Registrar struct {
	repo Repository
}

func NewRegistrar(repo Repository) *Registrar {
	return &Registrar{repo: repo}
}

func (r *Registrar) RegisterNames(ctx context.Context, eventID string, labels []string) error {
	seen := make(map[string]bool)
	for _, label := range labels {
		slug := Slugify(label)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		name := Name{
			ID:      uuid.New().String(),
			EventID: eventID,
			Label:   strings.TrimSpace(label),
			Slug:    slug,
		}
		if err := r.repo.CreateName(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

type ServiceImpl struct {
	repo   Repository
	events schedule.EventService
	bus    *event_bus.EventBus
	clock  utils.Clock
}

func NewService(repo Repository, events schedule.EventService, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, events: events, bus: bus, clock: clock}
}

func (s *ServiceImpl) Resolve(ctx context.Context, eventID, sessionKey, userID string) (*Session, error) {
	if sessionKey != "" {
		session, err := s.repo.FindActiveSessionByKey(ctx, eventID, sessionKey)
		if err != nil {
			return nil, err
		}
		if session != nil {
			log.Debugf("resolved event %s caller by session key to session %s", eventID, session.ID)
			return session, nil
		}
	}
	if userID != "" {
		session, err := s.repo.FindActiveSessionByUser(ctx, eventID, userID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			log.Debugf("resolved event %s caller by user %s to session %s", eventID, userID, session.ID)
			return session, nil
		}
	}
	log.Debugf("no active session for event %s caller", eventID)
	return nil, nil
}

func (s *ServiceImpl) Join(ctx context.Context, eventID string, req JoinRequest) (Session, error) {
	event, err := s.events.RequireOpen(ctx, eventID)
	if err != nil {
		return Session{}, err
	}
	if event.RequireLogin && req.UserID == "" {
		return Session{}, fmt.Errorf("event requires a logged-in attendee: %w", apperr.ErrForbidden)
	}
	if strings.TrimSpace(req.Label) == "" {
		return Session{}, apperr.Validation("name", "attendee name is required")
	}

	name, err := s.findOrCreateName(ctx, eventID, req.Label)
	if err != nil {
		return Session{}, err
	}

	// A successful join retires the caller's previous sessions: one active
	// session per user per event, and a browser switching identity abandons
	// its old session. History stays in place for audit.
	var retire []string
	if req.SessionKey != "" {
		prior, err := s.repo.FindActiveSessionByKey(ctx, eventID, req.SessionKey)
		if err != nil {
			return Session{}, err
		}
		if prior != nil {
			retire = append(retire, prior.ID)
		}
	}
	if req.UserID != "" {
		prior, err := s.repo.FindActiveSessionByUser(ctx, eventID, req.UserID)
		if err != nil {
			return Session{}, err
		}
		if prior != nil && !containsID(retire, prior.ID) {
			retire = append(retire, prior.ID)
		}
	}

	// Conflicts are decided before anything changes: a rejected join must
	// leave the caller's current session active. A claim held by one of the
	// caller's own sessions is not a conflict, it is about to be retired.
	claim, err := s.repo.FindActiveClaim(ctx, name.ID)
	if err != nil {
		return Session{}, err
	}
	if claim != nil && !containsID(retire, claim.ID) {
		return Session{}, fmt.Errorf("name %q is already claimed: %w", name.Label, apperr.ErrConflict)
	}

	sessionKey, err := newSessionKey(eventID)
	if err != nil {
		return Session{}, err
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = name.Label
	}
	timeZone := req.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}

	session := Session{
		ID:              uuid.New().String(),
		EventID:         eventID,
		NameID:          name.ID,
		UserID:          req.UserID,
		SessionKey:      sessionKey,
		DisplayName:     displayName,
		TimeZone:        timeZone,
		AnonymousBlocks: req.AnonymousBlocks,
		IsActive:        true,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.ReplaceActiveSession(ctx, session, retire); err != nil {
		return Session{}, err
	}

	log.Infof("event %s: attendee %q joined with session %s", eventID, displayName, session.ID)
	s.bus.Notify(ctx, event_bus.AttendeeJoined, eventID, event_bus.AttendeeJoinedPayload{
		SessionID:   session.ID,
		DisplayName: displayName,
	})
	return session, nil
}

func (s *ServiceImpl) SwitchName(ctx context.Context, session Session, label, displayName string) (Session, error) {
	if _, err := s.events.RequireOpen(ctx, session.EventID); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(label) == "" {
		return Session{}, apperr.Validation("name", "attendee name is required")
	}

	name, err := s.findOrCreateName(ctx, session.EventID, label)
	if err != nil {
		return Session{}, err
	}
	if name.ID != session.NameID {
		claim, err := s.repo.FindActiveClaim(ctx, name.ID)
		if err != nil {
			return Session{}, err
		}
		if claim != nil {
			return Session{}, fmt.Errorf("name %q is already claimed: %w", name.Label, apperr.ErrConflict)
		}
	}
	if displayName == "" {
		displayName = name.Label
	}

	// The session id is kept, so votes and blocks follow the attendee.
	if err := s.repo.UpdateSessionName(ctx, session.ID, name.ID, displayName); err != nil {
		return Session{}, err
	}
	session.NameID = name.ID
	session.DisplayName = displayName
	return session, nil
}

func (s *ServiceImpl) ListNames(ctx context.Context, eventID string) ([]Name, error) {
	return s.repo.ListNames(ctx, eventID)
}

func (s *ServiceImpl) findOrCreateName(ctx context.Context, eventID, label string) (Name, error) {
	slug := Slugify(label)
	if slug == "" {
		return Name{}, apperr.Validation("name", "attendee name is required")
	}
	existing, err := s.repo.FindNameBySlug(ctx, eventID, slug)
	if err != nil {
		return Name{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	name := Name{
		ID:      uuid.New().String(),
		EventID: eventID,
		Label:   strings.TrimSpace(label),
		Slug:    slug,
	}
	if err := s.repo.CreateName(ctx, name); err != nil {
		return Name{}, err
	}
	return name, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// newSessionKey builds an event-scoped opaque key: an event-derived prefix so
// a leaked key cannot be replayed against another event, then 24 random bytes.
func newSessionKey(eventID string) (string, error) {
	token, err := utils.RandomToken(24)
	if err != nil {
		return "", err
	}
	prefix := strings.ReplaceAll(eventID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "." + token, nil
}
