// Package auth manages accounts and bearer sessions.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/events"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// MinPasswordLength is the shortest password SignUp accepts
const MinPasswordLength = 6

// Auth state events delivered to listeners
const (
	EventSignedUp  = "signed_up"
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

var (
	// ErrAuthRequired is returned by operations that need a signed-in user
	ErrAuthRequired = errors.New("authentication required")
	// ErrInvalidCredentials is returned when email and password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput is returned for malformed emails or short passwords
	ErrInvalidInput = errors.New("invalid input")
)

// RequireUser returns ErrAuthRequired for anonymous callers
func RequireUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrAuthRequired
	}
	return nil
}

// Session is an issued bearer token
type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Service signs users up, in and out, and resolves bearer tokens
type Service struct {
	profiles *db.ProfileRepository
	sessions *db.SessionRepository
	bus      *events.Bus
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates an auth service. bus may be nil, in which case no
// auth state events are emitted.
func NewService(profiles *db.ProfileRepository, sessions *db.SessionRepository, bus *events.Bus, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		profiles: profiles,
		sessions: sessions,
		bus:      bus,
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.WithComponent("auth"),
	}
}

// SignUp registers a new account and opens a session for it
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	existing, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	profile := &models.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	s.logger.Info("Account created", zap.String("user_id", profile.ID))
	s.emit(EventSignedUp, profile)

	return s.openSession(ctx, profile)
}

// SignIn checks credentials and opens a new session
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.emit(EventSignedIn, profile)
	return session, nil
}

// SignOut revokes token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if user != nil {
		s.emit(EventSignedOut, &models.Profile{ID: user.ID, Email: user.Email})
	}
	return nil
}

// Resolve maps a bearer token to its user. Unknown or expired tokens yield
// nil, nil: the caller is anonymous.
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessions.GetActive(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if session == nil || session.Profile == nil {
		return nil, nil
	}
	return &models.User{ID: session.Profile.ID, Email: session.Profile.Email}, nil
}

// Subscribe registers listener for auth state changes. Listeners run on the
// event bus, detached from the request that caused the change.
func (s *Service) Subscribe(listener func(events.AuthStateChanged)) error {
	if s.bus == nil {
		return errors.New("auth events require an event bus")
	}
	return s.bus.Handle(events.TopicAuthState, func(_ context.Context, payload []byte) error {
		var ev events.AuthStateChanged
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		listener(ev)
		return nil
	})
}

func (s *Service) openSession(ctx context.Context, profile *models.Profile) (*Session, error) {
	now := s.now().UTC()
	row := &models.Session{
		Token:     newToken(),
		UserID:    profile.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &Session{
		Token:     row.Token,
		User:      models.User{ID: profile.ID, Email: profile.Email},
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (s *Service) emit(event string, profile *models.Profile) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(events.TopicAuthState, events.AuthStateChanged{
		Event:  event,
		UserID: profile.ID,
		Email:  profile.Email,
	})
	if err != nil {
		s.logger.Warn("Failed to publish auth event", zap.String("event", event), zap.Error(err))
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return email, nil
}

// newToken joins two random UUIDs into 64 hex characters
func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
