// Package session owns the current authenticated identity. A Store signs in
// through an Authenticator, persists the resulting token to a Storage and
// restores it on start without contacting the Authenticator.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/models"
	"speakwell/internal/security"
)

// Session is the active identity. A nil *Session means nobody is signed in.
type Session struct {
	UserID    int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Level     int         `json:"level"`
	ID        string      `json:"-"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Token     string      `json:"-"`
}

// IsAdmin reports whether the session holds the admin role
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

func fromIdentity(id security.Identity, token string) *Session {
	return &Session{
		UserID:    id.UserID,
		Name:      id.Name,
		Email:     id.Email,
		Role:      id.Role,
		Level:     id.Level,
		ID:        id.SessionID,
		ExpiresAt: id.ExpiresAt,
		Token:     token,
	}
}

// Credentials are the sign-in inputs
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration are the sign-up inputs
type Registration struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Grant is what the Authenticator hands back on success: the identity and
// the signed token that represents it.
type Grant struct {
	Identity security.Identity
	Token    string
}

// Authenticator is the authentication collaborator. Rejected credentials and
// registrations are reported as *apperrors.AuthError; any other error is a
// failure of the collaborator itself and is passed through unchanged.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Grant, error)
	Register(ctx context.Context, reg Registration) (Grant, error)
}

// Revoker is implemented by Authenticators that can invalidate a token
// server side.
type Revoker interface {
	Revoke(ctx context.Context, s *Session) error
}

// TokenDecoder turns a persisted token back into an identity
type TokenDecoder interface {
	Parse(raw string) (security.Identity, error)
}

// Storage persists a single session token
type Storage interface {
	// Load returns "" and no error when nothing is stored.
	Load() (string, error)
	Save(token string, expires time.Time) error
	Delete() error
}

// Store holds the current session
type Store struct {
	auth    Authenticator
	storage Storage
	decoder TokenDecoder
	logger  logrus.FieldLogger

	mu      sync.RWMutex
	current *Session
}

// NewStore creates a Store. The store starts empty; call Restore to load a
// persisted session.
func NewStore(auth Authenticator, storage Storage, decoder TokenDecoder, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		auth:    auth,
		storage: storage,
		decoder: decoder,
		logger:  logger,
	}
}

// Current returns the active session or nil
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SignIn authenticates creds and makes the result the active session
func (s *Store) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	grant, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, grant)
}

// SignUp registers a new account and makes it the active session
func (s *Store) SignUp(ctx context.Context, reg Registration) (*Session, error) {
	grant, err := s.auth.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, grant)
}

// activate persists grant first and only then swaps the in-memory session, so
// a failed write leaves the previous session in place.
func (s *Store) activate(ctx context.Context, grant Grant) (*Session, error) {
	next := fromIdentity(grant.Identity, grant.Token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(grant.Token, grant.Identity.ExpiresAt); err != nil {
		s.revoke(ctx, next)
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.current = next
	return next, nil
}

// SignOut clears the active session and its persisted token. Calling it with
// no active session is a no-op.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current
	if err := s.storage.Delete(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.current = nil

	if prev != nil {
		s.revoke(ctx, prev)
	}
	return nil
}

// Restore loads the persisted session, if any. A missing or corrupt token
// leaves the store empty; corrupt tokens are removed from storage.
func (s *Store) Restore() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil

	raw, err := s.storage.Load()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read persisted session")
		return nil
	}
	if raw == "" {
		return nil
	}

	id, err := s.decoder.Parse(raw)
	if err != nil {
		s.logger.WithError(err).Debug("Discarding persisted session")
		if err := s.storage.Delete(); err != nil {
			s.logger.WithError(err).Warn("Failed to remove corrupt session")
		}
		return nil
	}

	s.current = fromIdentity(id, raw)
	return s.current
}

func (s *Store) revoke(ctx context.Context, sess *Session) {
	r, ok := s.auth.(Revoker)
	if !ok {
		return
	}
	if err := r.Revoke(ctx, sess); err != nil {
		s.logger.WithError(err).WithField("user_id", sess.UserID).Warn("Failed to revoke session")
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored in ctx, or nil
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
