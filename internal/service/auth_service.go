package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/repository"
	"speakwell/internal/security"
	"speakwell/internal/session"
	"speakwell/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo        *repository.UserRepository
	codec           *security.TokenCodec
	emailService    *EmailService
	sessionDuration time.Duration
	logger          logrus.FieldLogger
	now             func() time.Time
}

// NewAuthService creates a new auth service. emailService may be nil.
func NewAuthService(userRepo *repository.UserRepository, codec *security.TokenCodec, emailService *EmailService, sessionDuration time.Duration, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		codec:           codec,
		emailService:    emailService,
		sessionDuration: sessionDuration,
		logger:          logger.WithField("component", "auth"),
		now:             time.Now,
	}
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to send welcome email")
		}
	}

	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, ErrAccountInactive
	}

	sess, err := s.startSession(user)
	if err != nil {
		return nil, nil, err
	}
	return sess, user, nil
}

func (s *AuthService) startSession(user *models.User) (*models.Session, error) {
	now := s.now()
	sess, err := s.userRepo.CreateSession(security.GenerateSessionID(), user.ID, now.Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	return sess, nil
}

// IssueToken signs the token that represents sess for user
func (s *AuthService) IssueToken(sess *models.Session, user *models.User) (session.Grant, error) {
	id := security.Identity{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Level:     user.Level,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}
	token, err := s.codec.Issue(id)
	if err != nil {
		return session.Grant{}, err
	}
	return session.Grant{Identity: id, Token: token}, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	sess, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(sess.ExpiresAt) {
		if err := s.userRepo.DeleteSession(sessionID); err != nil {
			s.logger.WithError(err).WithField("user_id", sess.UserID).Warn("Failed to delete expired session")
		}
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive() {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existingUser
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			user, err = s.userRepo.CreateOAuthUser(email, name, provider, subject)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			if s.emailService != nil {
				if err := s.emailService.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
					s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to send welcome email")
				}
			}
		}
	}

	if !user.IsActive() {
		return nil, nil, ErrAccountInactive
	}

	sess, err := s.startSession(user)
	if err != nil {
		return nil, nil, err
	}
	return sess, user, nil
}

// Authenticator adapts AuthService to the session store
type Authenticator struct {
	auth *AuthService
}

// NewAuthenticator wraps auth for use by a session.Store
func NewAuthenticator(auth *AuthService) *Authenticator {
	return &Authenticator{auth: auth}
}

func (a *Authenticator) Login(_ context.Context, creds session.Credentials) (session.Grant, error) {
	sess, user, err := a.auth.Login(creds.Email, creds.Password)
	if err != nil {
		return session.Grant{}, AuthFailure(err)
	}
	return a.auth.IssueToken(sess, user)
}

func (a *Authenticator) Register(ctx context.Context, reg session.Registration) (session.Grant, error) {
	if _, err := a.auth.Register(ctx, reg.Email, reg.Password, reg.Name); err != nil {
		return session.Grant{}, AuthFailure(err)
	}
	sess, user, err := a.auth.Login(reg.Email, reg.Password)
	if err != nil {
		return session.Grant{}, AuthFailure(err)
	}
	return a.auth.IssueToken(sess, user)
}

func (a *Authenticator) Revoke(_ context.Context, sess *session.Session) error {
	if sess.ID == "" {
		return nil
	}
	return a.auth.Logout(sess.ID)
}

// AuthFailure converts service errors into the AuthError the session store
// reports. Validation errors stay reachable through Unwrap.
func AuthFailure(err error) error {
	var valErr apperrors.ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountInactive), errors.Is(err, ErrEmailTaken):
		return &apperrors.AuthError{Reason: err.Error(), Err: err}
	case errors.As(err, &valErr):
		return &apperrors.AuthError{Reason: valErr.Error(), Err: err}
	default:
		return err
	}
}
