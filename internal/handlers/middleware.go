package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/guard"
	"speakwell/internal/security"
	"speakwell/internal/service"
	"speakwell/internal/session"
)

// Sessions builds the per-request session store backed by the session cookie
type Sessions struct {
	authenticator *service.Authenticator
	codec         *security.TokenCodec
	logger        logrus.FieldLogger
}

// NewSessions creates a Sessions factory
func NewSessions(authService *service.AuthService, codec *security.TokenCodec, logger logrus.FieldLogger) *Sessions {
	return &Sessions{
		authenticator: service.NewAuthenticator(authService),
		codec:         codec,
		logger:        logger.WithField("component", "session"),
	}
}

// Store returns a session store that reads and writes the cookie of r and w
func (s *Sessions) Store(w http.ResponseWriter, r *http.Request) *session.Store {
	storage := session.CookieStorage{Name: SessionCookieName, R: r, W: w}
	return session.NewStore(s.authenticator, storage, s.codec, s.logger)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions    *Sessions
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	table       guard.Table
	logger      logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *Sessions, authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, table guard.Table, logger logrus.FieldLogger) *Middleware {
	return &Middleware{
		sessions:    sessions,
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		table:       table,
		logger:      logger,
	}
}

// LoadSession restores the session from the request and checks that the
// server has not revoked it. Role, level and name come from the stored
// account so admin changes apply on the next request.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := m.sessions.Store(w, r)
		sess := store.Restore()

		if sess != nil {
			user, err := m.authService.ValidateSession(sess.ID)
			switch {
			case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
				if err := store.SignOut(r.Context()); err != nil {
					m.logger.WithError(err).Warn("Failed to clear revoked session")
				}
				sess = nil
			case err != nil:
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to validate session", err)
				return
			default:
				fresh := *sess
				fresh.Name = user.Name
				fresh.Role = user.Role
				fresh.Level = user.Level
				sess = &fresh
			}
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

type guardResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirectTo"`
}

// Guard applies the route table to every request before any handler runs.
// Browsers are redirected; API clients get 401 or 403.
func (m *Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		decision := m.table.Check(r.URL.Path, sess)
		if decision.Allow {
			next.ServeHTTP(w, r)
			return
		}

		if !wantsJSON(r) {
			http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
			return
		}
		if sess == nil {
			respondWithJSON(w, http.StatusUnauthorized, guardResponse{Error: ErrUnauthorized, RedirectTo: decision.RedirectTo})
			return
		}
		respondWithJSON(w, http.StatusForbidden, guardResponse{Error: ErrForbidden, RedirectTo: decision.RedirectTo})
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("Authorization") != ""
}

// CSRFProtect requires the CSRF header on cookie-authenticated mutations.
// Bearer-token clients and anonymous requests pass through.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		sess := session.FromContext(r.Context())
		if sess == nil || r.Header.Get("Authorization") != "" {
			next(w, r)
			return
		}
		if !m.csrf.ValidateToken(sess.ID, r.Header.Get(security.CSRFHeader)) {
			respondWithError(w, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client address
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging logs each request with its status and duration
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

// currentSession returns the session loaded for r, or nil
func currentSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}
