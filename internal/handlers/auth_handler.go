package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"speakwell/internal/guard"
	"speakwell/internal/security"
	"speakwell/internal/service"
	"speakwell/internal/session"
)

const authBodyLimit = 16 << 10

// SessionResponse is returned by the /auth endpoints
type SessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *session.Session `json:"user,omitempty"`
	Token         string           `json:"token,omitempty"`
	CSRFToken     string           `json:"csrfToken,omitempty"`
	DefaultPage   string           `json:"defaultPage"`
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	sessions             *Sessions
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, sessions *Sessions, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		sessions:             sessions,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger.WithField("component", "auth_handler"),
	}
}

func (h *AuthHandler) sessionResponse(sess *session.Session, includeToken bool) SessionResponse {
	if sess == nil {
		return SessionResponse{DefaultPage: guard.LandingPage}
	}
	resp := SessionResponse{
		Authenticated: true,
		User:          sess,
		DefaultPage:   guard.DefaultPage(sess.Role),
	}
	if includeToken {
		resp.Token = sess.Token
	}
	if token, err := h.csrf.GenerateToken(sess.ID); err == nil {
		resp.CSRFToken = token
	}
	return resp
}

// Register handles sign-up
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg session.Registration
	if !decodeJSON(w, r, authBodyLimit, &reg) {
		return
	}

	sess, err := h.sessions.Store(w, r).SignUp(r.Context(), reg)
	if err != nil {
		respondWithAppError(w, err, "Registration failed")
		return
	}
	respondWithJSON(w, http.StatusCreated, h.sessionResponse(sess, true))
}

// Login handles sign-in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !decodeJSON(w, r, authBodyLimit, &creds) {
		return
	}

	sess, err := h.sessions.Store(w, r).SignIn(r.Context(), creds)
	if err != nil {
		respondWithAppError(w, err, "Login failed")
		return
	}
	h.logger.WithField("user_id", sess.UserID).Info("User signed in")
	respondWithJSON(w, http.StatusOK, h.sessionResponse(sess, true))
}

// Logout revokes the current session and clears the cookie. It succeeds
// when nobody is signed in.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := h.sessions.Store(w, r)
	store.Restore()
	if err := store.SignOut(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to sign out", err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.sessionResponse(nil, false))
}

// Session returns the current identity and its CSRF token
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.sessionResponse(currentSession(r), false))
}
