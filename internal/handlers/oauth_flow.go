package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"speakwell/internal/guard"
	"speakwell/internal/security"
	"speakwell/internal/service"
	"speakwell/internal/session"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthProviderCookie = "oauth_provider"
	oauthCookieTTL      = 10 * time.Minute
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// OAuthProviderView is a sign-in option offered to clients
type OAuthProviderView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// Providers lists the configured OAuth providers
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	views := []OAuthProviderView{}
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, OAuthProviderView{
			Name:  key,
			Label: provider.Label,
			URL:   fmt.Sprintf("/auth/%s/start", key),
		})
	}
	respondWithJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := security.GenerateSessionID()
	h.setTempCookie(w, r, oauthStateCookie, state)
	h.setTempCookie(w, r, oauthProviderCookie, providerKey)

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", err)
		return
	}
	if providerCookie, err := r.Cookie(oauthProviderCookie); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, http.StatusBadRequest, "OAuth provider mismatch", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to exchange OAuth code", "", err)
		return
	}

	userInfo, err := fetchOAuthUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, err.Error(), "", err)
		return
	}

	h.clearTempCookie(w, r, oauthStateCookie)
	h.clearTempCookie(w, r, oauthProviderCookie)

	sess, user, err := h.authService.OAuthLogin(r.Context(), providerKey, userInfo.Subject, userInfo.Email, userInfo.Name)
	if err != nil {
		respondWithAppError(w, service.AuthFailure(err), "OAuth login failed")
		return
	}
	grant, err := h.authService.IssueToken(sess, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to issue session token", err)
		return
	}

	storage := session.CookieStorage{Name: SessionCookieName, R: r, W: w}
	if err := storage.Save(grant.Token, grant.Identity.ExpiresAt); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to persist session", err)
		return
	}
	http.Redirect(w, r, guard.DefaultPage(user.Role), http.StatusSeeOther)
}

// fetchOAuthUserInfo reads the profile of the signed-in account. Google and
// Facebook both return id, email and name.
func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}

	var payload struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Label)
	}

	subject := payload.ID
	if subject == "" {
		subject = payload.Sub
	}
	if subject == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New(provider.Label + " did not share an email address")
	}
	return oauthUserInfo{Subject: subject, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(oauthCookieTTL),
		MaxAge:   int(oauthCookieTTL.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, security.CreateDeleteCookie(r, name))
}
