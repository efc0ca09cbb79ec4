package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/security"
	"speakwell/internal/session"
)

type fakeAPI struct {
	token   string
	revoked bool
	query   string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	token, err := security.NewTokenCodec("server-secret").Issue(security.Identity{
		UserID:    7,
		Name:      "Ann",
		Email:     "ann@example.com",
		Role:      models.RoleStudent,
		Level:     2,
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	api := &fakeAPI{token: token}

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	authorized := func(r *http.Request) bool {
		return !api.revoked && r.Header.Get("Authorization") == "Bearer "+api.token
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "password123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "token": api.token})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": map[string]string{"password": "password must be at least 8 characters"},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if authorized(r) {
			api.revoked = true
		}
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
	})
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": true,
			"user":          map[string]interface{}{"id": 7, "name": "Ann", "email": "ann@example.com", "role": "student", "level": 2},
		})
	})
	mux.HandleFunc("GET /lessons", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		api.query = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lessons":  []map[string]interface{}{{"id": 1, "title": "Greetings", "level": 1, "unit": 1, "chapter": 1, "active": true}},
			"chapters": []int{1},
		})
	})
	mux.HandleFunc("GET /units", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream down"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func TestClientLogin(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, nil)

	grant, err := c.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if grant.Identity.UserID != 7 || grant.Identity.Level != 2 || grant.Identity.SessionID != "sess-1" {
		t.Errorf("identity = %+v", grant.Identity)
	}

	_, err = c.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "nope"})
	var authErr *apperrors.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != "Invalid email or password" {
		t.Errorf("bad Login() error = %v, want AuthError", err)
	}
}

func TestClientRegisterValidation(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, nil)

	_, err := c.Register(context.Background(), session.Registration{Name: "Ann", Email: "ann@example.com", Password: "short"})
	var authErr *apperrors.AuthError
	var apiErr *APIError
	if !errors.As(err, &authErr) || !errors.As(err, &apiErr) {
		t.Fatalf("Register() error = %v, want AuthError wrapping APIError", err)
	}
	if apiErr.Fields["password"] == "" {
		t.Errorf("fields = %v", apiErr.Fields)
	}
}

func TestClientSessionLifecycle(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := New(srv.URL, nil)
	storage := session.FileStorage{Path: filepath.Join(t.TempDir(), "session")}
	ctx := context.Background()

	store := session.NewStore(c, storage, security.UnverifiedDecoder{}, nil)
	if _, err := store.SignIn(ctx, session.Credentials{Email: "ann@example.com", Password: "password123"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	restored := session.NewStore(c, storage, security.UnverifiedDecoder{}, nil).Restore()
	if restored == nil || restored.Email != "ann@example.com" {
		t.Fatalf("Restore() = %+v", restored)
	}

	me, err := c.Me(ctx, restored.Token)
	if err != nil || me == nil || me.UserID != 7 {
		t.Fatalf("Me() = %+v, %v", me, err)
	}

	page, err := c.Lessons(ctx, restored.Token, models.LessonFilter{Unit: 1, MaxLevel: 2})
	if err != nil || len(page.Lessons) != 1 {
		t.Fatalf("Lessons() = %+v, %v", page, err)
	}
	if api.query != "level=2&unit=1" {
		t.Errorf("query = %q", api.query)
	}

	if err := store.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if !api.revoked {
		t.Error("server session was not revoked")
	}
	if got, _ := storage.Load(); got != "" {
		t.Errorf("token file still holds %q", got)
	}

	me, err = c.Me(ctx, restored.Token)
	if err != nil || me != nil {
		t.Errorf("Me(after sign out) = %+v, %v; want nil", me, err)
	}
	if _, err := c.Lessons(ctx, restored.Token, models.LessonFilter{}); err == nil {
		t.Error("Lessons(after sign out) succeeded")
	}
}

func TestClientErrors(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL, nil)

	_, err := c.Units(context.Background(), "")
	var netErr *apperrors.NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("Units() error = %v, want NetworkError", err)
	}

	srv.Close()
	_, err = c.Login(context.Background(), session.Credentials{Email: "ann@example.com", Password: "password123"})
	if !apperrors.IsRecoverable(err) {
		t.Errorf("Login(closed server) error = %v, want taxonomy error", err)
	}
}
