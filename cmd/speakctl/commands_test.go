package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"speakwell/internal/models"
	"speakwell/internal/security"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	token, err := security.NewTokenCodec("server-secret").Issue(security.Identity{
		UserID:    3,
		Name:      "Bea",
		Email:     "bea@example.com",
		Role:      models.RoleStudent,
		Level:     1,
		SessionID: "sess-9",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "token": token})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
	})
	mux.HandleFunc("GET /lessons", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lessons": []map[string]interface{}{
				{"id": 1, "title": "Greetings", "level": 1, "unit": 1, "chapter": 1, "active": true},
				{"id": 2, "title": "Numbers", "level": 1, "unit": 1, "chapter": 2, "active": true},
			},
			"chapters": []int{1, 2},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoginLessonsLogout(t *testing.T) {
	srv := newFakeServer(t)
	sessionFile := filepath.Join(t.TempDir(), "session")
	global := []string{"--api-url", srv.URL, "--session-file", sessionFile}

	if _, err := run(t, append([]string{"lessons"}, global...)...); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("lessons before login error = %v", err)
	}

	out, err := run(t, append([]string{"login", "-e", "bea@example.com", "-p", "password123"}, global...)...)
	if err != nil {
		t.Fatalf("login error = %v", err)
	}
	if !strings.Contains(out, "Bea <bea@example.com>") || !strings.Contains(out, "Beginner") {
		t.Errorf("login output = %q", out)
	}
	if data, err := os.ReadFile(sessionFile); err != nil || len(data) == 0 {
		t.Fatalf("session file not written: %v", err)
	}

	out, err = run(t, append([]string{"lessons", "--unit", "1"}, global...)...)
	if err != nil {
		t.Fatalf("lessons error = %v", err)
	}
	for _, want := range []string{"Greetings", "Numbers", "chapters: 1, 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("lessons output missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, append([]string{"logout"}, global...)...); err != nil {
		t.Fatalf("logout error = %v", err)
	}
	if _, err := os.Stat(sessionFile); !os.IsNotExist(err) {
		t.Errorf("session file still present after logout: %v", err)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	_, err := run(t, "login", "--session-file", filepath.Join(t.TempDir(), "session"))
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("error = %v, want missing required flag", err)
	}
}
