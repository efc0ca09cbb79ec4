package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"speakwell/internal/security"
)

// FileStorage keeps the token in a file, for command line clients
type FileStorage struct {
	Path string
}

// Load reads the token file
func (f FileStorage) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token through a temporary file and rename, so readers
// never observe a partial token.
func (f FileStorage) Save(token string, _ time.Time) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Delete removes the token file
func (f FileStorage) Delete() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CookieStorage keeps the token in an HTTP cookie for one request. Load also
// accepts an Authorization bearer token so API clients share the same path.
type CookieStorage struct {
	Name string
	R    *http.Request
	W    http.ResponseWriter
}

// Load returns the bearer token or the cookie value
func (c CookieStorage) Load() (string, error) {
	if auth := c.R.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", fmt.Errorf("unsupported authorization scheme")
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := c.R.Cookie(c.Name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// Save sets the session cookie on the response
func (c CookieStorage) Save(token string, expires time.Time) error {
	http.SetCookie(c.W, security.CreateSessionCookie(c.R, c.Name, token, expires))
	return nil
}

// Delete expires the session cookie on the response
func (c CookieStorage) Delete() error {
	http.SetCookie(c.W, security.CreateDeleteCookie(c.R, c.Name))
	return nil
}

// MemoryStorage keeps the token in memory
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

// Load returns the stored token
func (m *MemoryStorage) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the stored token
func (m *MemoryStorage) Save(token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Delete forgets the stored token
func (m *MemoryStorage) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
