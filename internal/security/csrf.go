package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// CSRFHeader carries the CSRF token on cookie-authenticated mutations.
const CSRFHeader = "X-CSRF-Token"

const (
	csrfTokenPrefix = "v1."
	csrfContext     = "speakwell/csrf\x00"
)

var errNoSessionID = errors.New("session ID is required")

// CSRFGenerator derives CSRF tokens from the server session ID with
// HMAC-SHA256. Nothing is stored; any replica holding the secret validates.
type CSRFGenerator struct {
	secret []byte
}

// NewCSRFGenerator creates a CSRF generator keyed by secret
func NewCSRFGenerator(secret string) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte(secret)}
}

func (g *CSRFGenerator) sum(sessionID string) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(csrfContext))
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}

// GenerateToken returns the CSRF token for sessionID
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errNoSessionID
	}
	return csrfTokenPrefix + base64.RawURLEncoding.EncodeToString(g.sum(sessionID)), nil
}

// ValidateToken reports whether token was issued for sessionID
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" {
		return false
	}
	encoded, ok := strings.CutPrefix(token, csrfTokenPrefix)
	if !ok {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(got, g.sum(sessionID))
}
