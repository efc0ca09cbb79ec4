package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"speakwell/internal/models"
)

const tokenIssuer = "speakwell"

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim validation.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the persisted form of an authenticated session
type Identity struct {
	UserID    int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Level     int         `json:"level"`
	SessionID string      `json:"-"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Level int         `json:"level"`
}

// TokenCodec signs and verifies session tokens with HMAC-SHA256
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec using secret as the signing key
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token for id. The token expires at id.ExpiresAt.
func (c *TokenCodec) Issue(id Identity) (string, error) {
	if !id.Role.Valid() {
		return "", fmt.Errorf("issue token: invalid role %q", id.Role)
	}
	if id.Level < 1 {
		return "", fmt.Errorf("issue token: invalid level %d", id.Level)
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.SessionID,
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
		Name:  id.Name,
		Email: id.Email,
		Role:  id.Role,
		Level: id.Level,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the identity it carries
func (c *TokenCodec) Parse(raw string) (Identity, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.identity()
}

func (sc *sessionClaims) identity() (Identity, error) {
	userID, err := strconv.ParseInt(sc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if !sc.Role.Valid() || sc.Level < 1 {
		return Identity{}, fmt.Errorf("%w: bad role or level", ErrInvalidToken)
	}

	return Identity{
		UserID:    userID,
		Name:      sc.Name,
		Email:     sc.Email,
		Role:      sc.Role,
		Level:     sc.Level,
		SessionID: sc.ID,
		ExpiresAt: sc.ExpiresAt.Time,
	}, nil
}

// UnverifiedDecoder reads session tokens issued by a remote server without
// checking the signature. Clients holding a server token use it to restore
// their session offline; the server still verifies the token on every call.
type UnverifiedDecoder struct {
	now func() time.Time
}

// Parse decodes raw, rejecting expired tokens and malformed claims
func (d UnverifiedDecoder) Parse(raw string) (Identity, error) {
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := time.Now
	if d.now != nil {
		now = d.now
	}
	if claims.ExpiresAt == nil || !now().Before(claims.ExpiresAt.Time) {
		return Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	return claims.identity()
}
