package models

import "time"

// Role is the authorization role of an account
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the two known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// ParseRole converts user input into a Role
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Account status values
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a learner or administrator account
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Name          string     `json:"name"`
	Role          Role       `json:"role"`
	Level         int        `json:"level"`
	Status        string     `json:"status"`
	OAuthProvider string     `json:"oauthProvider,omitempty"`
	OAuthSubject  string     `json:"-"`
	LastLoginAt   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"joinDate"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive reports whether the account may sign in
func (u *User) IsActive() bool {
	return u.Status != StatusInactive
}

// Session represents a server-side session record. Signed session tokens
// reference it by ID so sign-out can revoke them.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
