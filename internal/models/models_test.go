package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			if got := session.IsExpired(); got != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"admin", true},
		{"student", true},
		{"Admin", false},
		{"moderator", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := ParseRole(tt.input)
			if ok != tt.want {
				t.Errorf("ParseRole(%q) ok = %v, want %v", tt.input, ok, tt.want)
			}
		})
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "Beginner"},
		{1, "Beginner"},
		{2, "Intermediate"},
		{3, "Advanced"},
		{7, "Advanced"},
	}

	for _, tt := range tests {
		if got := LevelName(tt.level); got != tt.want {
			t.Errorf("LevelName(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestUserStatus(t *testing.T) {
	admin := User{Role: RoleAdmin, Status: StatusActive}
	if !admin.IsAdmin() || !admin.IsActive() {
		t.Errorf("admin user: IsAdmin=%v IsActive=%v", admin.IsAdmin(), admin.IsActive())
	}

	student := User{Role: RoleStudent, Status: StatusInactive}
	if student.IsAdmin() {
		t.Error("student reported as admin")
	}
	if student.IsActive() {
		t.Error("inactive student reported as active")
	}
}
