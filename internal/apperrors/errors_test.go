package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net failure" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

var _ net.Error = fakeNetErr{}

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantTimeout bool
		wantNetwork bool
	}{
		{name: "nil stays nil", err: nil},
		{name: "deadline exceeded", err: fmt.Errorf("post: %w", context.DeadlineExceeded), wantTimeout: true},
		{name: "net timeout", err: fakeNetErr{timeout: true}, wantTimeout: true},
		{name: "connection refused", err: fakeNetErr{}, wantNetwork: true},
		{name: "other error untouched", err: errors.New("bad json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTransport("auth service", tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("FromTransport(nil) = %v", got)
				}
				return
			}
			var timeout *CollaboratorTimeout
			var network *NetworkError
			if errors.As(got, &timeout) != tt.wantTimeout {
				t.Errorf("timeout classification = %v, want %v (%v)", !tt.wantTimeout, tt.wantTimeout, got)
			}
			if errors.As(got, &network) != tt.wantNetwork {
				t.Errorf("network classification = %v, want %v (%v)", !tt.wantNetwork, tt.wantNetwork, got)
			}
			if !tt.wantTimeout && !tt.wantNetwork && got != tt.err {
				t.Errorf("FromTransport() = %v, want original error", got)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	recoverable := []error{
		&AuthError{Reason: "bad password"},
		&RecordingError{Reason: "empty capture"},
		&CollaboratorTimeout{Collaborator: "speech"},
		&NetworkError{Collaborator: "speech", Err: errors.New("refused")},
		&AuthorizationError{Required: "admin", Actual: "student"},
		ValidationError{Field: "email", Message: "required"},
		fmt.Errorf("lesson 7: %w", ErrNotFound),
	}
	for _, err := range recoverable {
		if !IsRecoverable(err) {
			t.Errorf("IsRecoverable(%v) = false", err)
		}
	}
	if IsRecoverable(errors.New("disk full")) {
		t.Error("IsRecoverable(plain error) = true")
	}
}
