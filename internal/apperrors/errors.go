// Package apperrors defines the error taxonomy shared by the session,
// speaking-test and transport layers. Every error here is recoverable and
// local to one user action.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AuthError reports credentials or registration data rejected by the
// authentication collaborator.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// RecordingError reports a missing or empty audio capture.
type RecordingError struct {
	Reason string
}

func (e *RecordingError) Error() string {
	return "recording error: " + e.Reason
}

// CollaboratorTimeout reports an external call that exceeded its deadline.
type CollaboratorTimeout struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorTimeout) Error() string {
	return fmt.Sprintf("%s did not respond in time", e.Collaborator)
}

func (e *CollaboratorTimeout) Unwrap() error { return e.Err }

// NetworkError reports a transport failure talking to a collaborator.
type NetworkError struct {
	Collaborator string
	Err          error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthorizationError reports a role mismatch. The route guard turns it into
// a redirect, so it only reaches callers of the JSON API.
type AuthorizationError struct {
	Required string
	Actual   string
}

func (e *AuthorizationError) Error() string {
	if e.Actual == "" {
		return "authentication required"
	}
	return fmt.Sprintf("role %q required, have %q", e.Required, e.Actual)
}

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FromTransport classifies an error returned by an outbound call to the named
// collaborator. Deadline expiry becomes CollaboratorTimeout, other network
// failures become NetworkError, anything else is returned unchanged.
func FromTransport(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CollaboratorTimeout{Collaborator: collaborator, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &CollaboratorTimeout{Collaborator: collaborator, Err: err}
		}
		return &NetworkError{Collaborator: collaborator, Err: err}
	}
	return err
}

// IsRecoverable reports whether err belongs to the taxonomy above.
func IsRecoverable(err error) bool {
	var (
		authErr    *AuthError
		recErr     *RecordingError
		timeoutErr *CollaboratorTimeout
		netErr     *NetworkError
		authzErr   *AuthorizationError
		valErr     ValidationError
	)
	return errors.As(err, &authErr) ||
		errors.As(err, &recErr) ||
		errors.As(err, &timeoutErr) ||
		errors.As(err, &netErr) ||
		errors.As(err, &authzErr) ||
		errors.As(err, &valErr) ||
		errors.Is(err, ErrNotFound)
}
