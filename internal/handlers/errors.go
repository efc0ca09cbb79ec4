package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/validation"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		entry := logrus.WithError(err).WithField("status", status)
		if status >= http.StatusInternalServerError {
			entry.Error(logMsg)
		} else {
			entry.Debug(logMsg)
		}
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// statusFor maps an error to the HTTP status reported to the client
func statusFor(err error) int {
	var (
		authErr    *apperrors.AuthError
		recErr     *apperrors.RecordingError
		timeoutErr *apperrors.CollaboratorTimeout
		netErr     *apperrors.NetworkError
		authzErr   *apperrors.AuthorizationError
		valErr     apperrors.ValidationError
		fieldErrs  validation.FieldErrors
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &recErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.As(err, &authzErr):
		if authzErr.Actual == "" {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.As(err, &valErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err using the status of its taxonomy type.
// Unclassified errors are logged and reported without detail.
func respondWithAppError(w http.ResponseWriter, err error, logMsg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, ErrInternalServerError, logMsg, err)
		return
	}

	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		respondWithJSON(w, status, errorResponse{Error: "Validation failed", Fields: fieldErrs})
		return
	}
	respondWithError(w, status, err.Error(), logMsg, err)
}

// decodeJSON reads a JSON body into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		respondWithAppError(w, err, "Request validation failed")
		return false
	}
	return true
}
