package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/service"
	"speakwell/internal/speaking"
)

// SpeakingHandler serves single-word scoring and the speaking test flow
type SpeakingHandler struct {
	evaluator      *speaking.Evaluator
	testingService *service.TestingService
	maxUploadSize  int64
}

// NewSpeakingHandler creates a new speaking handler
func NewSpeakingHandler(evaluator *speaking.Evaluator, testingService *service.TestingService, maxUploadSize int64) *SpeakingHandler {
	return &SpeakingHandler{
		evaluator:      evaluator,
		testingService: testingService,
		maxUploadSize:  maxUploadSize,
	}
}

// readCapture reads the multipart audio upload. A missing file yields an
// empty capture, which the evaluator rejects as a recording error.
func (h *SpeakingHandler) readCapture(w http.ResponseWriter, r *http.Request) (speaking.Capture, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return speaking.Capture{}, apperrors.ValidationError{Field: "audio", Message: "invalid or oversized upload"}
	}

	capture := speaking.Capture{}
	if denied, _ := strconv.ParseBool(r.FormValue("permission_denied")); denied {
		capture.PermissionDenied = true
		return capture, nil
	}

	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return capture, nil
	}
	if err != nil {
		return capture, apperrors.ValidationError{Field: "audio", Message: "unreadable upload"}
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return capture, apperrors.ValidationError{Field: "audio", Message: "unreadable upload"}
	}
	capture.Audio = audio
	capture.MIMEType = header.Header.Get("Content-Type")
	return capture, nil
}

// Speak scores one recording against the target word
func (h *SpeakingHandler) Speak(w http.ResponseWriter, r *http.Request) {
	capture, err := h.readCapture(w, r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	target := strings.TrimSpace(r.FormValue("target"))
	if target == "" {
		respondWithAppError(w, apperrors.ValidationError{Field: "target", Message: "target is required"}, "")
		return
	}

	attempt, err := h.evaluator.Evaluate(r.Context(), capture, target)
	if err != nil {
		respondWithAppError(w, err, "Speech scoring failed")
		return
	}
	respondWithJSON(w, http.StatusOK, attempt)
}

// ownerKey identifies whose test a request addresses. The guard only lets
// signed-in sessions reach the test routes.
func ownerKey(r *http.Request) (string, int64, bool) {
	sess := currentSession(r)
	if sess == nil {
		return "", 0, false
	}
	return "user:" + strconv.FormatInt(sess.UserID, 10), sess.UserID, true
}

func respondWithTestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveTest):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, speaking.ErrRunCompleted),
		errors.Is(err, speaking.ErrRunNotStarted),
		errors.Is(err, speaking.ErrRunStarted),
		errors.Is(err, speaking.ErrNoPendingCapture):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	default:
		respondWithAppError(w, err, "Speaking test request failed")
	}
}

// Start begins a new speaking test
func (h *SpeakingHandler) Start(w http.ResponseWriter, r *http.Request) {
	owner, userID, ok := ownerKey(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	snap, err := h.testingService.Start(owner, userID)
	if err != nil {
		respondWithTestError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, snap)
}

// Show returns the current test
func (h *SpeakingHandler) Show(w http.ResponseWriter, r *http.Request) {
	owner, _, ok := ownerKey(r)
	if !ok {
		respondWithTestError(w, service.ErrNoActiveTest)
		return
	}
	snap, err := h.testingService.Get(owner)
	if err != nil {
		respondWithTestError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

type attemptResponse struct {
	Attempt  models.AttemptScore `json:"attempt"`
	Snapshot speaking.Snapshot   `json:"test"`
}

// Attempt scores a recording for the current word
func (h *SpeakingHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	owner, _, ok := ownerKey(r)
	if !ok {
		respondWithTestError(w, service.ErrNoActiveTest)
		return
	}
	capture, err := h.readCapture(w, r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}

	attempt, snap, err := h.testingService.Attempt(r.Context(), owner, capture)
	if err != nil {
		respondWithTestError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, attemptResponse{Attempt: attempt, Snapshot: snap})
}

// Retry discards the unscored recording
func (h *SpeakingHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.testingService.Retry)
}

// Next moves to the following word
func (h *SpeakingHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.testingService.Next)
}

func (h *SpeakingHandler) step(w http.ResponseWriter, r *http.Request, fn func(string) (speaking.Snapshot, error)) {
	owner, _, ok := ownerKey(r)
	if !ok {
		respondWithTestError(w, service.ErrNoActiveTest)
		return
	}
	snap, err := fn(owner)
	if err != nil {
		respondWithTestError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Results returns the summary of the current or finished test
func (h *SpeakingHandler) Results(w http.ResponseWriter, r *http.Request) {
	owner, _, ok := ownerKey(r)
	if !ok {
		respondWithTestError(w, service.ErrNoActiveTest)
		return
	}
	summary, snap, err := h.testingService.Results(owner)
	if err != nil {
		respondWithTestError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"summary":  summary,
		"attempts": snap.Attempts,
		"state":    snap.State,
	})
}

// Cancel abandons the current test without storing it
func (h *SpeakingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if owner, _, ok := ownerKey(r); ok {
		h.testingService.Discard(owner)
	}
	w.WriteHeader(http.StatusNoContent)
}
