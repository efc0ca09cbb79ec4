package handlers

import (
	"net/http"

	"speakwell/internal/service"
)

const feedbackBodyLimit = 64 << 10

// FeedbackHandler accepts feedback from learners
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// Submit stores feedback from the signed-in learner
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in service.FeedbackInput
	if !decodeJSON(w, r, feedbackBodyLimit, &in) {
		return
	}

	fb, err := h.feedbackService.Submit(r.Context(), currentSession(r).UserID, in)
	if err != nil {
		respondWithAppError(w, err, "Failed to submit feedback")
		return
	}
	respondWithJSON(w, http.StatusCreated, fb)
}
