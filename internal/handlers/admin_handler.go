package handlers

import (
	"errors"
	"net/http"

	"speakwell/internal/service"
)

const adminBodyLimit = 64 << 10

// AdminHandler handles admin-specific routes
type AdminHandler struct {
	adminService    *service.AdminService
	lessonService   *service.LessonService
	feedbackService *service.FeedbackService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, lessonService *service.LessonService, feedbackService *service.FeedbackService) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		lessonService:   lessonService,
		feedbackService: feedbackService,
	}
}

func respondWithAdminError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, service.ErrSelfModification) {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	respondWithAppError(w, err, logMsg)
}

// ListUsers returns every account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers()
	if err != nil {
		respondWithAppError(w, err, "Failed to list users")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// UpdateUser changes an account's name, role, level or status
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	var in service.UserUpdate
	if !decodeJSON(w, r, adminBodyLimit, &in) {
		return
	}

	user, err := h.adminService.UpdateUser(currentSession(r).UserID, id, in)
	if err != nil {
		respondWithAdminError(w, err, "Failed to update user")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// DeleteUser removes an account
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	if err := h.adminService.DeleteUser(currentSession(r).UserID, id); err != nil {
		respondWithAdminError(w, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLessons returns lessons of any level and state
func (h *AdminHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLessonFilter(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	page, err := h.lessonService.List(filter)
	if err != nil {
		respondWithAppError(w, err, "Failed to list lessons")
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// CreateLesson adds a lesson
func (h *AdminHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var in service.LessonInput
	if !decodeJSON(w, r, adminBodyLimit, &in) {
		return
	}
	lesson, err := h.lessonService.Create(in)
	if err != nil {
		respondWithAppError(w, err, "Failed to create lesson")
		return
	}
	respondWithJSON(w, http.StatusCreated, lesson)
}

// UpdateLesson replaces a lesson's editable fields
func (h *AdminHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	var in service.LessonInput
	if !decodeJSON(w, r, adminBodyLimit, &in) {
		return
	}
	lesson, err := h.lessonService.Update(id, in)
	if err != nil {
		respondWithAppError(w, err, "Failed to update lesson")
		return
	}
	respondWithJSON(w, http.StatusOK, lesson)
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetLessonActive shows or hides a lesson from learners
func (h *AdminHandler) SetLessonActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	var in activeRequest
	if !decodeJSON(w, r, adminBodyLimit, &in) {
		return
	}
	if err := h.lessonService.SetActive(id, *in.Active); err != nil {
		respondWithAppError(w, err, "Failed to update lesson")
		return
	}
	lesson, err := h.lessonService.Get(id)
	if err != nil {
		respondWithAppError(w, err, "Failed to load lesson")
		return
	}
	respondWithJSON(w, http.StatusOK, lesson)
}

// DeleteLesson removes a lesson
func (h *AdminHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	if err := h.lessonService.Delete(id); err != nil {
		respondWithAppError(w, err, "Failed to delete lesson")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListResults returns the most recent test results of all learners
func (h *AdminHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	results, err := h.adminService.ListResults(limit)
	if err != nil {
		respondWithAppError(w, err, "Failed to list results")
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

// ShowResult returns one result with its attempts
func (h *AdminHandler) ShowResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	res, err := h.adminService.GetResult(id)
	if err != nil {
		respondWithAppError(w, err, "Failed to load result")
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// DeleteResult removes a result and its attempts
func (h *AdminHandler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	if err := h.adminService.DeleteResult(id); err != nil {
		respondWithAppError(w, err, "Failed to delete result")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFeedback returns feedback, optionally filtered by status
func (h *AdminHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedbackService.List(r.URL.Query().Get("status"))
	if err != nil {
		respondWithAppError(w, err, "Failed to list feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// TriageFeedback sets the status and priority of a feedback item
func (h *AdminHandler) TriageFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	var in service.TriageInput
	if !decodeJSON(w, r, adminBodyLimit, &in) {
		return
	}
	fb, err := h.feedbackService.Triage(id, in)
	if err != nil {
		respondWithAppError(w, err, "Failed to update feedback")
		return
	}
	respondWithJSON(w, http.StatusOK, fb)
}

// DeleteFeedback removes a feedback item
func (h *AdminHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	if err := h.feedbackService.Delete(id); err != nil {
		respondWithAppError(w, err, "Failed to delete feedback")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
