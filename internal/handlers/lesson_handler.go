package handlers

import (
	"net/http"
	"strconv"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/service"
)

// LessonHandler serves lessons and units to signed-in learners
type LessonHandler struct {
	lessonService *service.LessonService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(lessonService *service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// queryInt reads an optional positive integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationError{Field: name, Message: "must be a positive number"}
	}
	return n, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError{Field: "id", Message: "invalid id"}
	}
	return id, nil
}

// parseLessonFilter reads unit, chapter, level and active from the query
func parseLessonFilter(r *http.Request) (models.LessonFilter, error) {
	var (
		f   models.LessonFilter
		err error
	)
	if f.Unit, err = queryInt(r, "unit"); err != nil {
		return f, err
	}
	if f.Chapter, err = queryInt(r, "chapter"); err != nil {
		return f, err
	}
	if f.MaxLevel, err = queryInt(r, "level"); err != nil {
		return f, err
	}
	if active := r.URL.Query().Get("active"); active != "" {
		if f.ActiveOnly, err = strconv.ParseBool(active); err != nil {
			return f, apperrors.ValidationError{Field: "active", Message: "must be true or false"}
		}
	}
	return f, nil
}

// List returns lessons matching the query. Learners only see active lessons
// up to their level.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	filter, err := parseLessonFilter(r)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}
	if !sess.IsAdmin() {
		filter.ActiveOnly = true
		if filter.MaxLevel == 0 || filter.MaxLevel > sess.Level {
			filter.MaxLevel = sess.Level
		}
	}

	page, err := h.lessonService.List(filter)
	if err != nil {
		respondWithAppError(w, err, "Failed to list lessons")
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// Units returns the units unlocked at the learner's level
func (h *LessonHandler) Units(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, service.UnitsForLevel(currentSession(r).Level))
}
