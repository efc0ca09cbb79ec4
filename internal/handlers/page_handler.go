package handlers

import (
	"net/http"

	"speakwell/internal/guard"
	"speakwell/internal/service"
	"speakwell/internal/speaking"
)

// LandingView is the view model of the landing page
type LandingView struct {
	Authenticated bool     `json:"authenticated"`
	DefaultPage   string   `json:"defaultPage"`
	TrialPage     string   `json:"trialPage"`
	TrialWords    int      `json:"trialWords"`
	Providers     []string `json:"oauthProviders"`
}

// PageHandler serves the guarded page view models
type PageHandler struct {
	dashboardService *service.DashboardService
	providers        []string
}

// NewPageHandler creates a new page handler. providers names the configured
// OAuth providers shown on the landing page.
func NewPageHandler(dashboardService *service.DashboardService, providers []string) *PageHandler {
	return &PageHandler{dashboardService: dashboardService, providers: providers}
}

// Landing serves /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view := LandingView{
		Authenticated: sess != nil,
		DefaultPage:   guard.LandingPage,
		TrialPage:     guard.TrialPage,
		TrialWords:    len(speaking.DefaultWords),
		Providers:     h.providers,
	}
	if sess != nil {
		view.DefaultPage = guard.DefaultPage(sess.Role)
	}
	respondWithJSON(w, http.StatusOK, view)
}

// UserDashboard serves /user-dashboard
func (h *PageHandler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboardService.Learner(currentSession(r).UserID)
	if err != nil {
		respondWithAppError(w, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

// Roadmap serves /roadmap
func (h *PageHandler) Roadmap(w http.ResponseWriter, r *http.Request) {
	roadmap, err := h.dashboardService.Roadmap(currentSession(r).UserID)
	if err != nil {
		respondWithAppError(w, err, "Failed to load roadmap")
		return
	}
	respondWithJSON(w, http.StatusOK, roadmap)
}

// AdminDashboard serves /admin-dashboard
func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboardService.Admin()
	if err != nil {
		respondWithAppError(w, err, "Failed to load admin dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}
