package handlers

import "net/http"

// Routes holds the handlers served by the application
type Routes struct {
	Middleware *Middleware
	Startup    *StartupStatus
	Auth       *AuthHandler
	Pages      *PageHandler
	Lessons    *LessonHandler
	Speaking   *SpeakingHandler
	Feedback   *FeedbackHandler
	Admin      *AdminHandler
}

// Handler registers every route and wraps the mux with logging, session
// loading and the route guard.
func (rt Routes) Handler() http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /healthz", rt.Startup.Health)
	mux.HandleFunc("GET /{$}", rt.Pages.Landing)
	mux.HandleFunc("POST /speak", m.CSRFProtect(rt.Speaking.Speak))

	// Auth routes
	mux.HandleFunc("POST /auth/register", m.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /auth/login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /auth/logout", m.CSRFProtect(rt.Auth.Logout))
	mux.HandleFunc("GET /auth/session", rt.Auth.Session)
	mux.HandleFunc("GET /auth/providers", rt.Auth.Providers)
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)

	// Speaking test routes
	mux.HandleFunc("GET /trial", rt.Speaking.Show)
	mux.HandleFunc("DELETE /trial", m.CSRFProtect(rt.Speaking.Cancel))
	mux.HandleFunc("POST /trial/start", m.CSRFProtect(rt.Speaking.Start))
	mux.HandleFunc("POST /trial/attempt", m.CSRFProtect(rt.Speaking.Attempt))
	mux.HandleFunc("POST /trial/retry", m.CSRFProtect(rt.Speaking.Retry))
	mux.HandleFunc("POST /trial/next", m.CSRFProtect(rt.Speaking.Next))
	mux.HandleFunc("GET /trial/results", rt.Speaking.Results)

	// Learner routes
	mux.HandleFunc("GET /roadmap", rt.Pages.Roadmap)
	mux.HandleFunc("GET /user-dashboard", rt.Pages.UserDashboard)
	mux.HandleFunc("GET /lessons", rt.Lessons.List)
	mux.HandleFunc("GET /units", rt.Lessons.Units)
	mux.HandleFunc("POST /feedback", m.CSRFProtect(rt.Feedback.Submit))

	// Admin routes
	mux.HandleFunc("GET /admin-dashboard", rt.Pages.AdminDashboard)
	mux.HandleFunc("GET /admin/users", rt.Admin.ListUsers)
	mux.HandleFunc("PUT /admin/users/{id}", m.CSRFProtect(rt.Admin.UpdateUser))
	mux.HandleFunc("DELETE /admin/users/{id}", m.CSRFProtect(rt.Admin.DeleteUser))
	mux.HandleFunc("GET /admin/lessons", rt.Admin.ListLessons)
	mux.HandleFunc("POST /admin/lessons", m.CSRFProtect(rt.Admin.CreateLesson))
	mux.HandleFunc("PUT /admin/lessons/{id}", m.CSRFProtect(rt.Admin.UpdateLesson))
	mux.HandleFunc("PUT /admin/lessons/{id}/active", m.CSRFProtect(rt.Admin.SetLessonActive))
	mux.HandleFunc("DELETE /admin/lessons/{id}", m.CSRFProtect(rt.Admin.DeleteLesson))
	mux.HandleFunc("GET /admin/results", rt.Admin.ListResults)
	mux.HandleFunc("GET /admin/results/{id}", rt.Admin.ShowResult)
	mux.HandleFunc("DELETE /admin/results/{id}", m.CSRFProtect(rt.Admin.DeleteResult))
	mux.HandleFunc("GET /admin/feedback", rt.Admin.ListFeedback)
	mux.HandleFunc("PUT /admin/feedback/{id}", m.CSRFProtect(rt.Admin.TriageFeedback))
	mux.HandleFunc("DELETE /admin/feedback/{id}", m.CSRFProtect(rt.Admin.DeleteFeedback))

	return m.Logging(m.LoadSession(m.Guard(mux)))
}
