package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"speakwell/internal/config"
	"speakwell/internal/database"
	"speakwell/internal/guard"
	"speakwell/internal/handlers"
	"speakwell/internal/repository"
	"speakwell/internal/security"
	"speakwell/internal/service"
	"speakwell/internal/speaking"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve startup progress until the application routes are ready
	startup := handlers.NewStartupStatus()
	var app atomic.Value
	server := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h, ok := app.Load().(http.Handler); ok {
				h.ServeHTTP(w, r)
				return
			}
			startup.Health(w, r)
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	logger.WithField("type", cfg.DatabaseType).Info("Database connection established")

	startup.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	startup.CompleteStep(handlers.StepMigrations)
	logger.Info("Migrations completed successfully")

	// Initialize repositories
	startup.SetCurrentStep(handlers.StepServices)
	userRepo := repository.NewUserRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	resultRepo := repository.NewResultRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, service.EmailConfig{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
		AdminEmail: cfg.AdminEmail,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize email service")
	}

	scorer, err := newScorer(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize speech scorer")
	}
	logger.WithField("backend", cfg.ScorerBackend).Info("Speech scorer ready")

	codec := security.NewTokenCodec(cfg.SessionSecret)
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(10, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)

	authService := service.NewAuthService(userRepo, codec, emailService, cfg.SessionDuration, logger)
	lessonService := service.NewLessonService(lessonRepo, logger)
	evaluator := speaking.NewEvaluator(scorer, cfg.CollaboratorTimeout, logger)
	testingService := service.NewTestingService(evaluator, resultRepo, nil, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, emailService, logger)
	dashboardService := service.NewDashboardService(userRepo, lessonRepo, resultRepo, feedbackRepo)
	adminService := service.NewAdminService(userRepo, resultRepo, logger)
	startup.CompleteStep(handlers.StepServices)

	// Seed default lessons
	startup.SetCurrentStep(handlers.StepLessons)
	if err := lessonService.SeedDefaults(); err != nil {
		logger.WithError(err).Warn("Failed to seed default lessons")
	}
	startup.CompleteStep(handlers.StepLessons)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			AuthParams:  map[string]string{"prompt": "select_account"},
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}
	var configured []string
	for key, p := range oauthProviders {
		if p.Config.ClientID != "" && p.Config.ClientSecret != "" {
			configured = append(configured, key)
		}
	}

	// Initialize handlers
	sessions := handlers.NewSessions(authService, codec, logger)
	routes := handlers.Routes{
		Middleware: handlers.NewMiddleware(sessions, authService, csrf, limiter, guard.DefaultTable, logger),
		Startup:    startup,
		Auth:       handlers.NewAuthHandler(authService, sessions, csrf, oauthProviders, cfg.OAuthRedirectBaseURL, logger),
		Pages:      handlers.NewPageHandler(dashboardService, configured),
		Lessons:    handlers.NewLessonHandler(lessonService),
		Speaking:   handlers.NewSpeakingHandler(evaluator, testingService, cfg.UploadMaxSize),
		Feedback:   handlers.NewFeedbackHandler(feedbackService),
		Admin:      handlers.NewAdminHandler(adminService, lessonService, feedbackService),
	}
	app.Store(routes.Handler())
	startup.MarkReady()
	logger.Info("Server ready")

	// Start background cleanup
	go cleanup(ctx, authService, testingService, logger)

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.StandardLogger()
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	if cfg.DebugLogging {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

func newScorer(ctx context.Context, cfg *config.Config) (speaking.Scorer, error) {
	switch cfg.ScorerBackend {
	case "gemini":
		scorer, err := speaking.NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return scorer, nil
	case "http":
		return speaking.NewHTTPScorer(cfg.SpeechServiceURL, &http.Client{Timeout: cfg.CollaboratorTimeout}), nil
	case "random", "":
		return speaking.NewRandomScorer(time.Now().UnixNano()), nil
	default:
		return nil, errors.New("unknown SCORER_BACKEND " + cfg.ScorerBackend)
	}
}

// cleanup periodically removes expired sessions and abandoned speaking tests
func cleanup(ctx context.Context, authService *service.AuthService, testingService *service.TestingService, logger logrus.FieldLogger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n, err := authService.CleanupExpiredSessions(); err != nil {
				logger.WithError(err).Error("Error cleaning up expired sessions")
			} else {
				logger.WithField("removed", n).Info("Expired sessions cleaned up")
			}

			pruned := testingService.Prune(now.Add(-2 * time.Hour))
			logger.WithField("removed", pruned).Debug("Abandoned speaking tests pruned")
		}
	}
}
