package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	SessionSecret   string
	CSRFSecret      string
	UploadMaxSize   int64

	LogLevel  string
	LogFormat string

	// Speech analysis
	ScorerBackend       string // random, gemini, http
	GeminiAPIKey        string
	GeminiModel         string
	SpeechServiceURL    string
	CollaboratorTimeout time.Duration

	// OAuth
	OAuthRedirectBaseURL string
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string

	// Email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	AdminEmail   string
	DebugLogging bool
}

// Load reads configuration from environment variables and an optional .env
// file, falling back to sensible defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		ServerPort:      v.GetString("PORT"),
		DatabaseType:    v.GetString("DB_TYPE"),
		DatabasePath:    v.GetString("DB_PATH"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		SessionDuration: v.GetDuration("SESSION_DURATION"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		CSRFSecret:      v.GetString("CSRF_SECRET"),
		UploadMaxSize:   v.GetInt64("UPLOAD_MAX_SIZE"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		ScorerBackend:       strings.ToLower(v.GetString("SCORER_BACKEND")),
		GeminiAPIKey:        v.GetString("GEMINI_API_KEY"),
		GeminiModel:         v.GetString("GEMINI_MODEL"),
		SpeechServiceURL:    v.GetString("SPEECH_SERVICE_URL"),
		CollaboratorTimeout: v.GetDuration("COLLABORATOR_TIMEOUT"),

		OAuthRedirectBaseURL: v.GetString("OAUTH_REDIRECT_BASE_URL"),
		GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
		FacebookClientID:     v.GetString("FACEBOOK_CLIENT_ID"),
		FacebookClientSecret: v.GetString("FACEBOOK_CLIENT_SECRET"),

		AWSRegion:    v.GetString("AWS_REGION"),
		SESFromEmail: v.GetString("SES_FROM_EMAIL"),
		SESFromName:  v.GetString("SES_FROM_NAME"),
		AppBaseURL:   v.GetString("APP_BASE_URL"),
		AdminEmail:   v.GetString("ADMIN_EMAIL"),
		DebugLogging: v.GetBool("DEBUG"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./speakwell.db")
	v.SetDefault("SESSION_DURATION", 24*time.Hour)
	v.SetDefault("SESSION_SECRET", "change-me-session-secret")
	v.SetDefault("CSRF_SECRET", "change-me-csrf-secret")
	v.SetDefault("UPLOAD_MAX_SIZE", 5*1024*1024) // 5MB

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("SCORER_BACKEND", "random")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("SPEECH_SERVICE_URL", "http://localhost:5000")
	v.SetDefault("COLLABORATOR_TIMEOUT", 10*time.Second)

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_NAME", "Speakwell")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
}
