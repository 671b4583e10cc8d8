package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BaseURL      string // External URL prefix used in mailed confirmation links
	DatabaseFile string // Path to SQLite database file (default: ./scratchlog.db)

	SessionSecret string        // Required in prod: HMAC secret for session tokens
	SessionTTL    time.Duration // Session token lifetime (default: 12h)

	MaxLoginAttempts int // Failed logins before deactivation (default: 3)

	// Per-type token horizons.
	RegisterTokenTTL              time.Duration // default: 24h
	ForgotPasswordTokenTTL        time.Duration // default: 1h
	ChangeEmailTokenTTL           time.Duration // default: 1h
	DeactivatedTokenTTL           time.Duration // grace period after login failures (default: 7 days)
	InactivityDeactivatedTokenTTL time.Duration // grace period after inactivity sweep (default: 7 days)

	// Inactivity windows.
	ParticipantInactiveAfter time.Duration // default: 30 days
	ExperimentInactiveAfter  time.Duration // default: 90 days
	CourseInactiveAfter      time.Duration // default: 180 days

	// Sweep cadences.
	TokenSweepInterval      time.Duration // default: 10m
	InactivitySweepInterval time.Duration // default: 24h

	// Mail delivery.
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	MailFrom       string
	MailMaxRetries int           // Send attempts per token (default: 3)
	MailTimeout    time.Duration // Per-attempt timeout (default: 10s)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		BaseURL:      getEnvOrDefault("SCRATCHLOG_BASE_URL", "http://localhost:8080"),
		DatabaseFile: getEnvOrDefault("SCRATCHLOG_DATABASE_FILE", "scratchlog.db"),

		SessionSecret: os.Getenv("SCRATCHLOG_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("SCRATCHLOG_SESSION_TTL", 12*time.Hour),

		MaxLoginAttempts: getEnvIntOrDefault("SCRATCHLOG_MAX_LOGIN_ATTEMPTS", 3),

		RegisterTokenTTL:              getEnvDurationOrDefault("SCRATCHLOG_REGISTER_TOKEN_TTL", 24*time.Hour),
		ForgotPasswordTokenTTL:        getEnvDurationOrDefault("SCRATCHLOG_FORGOT_PASSWORD_TOKEN_TTL", time.Hour),
		ChangeEmailTokenTTL:           getEnvDurationOrDefault("SCRATCHLOG_CHANGE_EMAIL_TOKEN_TTL", time.Hour),
		DeactivatedTokenTTL:           getEnvDurationOrDefault("SCRATCHLOG_DEACTIVATED_TOKEN_TTL", 7*24*time.Hour),
		InactivityDeactivatedTokenTTL: getEnvDurationOrDefault("SCRATCHLOG_INACTIVITY_DEACTIVATED_TOKEN_TTL", 7*24*time.Hour),

		ParticipantInactiveAfter: getEnvDurationOrDefault("SCRATCHLOG_PARTICIPANT_INACTIVE_AFTER", 30*24*time.Hour),
		ExperimentInactiveAfter:  getEnvDurationOrDefault("SCRATCHLOG_EXPERIMENT_INACTIVE_AFTER", 90*24*time.Hour),
		CourseInactiveAfter:      getEnvDurationOrDefault("SCRATCHLOG_COURSE_INACTIVE_AFTER", 180*24*time.Hour),

		TokenSweepInterval:      getEnvDurationOrDefault("SCRATCHLOG_TOKEN_SWEEP_INTERVAL", 10*time.Minute),
		InactivitySweepInterval: getEnvDurationOrDefault("SCRATCHLOG_INACTIVITY_SWEEP_INTERVAL", 24*time.Hour),

		SMTPHost:       getEnvOrDefault("SCRATCHLOG_SMTP_HOST", "localhost"),
		SMTPPort:       getEnvIntOrDefault("SCRATCHLOG_SMTP_PORT", 587),
		SMTPUsername:   os.Getenv("SCRATCHLOG_SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SCRATCHLOG_SMTP_PASSWORD"),
		MailFrom:       getEnvOrDefault("SCRATCHLOG_MAIL_FROM", "scratchlog@localhost"),
		MailMaxRetries: getEnvIntOrDefault("SCRATCHLOG_MAIL_MAX_RETRIES", 3),
		MailTimeout:    getEnvDurationOrDefault("SCRATCHLOG_MAIL_TIMEOUT", 10*time.Second),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
