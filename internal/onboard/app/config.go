package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AuthSecret string // Required: HMAC secret for verifying access tokens
	AuthIssuer string // Optional: expected issuer claim (default: shiftlane)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./onboard.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expiry sweep interval (default: 1h)

	// SMTP settings are optional; when Host is empty no invitation
	// emails are sent and codes have to be shared out of band.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	JoinBaseURL  string // Public URL invitation links hang off (default: http://localhost:8080/join)
}

func LoadConfig() Config {
	return Config{
		AuthSecret:           os.Getenv("AUTH_SECRET"),
		AuthIssuer:           getEnvOrDefault("AUTH_ISSUER", "shiftlane"),
		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "onboard.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:         os.Getenv("SMTP_USERNAME"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:             getEnvOrDefault("SMTP_FROM", "noreply@shiftlane.dev"),
		JoinBaseURL:          getEnvOrDefault("JOIN_BASE_URL", "http://localhost:8080/join"),
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
