package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	// Google Calendar access for provider agendas.
	GoogleCredentialsFile string
	DefaultCalendarID     string
	ClinicTimezone        string

	// Folio numbering.
	FolioPrefix string

	// Emergency admission lockout (redis-backed).
	RedisAddr          string
	RedisPassword      string
	LockoutEnabled     bool
	LockoutMaxAttempts int
	LockoutWindow      time.Duration

	// HTTP rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Reconciler for orphaned calendar events.
	ReconcileInterval time.Duration
	IntentStaleAfter  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		DefaultCalendarID:     getEnv("DEFAULT_CALENDAR_ID", "primary"),
		ClinicTimezone:        getEnv("CLINIC_TIMEZONE", "America/Mexico_City"),

		FolioPrefix: getEnv("FOLIO_PREFIX", "ATU"),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		LockoutEnabled:     getEnvAsBool("LOCKOUT_ENABLED", false),
		LockoutMaxAttempts: getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 10),
		LockoutWindow:      getEnvAsDuration("LOCKOUT_WINDOW", time.Hour),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Minute),
		IntentStaleAfter:  getEnvAsDuration("INTENT_STALE_AFTER", 15*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
