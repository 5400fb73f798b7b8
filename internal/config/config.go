package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/keisuke70/tasklazy/internal/scheduling"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	EnableHSTS       bool
	OIDCIssuer       string
	OIDCJWKSURL      string
	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string

	GoogleCalendarID      string
	GoogleCredentialsFile string
	GoogleTokenFile       string

	ScheduleConfigPath string
	Schedule           scheduling.Options
}

// Load loads configuration from environment variables and the optional
// schedule file
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL:      getEnv("OIDC_JWKS_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RateLimit:        getEnv("RATE_LIMIT", "20-S"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleTokenFile:       getEnv("GOOGLE_TOKEN_FILE", ""),

		ScheduleConfigPath: getEnv("SCHEDULE_CONFIG_PATH", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	schedule, err := LoadSchedule(cfg.ScheduleConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Schedule = schedule

	return cfg, nil
}

// RequireQueue reports an error when no message broker is configured
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for task parsing jobs")
	}
	return nil
}

// RequireAuth reports an error when token verification is not configured.
// OIDC_JWKS_URL is optional and derived from the issuer when empty.
func (c *Config) RequireAuth() error {
	if c.OIDCIssuer == "" {
		return fmt.Errorf("OIDC_ISSUER is required")
	}
	return nil
}

// CalendarEnabled reports whether fixed events should be read from Google Calendar
func (c *Config) CalendarEnabled() bool {
	return c.GoogleCalendarID != "" && c.GoogleCredentialsFile != "" && c.GoogleTokenFile != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
