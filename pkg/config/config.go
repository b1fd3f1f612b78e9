package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all static application configuration. Tunable runtime
// settings (thresholds, sizing, scan times) live in Settings and are
// merged with database overrides at runtime.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string
	Timezone string

	// Venue API
	VenueAPIURL         string
	VenueAPIKeyID       string
	VenuePrivateKeyPath string
	VenuePrivateKeyPEM  string
	VenueEmail          string
	VenuePassword       string

	// Anthropic API
	AnthropicAPIURL string
	AnthropicAPIKey string
	EstimateModel   string
	ScreenModel     string
	PremiumModel    string

	// Scheduler intervals (full scans run at Settings.ScanTimes)
	ResolutionCheckInterval time.Duration
	TradeSyncInterval       time.Duration
	PriceRefreshInterval    time.Duration
	DigestHour              int

	// Notifications
	EmailAPIURL     string
	EmailAPIKey     string
	EmailFrom       string
	EmailTo         string
	SlackWebhookURL string

	// Storage
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		Timezone: getEnvOrDefault("TIMEZONE", "America/New_York"),

		// Venue API defaults
		VenueAPIURL:         getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		VenueAPIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		VenuePrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),
		VenuePrivateKeyPEM:  os.Getenv("KALSHI_PRIVATE_KEY"),
		VenueEmail:          os.Getenv("KALSHI_EMAIL"),
		VenuePassword:       os.Getenv("KALSHI_PASSWORD"),

		// Anthropic defaults
		AnthropicAPIURL: getEnvOrDefault("ANTHROPIC_API_URL", "https://api.anthropic.com"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		EstimateModel:   getEnvOrDefault("ESTIMATE_MODEL", "claude-sonnet-4-20250514"),
		ScreenModel:     getEnvOrDefault("SCREEN_MODEL", "claude-3-5-haiku-20241022"),
		PremiumModel:    getEnvOrDefault("PREMIUM_MODEL", "claude-opus-4-20250514"),

		// Scheduler defaults
		ResolutionCheckInterval: getDurationOrDefault("RESOLUTION_CHECK_INTERVAL", 1*time.Hour),
		TradeSyncInterval:       getDurationOrDefault("TRADE_SYNC_INTERVAL", 30*time.Minute),
		PriceRefreshInterval:    getDurationOrDefault("PRICE_REFRESH_INTERVAL", 6*time.Hour),
		DigestHour:              getIntOrDefault("DIGEST_HOUR", 18),

		// Notification defaults
		EmailAPIURL:     getEnvOrDefault("EMAIL_API_URL", "https://api.resend.com/emails"),
		EmailAPIKey:     os.Getenv("EMAIL_API_KEY"),
		EmailFrom:       getEnvOrDefault("EMAIL_FROM", "edge-bot@localhost"),
		EmailTo:         os.Getenv("EMAIL_TO"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		// Storage defaults
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "edgebot"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "edgebot123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "kalshi_edge"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.VenueAPIURL == "" {
		return fmt.Errorf("KALSHI_API_URL cannot be empty")
	}

	if c.AnthropicAPIURL == "" {
		return fmt.Errorf("ANTHROPIC_API_URL cannot be empty")
	}

	if c.DigestHour < 0 || c.DigestHour > 23 {
		return fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", c.DigestHour)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// HasVenueAuth reports whether any venue credential set is configured.
func (c *Config) HasVenueAuth() bool {
	keyAuth := c.VenueAPIKeyID != "" && (c.VenuePrivateKeyPath != "" || c.VenuePrivateKeyPEM != "")
	loginAuth := c.VenueEmail != "" && c.VenuePassword != ""

	return keyAuth || loginAuth
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
