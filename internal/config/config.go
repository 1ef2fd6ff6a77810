// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/server and cmd/sullaectl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	MeetingsTable      = "meetings"
	GamesTable         = "games"
	UsersTable         = "users"
	NotificationsTable = "notifications"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Webhook sink (n8n). Empty URL disables all webhook dispatch.
	WebhookBaseURL string
	WebhookTimeout time.Duration

	// Push sink (FCM). Empty credentials file disables push dispatch.
	FirebaseCredentialsFile string

	// Reminder scanner. The window width always equals the scan period;
	// both derive from ReminderScanPeriod so they cannot drift apart.
	ReminderScanPeriod time.Duration
	ReminderLead       time.Duration

	// Daily rollup
	DailyStatsHour int // local hour, 0-23
	Timezone       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("SULLAE_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SULLAE_DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		WebhookBaseURL: envOr("N8N_WEBHOOK_URL", ""),
		WebhookTimeout: time.Duration(envInt("WEBHOOK_TIMEOUT_SECONDS", 15)) * time.Second,

		FirebaseCredentialsFile: envOr("FIREBASE_CREDENTIALS_FILE", ""),

		ReminderScanPeriod: time.Duration(envInt("REMINDER_SCAN_MINUTES", 5)) * time.Minute,
		ReminderLead:       time.Duration(envInt("REMINDER_LEAD_MINUTES", 25)) * time.Minute,

		DailyStatsHour: envInt("DAILY_STATS_HOUR", 23),
		Timezone:       envOr("TIMEZONE", "Asia/Seoul"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations that would break the scanner's
// exactly-one-run coverage or the rollup schedule.
func (c *Config) validate() error {
	if c.ReminderScanPeriod <= 0 {
		return fmt.Errorf("REMINDER_SCAN_MINUTES must be positive, got %s", c.ReminderScanPeriod)
	}
	if c.ReminderLead < 0 {
		return fmt.Errorf("REMINDER_LEAD_MINUTES must not be negative, got %s", c.ReminderLead)
	}
	if c.DailyStatsHour < 0 || c.DailyStatsHour > 23 {
		return fmt.Errorf("DAILY_STATS_HOUR must be in [0, 23], got %d", c.DailyStatsHour)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
