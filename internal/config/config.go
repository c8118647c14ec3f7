// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/matchwatch and cmd/matchctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// --------------------------------------------------------------------------
// Dedup backends
// --------------------------------------------------------------------------

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// --------------------------------------------------------------------------
// Config struct: populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Match feed
	MatchFeedURL          string
	PollInterval          time.Duration
	FeedRequestsPerMinute int
	FeedTimeout           time.Duration
	AutoStartPoller       bool
	DefaultMatchDuration  time.Duration
	MatchTimezone         *time.Location
	LiveWindowAfter       time.Duration

	// Dedup store
	DedupBackend   string
	DedupRetention time.Duration
	SweepSchedule  string

	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	SyncChannel    string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Notification display
	NotificationIcon string
	NotificationURL  string

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	feedURL := envOr("MATCH_FEED_URL", "")
	if feedURL == "" {
		return nil, fmt.Errorf("MATCH_FEED_URL must be set")
	}

	tzName := envOr("MATCH_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("MATCH_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		MatchFeedURL:          feedURL,
		PollInterval:          time.Duration(envInt("POLL_INTERVAL_SECONDS", 60)) * time.Second,
		FeedRequestsPerMinute: envInt("FEED_REQUESTS_PER_MINUTE", 30),
		FeedTimeout:           time.Duration(envInt("FEED_TIMEOUT_SECONDS", 30)) * time.Second,
		AutoStartPoller:       envBool("AUTO_START_POLLER", true),
		DefaultMatchDuration:  time.Duration(envInt("DEFAULT_MATCH_DURATION_MINUTES", 360)) * time.Minute,
		MatchTimezone:         loc,
		LiveWindowAfter:       time.Duration(envInt("LIVE_WINDOW_AFTER_SECONDS", 0)) * time.Second,

		DedupBackend:   strings.ToLower(envOr("DEDUP_BACKEND", BackendPostgres)),
		DedupRetention: time.Duration(envInt("DEDUP_RETENTION_HOURS", 24)) * time.Hour,
		SweepSchedule:  envOr("SWEEP_SCHEDULE", "@hourly"),

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		SyncChannel:    envOr("SYNC_CHANNEL", "match_sync"),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		TelegramBotToken: envOr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   envInt64("TELEGRAM_CHAT_ID", 0),

		NotificationIcon: envOr("NOTIFICATION_ICON", "/icon-192.png"),
		NotificationURL:  envOr("NOTIFICATION_URL", "/"),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DedupBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when DEDUP_BACKEND=postgres")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when DEDUP_BACKEND=redis")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DEDUP_BACKEND %q (want postgres, redis or memory)", c.DedupBackend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.DedupRetention <= 0 {
		return fmt.Errorf("DEDUP_RETENTION_HOURS must be positive")
	}
	if c.DefaultMatchDuration <= 0 {
		return fmt.Errorf("DEFAULT_MATCH_DURATION_MINUTES must be positive")
	}
	if c.LiveWindowAfter < 0 || c.LiveWindowAfter >= 4*time.Minute {
		return fmt.Errorf("LIVE_WINDOW_AFTER_SECONDS must be in [0, 240)")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", c.SweepSchedule, err)
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TelegramEnabled reports whether both bot token and chat are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
