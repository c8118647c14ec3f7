// Package app builds the components shared by cmd/matchwatch and
// cmd/matchctl from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/db"
	"github.com/albapepper/matchwatch/internal/dedup"
	"github.com/albapepper/matchwatch/internal/match"
	"github.com/albapepper/matchwatch/internal/metrics"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"
)

// NewLogger returns a text logger at the named level, or a JSON logger in
// production. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string, production bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Store is an opened dedup store plus the resources behind it.
type Store struct {
	dedup.Store
	// Pool is set only for the Postgres backend.
	Pool  *db.Pool
	close func()
}

// Close releases the backend connection.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore connects the configured dedup backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.DedupBackend {
	case config.BackendPostgres:
		logger.Info("Connecting to database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
		return &Store{Store: dedup.NewPostgres(pool), Pool: pool, close: pool.Close}, nil

	case config.BackendRedis:
		rdb, err := dedup.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		logger.Info("Redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return &Store{Store: dedup.NewRedis(rdb, cfg.DedupRetention), close: func() { _ = rdb.Close() }}, nil

	case config.BackendMemory:
		logger.Warn("Using in-memory dedup store; sent notifications are forgotten on restart")
		return &Store{Store: dedup.NewMemory()}, nil
	}
	return nil, fmt.Errorf("unknown dedup backend %q", cfg.DedupBackend)
}

// NewTelegram returns the Telegram sender when configured, nil otherwise.
// A bad token is logged and treated as not configured.
func NewTelegram(cfg *config.Config, logger *slog.Logger) notifications.Sender {
	if !cfg.TelegramEnabled() {
		return nil
	}
	tg, err := notifications.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Error("Telegram sender disabled", "error", err)
		return nil
	}
	return tg
}

// NewEngine builds the notification engine from config.
func NewEngine(cfg *config.Config, store dedup.Store, sender notifications.Sender, m *metrics.Metrics, logger *slog.Logger) *notifications.Engine {
	return notifications.NewEngine(store, sender, notifications.Options{
		Windows:   notifications.Windows{LiveAfter: cfg.LiveWindowAfter},
		Retention: cfg.DedupRetention,
		Display:   notifications.Display{Icon: cfg.NotificationIcon, URL: cfg.NotificationURL},
		Metrics:   m,
	}, logger)
}

// NewParser builds the feed record parser from config.
func NewParser(cfg *config.Config) *match.Parser {
	return match.NewParser(cfg.MatchTimezone, cfg.DefaultMatchDuration)
}

// NewClient builds the feed client from config.
func NewClient(cfg *config.Config, logger *slog.Logger) *poller.Client {
	return poller.NewClient(cfg.MatchFeedURL, cfg.FeedRequestsPerMinute, cfg.FeedTimeout, NewParser(cfg), logger)
}
