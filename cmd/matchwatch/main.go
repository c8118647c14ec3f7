// Command matchwatch polls the match schedule feed, streams it to connected
// views and sends milestone notifications.
//
// Usage:
//
//	matchwatch
//	MATCH_FEED_URL=https://feed.example.com/matches API_PORT=8080 matchwatch

// @title Matchwatch API
// @version 1.0.0
// @description Match schedule poller and milestone notification service.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Matchwatch
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/matchwatch/internal/api"
	"github.com/albapepper/matchwatch/internal/app"
	"github.com/albapepper/matchwatch/internal/broadcast"
	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/listener"
	"github.com/albapepper/matchwatch/internal/maintenance"
	"github.com/albapepper/matchwatch/internal/metrics"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"

	_ "github.com/albapepper/matchwatch/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = app.NewLogger(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	// Dedup store
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open dedup store", "backend", cfg.DedupBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Notification surfaces: connected views, plus Telegram when configured
	hub := broadcast.NewHub(cfg.CORSAllowOrigins, m, logger)
	senders := []notifications.Sender{hub}
	if tg := app.NewTelegram(cfg, logger); tg != nil {
		senders = append(senders, tg)
	}
	sender := notifications.NewMultiSender(logger, senders...)
	logger.Info("Notification senders configured", "count", sender.Len())

	engine := app.NewEngine(cfg, store, sender, m, logger)
	p := poller.New(app.NewClient(cfg, logger), hub, engine, logger,
		poller.WithInterval(cfg.PollInterval),
		poller.WithMetrics(m))

	hub.OnControl(func(reqCtx context.Context, msgType string) error {
		switch msgType {
		case broadcast.TypeStartScheduler:
			if err := p.Start(ctx); err != nil && !errors.Is(err, poller.ErrAlreadyRunning) {
				return err
			}
		case broadcast.TypeStopScheduler:
			p.Stop()
		case broadcast.TypeSync:
			_, err := p.Trigger(reqCtx)
			return err
		}
		return nil
	})

	if cfg.AutoStartPoller {
		if err := p.Start(ctx); err != nil {
			logger.Error("Failed to start poller", "error", err)
		}
	} else {
		logger.Info("Poller not started (AUTO_START_POLLER=false)")
	}

	// Dedup cleanup on its own schedule
	go func() {
		sweepCfg := maintenance.Config{Schedule: cfg.SweepSchedule, OnStart: true}
		if err := maintenance.Start(ctx, engine, sweepCfg, logger); err != nil {
			logger.Error("Dedup sweep not scheduled", "error", err)
		}
	}()

	// Start LISTEN/NOTIFY consumer for upstream schedule changes
	var pinger interface {
		HealthCheck(context.Context) error
	}
	if store.Pool != nil {
		pinger = store.Pool
		go listener.Start(ctx, cfg.DatabaseURL, cfg.SyncChannel, func(ctx context.Context) error {
			_, err := p.Trigger(ctx)
			return err
		}, logger)
	}

	// Create router
	router := api.NewRouter(cfg, api.Deps{
		Context:   ctx,
		Scheduler: p,
		Pusher:    engine,
		DB:        pinger,
		Views:     hub,
		Metrics:   m,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Matchwatch",
			"addr", addr,
			"environment", cfg.Environment,
			"feed", cfg.MatchFeedURL,
			"dedup", cfg.DedupBackend,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	p.Stop()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
