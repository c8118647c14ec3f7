// Package maintenance runs the dedup cleanup sweep on a cron schedule,
// independently of the poll cycle.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep once an hour.
const DefaultSchedule = "@hourly"

// Sweeper removes expired dedup records. notifications.Engine satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Config controls the sweep schedule.
type Config struct {
	Schedule string // standard cron spec or descriptor, e.g. "@hourly"
	OnStart  bool   // also sweep once immediately
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Schedule: DefaultSchedule, OnStart: true}
}

// Start schedules the sweep and blocks until ctx is cancelled. It returns an
// error only for an invalid schedule. Intended to be called with `go`.
func Start(ctx context.Context, sweeper Sweeper, cfg Config, logger *slog.Logger) error {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("parse sweep schedule %q: %w", cfg.Schedule, err)
	}

	c := cron.New(
		cron.WithLogger(cronLogger{logger}),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	c.Schedule(schedule, cron.FuncJob(func() {
		_, _ = RunSweep(ctx, sweeper, time.Now(), logger)
	}))

	if cfg.OnStart {
		_, _ = RunSweep(ctx, sweeper, time.Now(), logger)
	}

	c.Start()
	logger.Info("Dedup sweep scheduled", "schedule", cfg.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Dedup sweep stopped")
	return nil
}

// RunSweep performs one sweep and logs the outcome.
func RunSweep(ctx context.Context, sweeper Sweeper, now time.Time, logger *slog.Logger) (int, error) {
	start := time.Now()
	removed, err := sweeper.Sweep(ctx, now)
	dur := time.Since(start).Round(time.Millisecond)

	if err != nil {
		logger.Warn("Sweep: failed to purge dedup records", "duration", dur, "error", err)
		return removed, err
	}
	if removed > 0 {
		logger.Info("Sweep: purged expired dedup records", "count", removed, "duration", dur)
	} else {
		logger.Debug("Sweep: nothing to purge", "duration", dur)
	}
	return removed, nil
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
