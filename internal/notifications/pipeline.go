package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/matchwatch/internal/dedup"
	"github.com/albapepper/matchwatch/internal/match"
	"github.com/albapepper/matchwatch/internal/metrics"
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Windows   Windows
	Retention time.Duration
	Display   Display
	Metrics   *metrics.Metrics
}

// Engine evaluates milestones and emits deduplicated notifications.
type Engine struct {
	store     dedup.Store
	sender    Sender
	windows   Windows
	retention time.Duration
	display   Display
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine creates an Engine that exclusively owns store. A nil sender
// logs notifications instead of displaying them.
func NewEngine(store dedup.Store, sender Sender, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Engine{
		store:     store,
		sender:    sender,
		windows:   opts.Windows,
		retention: opts.Retention,
		display:   opts.Display.withDefaults(),
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// Evaluate returns the due (milestone, match) pairs for now, in input order.
// It has no side effects.
func (e *Engine) Evaluate(records []match.Record, now time.Time) []Due {
	var due []Due
	for _, r := range records {
		m, ok := e.windows.Detect(r, now)
		if !ok {
			continue
		}
		due = append(due, Due{Milestone: m, Match: r, Key: NewKey(m, r)})
	}
	return due
}

// Run evaluates records at now and emits every due notification that has
// not been sent before. Failures are scoped to the single emission and
// never abort the run.
func (e *Engine) Run(ctx context.Context, records []match.Record, now time.Time) Report {
	due := e.Evaluate(records, now)
	report := Report{Evaluated: len(records), Due: len(due)}

	for _, d := range due {
		switch e.emit(ctx, d, now) {
		case outcomeSent:
			report.Sent++
		case outcomeDuplicate:
			report.Duplicates++
		case outcomeStoreError:
			report.StoreErrors++
		case outcomeSendError:
			report.SendErrors++
		}
	}

	if report.Due > 0 {
		e.logger.Info("Notification run complete",
			"evaluated", report.Evaluated, "due", report.Due,
			"sent", report.Sent, "duplicates", report.Duplicates,
			"store_errors", report.StoreErrors, "send_errors", report.SendErrors)
	}
	return report
}

// Sweep removes dedup records older than the retention window.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-e.retention)
	removed, err := e.store.Sweep(ctx, cutoff)
	if err != nil {
		e.metrics.SweepFailed()
		return removed, fmt.Errorf("sweep dedup records before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	e.metrics.Swept(removed)
	return removed, nil
}

// Retention returns how long dedup records are kept.
func (e *Engine) Retention() time.Duration {
	return e.retention
}
