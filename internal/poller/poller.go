package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/matchwatch/internal/match"
	"github.com/albapepper/matchwatch/internal/metrics"
	"github.com/albapepper/matchwatch/internal/notifications"
)

const defaultInterval = 60 * time.Second

// ErrAlreadyRunning is returned by Start when the loop is already active.
var ErrAlreadyRunning = errors.New("poller already running")

// Source fetches the current match list.
type Source interface {
	FetchMatches(ctx context.Context) (*match.Batch, error)
}

// Broadcaster delivers the match list to open application views.
type Broadcaster interface {
	BroadcastMatches(matches []json.RawMessage)
}

// Evaluator runs the notification engine over a match list.
type Evaluator interface {
	Run(ctx context.Context, records []match.Record, now time.Time) notifications.Report
}

// Snapshot is the last successfully fetched match list.
type Snapshot struct {
	Matches   []json.RawMessage `json:"matches"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	Matches       int                  `json:"matches"`
	Skipped       int                  `json:"skipped"`
	Notifications notifications.Report `json:"notifications"`
	Duration      time.Duration        `json:"duration_ns"`
}

// Status describes the scheduler state.
type Status struct {
	Running   bool      `json:"running"`
	Interval  string    `json:"interval"`
	LastFetch time.Time `json:"last_fetch,omitempty"`
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMetrics attaches metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// Poller owns the polling timer. Cycles are serialized, so a manual trigger
// never overlaps a scheduled cycle.
type Poller struct {
	source   Source
	hub      Broadcaster
	engine   Evaluator
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger

	cycleMu sync.Mutex

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	latest *Snapshot
}

// New creates a stopped Poller. hub may be nil when no views exist.
func New(source Source, hub Broadcaster, engine Evaluator, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		source:   source,
		hub:      hub,
		engine:   engine,
		interval: defaultInterval,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs one cycle immediately and then one per interval until Stop is
// called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return ErrAlreadyRunning
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(ctx, p.stop, p.done)

	p.logger.Info("Match poller started", "interval", p.interval)
	return nil
}

// Stop cancels the timer and waits for the loop to exit. A cycle already in
// flight is allowed to finish. The dedup store is not touched.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stop == nil {
		p.mu.Unlock()
		return
	}
	close(p.stop)
	done := p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	<-done
	p.logger.Info("Match poller stopped")
}

// Running reports whether the timer loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Status returns the scheduler state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Running: p.stop != nil, Interval: p.interval.String()}
	if p.latest != nil {
		s.LastFetch = p.latest.FetchedAt
	}
	return s
}

// Latest returns the last successful snapshot, if any.
func (p *Poller) Latest() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return Snapshot{}, false
	}
	return *p.latest, true
}

// Trigger runs a cycle on demand, e.g. for a sync signal.
func (p *Poller) Trigger(ctx context.Context) (CycleReport, error) {
	return p.PollOnce(ctx)
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_, _ = p.PollOnce(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = p.PollOnce(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			p.mu.Lock()
			if p.done == done {
				p.stop, p.done = nil, nil
			}
			p.mu.Unlock()
			return
		}
	}
}

// PollOnce fetches the feed, broadcasts it, and runs the engine. A fetch
// failure skips the cycle entirely: no broadcast, no evaluation.
func (p *Poller) PollOnce(ctx context.Context) (CycleReport, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := time.Now()
	batch, err := p.source.FetchMatches(ctx)
	if err != nil {
		p.metrics.ObservePoll(metrics.ResultFetchError, time.Since(start))
		p.logger.Error("Match fetch failed, skipping cycle", "error", err)
		return CycleReport{}, err
	}

	for _, skipErr := range batch.Skipped {
		p.logger.Warn("Skipping match record", "error", skipErr)
	}
	p.metrics.RecordsSkipped(len(batch.Skipped))
	p.metrics.MatchesFetched(len(batch.Raw))

	now := p.now()
	p.mu.Lock()
	p.latest = &Snapshot{Matches: batch.Raw, FetchedAt: now}
	p.mu.Unlock()

	if p.hub != nil {
		p.hub.BroadcastMatches(batch.Raw)
	}

	report := CycleReport{
		Matches:       len(batch.Raw),
		Skipped:       len(batch.Skipped),
		Notifications: p.engine.Run(ctx, batch.Records, now),
	}
	report.Duration = time.Since(start)
	p.metrics.ObservePoll(metrics.ResultOK, report.Duration)
	return report, nil
}
