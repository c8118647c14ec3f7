// Package metrics provides Prometheus metrics for the match notification service.
//
// Every method is nil-safe so components can be built without metrics in
// tests and one-shot CLI runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "matchwatch"

	ResultOK         = "ok"
	ResultFetchError = "fetch_error"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	pollCycles     *prometheus.CounterVec
	pollDuration   prometheus.Histogram
	matchesFetched prometheus.Gauge
	recordsSkipped prometheus.Counter

	notifications *prometheus.CounterVec

	dedupSwept  prometheus.Counter
	sweepErrors prometheus.Counter

	viewsConnected prometheus.Gauge
}

// Option applies a configuration option to Metrics.
type Option func(*Metrics)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Metrics) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// New creates and registers all collectors on a private registry.
func New(opts ...Option) *Metrics {
	m := &Metrics{namespace: defaultNamespace}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	f := promauto.With(m.registry)

	m.pollCycles = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Poll cycles by result.",
	}, []string{"result"})
	m.pollDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full poll cycle.",
		Buckets:   prometheus.DefBuckets,
	})
	m.matchesFetched = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "matches",
		Help:      "Matches in the last successful fetch.",
	})
	m.recordsSkipped = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "poller",
		Name:      "records_skipped_total",
		Help:      "Match records skipped because they could not be parsed.",
	})
	m.notifications = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "engine",
		Name:      "notifications_total",
		Help:      "Due notifications by milestone and outcome.",
	}, []string{"milestone", "outcome"})
	m.dedupSwept = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "dedup",
		Name:      "swept_total",
		Help:      "Dedup records removed by the cleanup sweep.",
	})
	m.sweepErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "dedup",
		Name:      "sweep_errors_total",
		Help:      "Cleanup sweeps that failed.",
	})
	m.viewsConnected = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "broadcast",
		Name:      "views",
		Help:      "Connected application views.",
	})

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePoll records a finished poll cycle.
func (m *Metrics) ObservePoll(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(result).Inc()
	m.pollDuration.Observe(d.Seconds())
}

// MatchesFetched sets the size of the latest match list.
func (m *Metrics) MatchesFetched(n int) {
	if m == nil {
		return
	}
	m.matchesFetched.Set(float64(n))
}

// RecordsSkipped counts unparseable match records.
func (m *Metrics) RecordsSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsSkipped.Add(float64(n))
}

// Notification counts one due notification with its outcome.
func (m *Metrics) Notification(milestone, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(milestone, outcome).Inc()
}

// Swept counts records removed by a sweep.
func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dedupSwept.Add(float64(n))
}

// SweepFailed counts a failed sweep.
func (m *Metrics) SweepFailed() {
	if m == nil {
		return
	}
	m.sweepErrors.Inc()
}

// ViewsConnected sets the number of connected views.
func (m *Metrics) ViewsConnected(n int) {
	if m == nil {
		return
	}
	m.viewsConnected.Set(float64(n))
}
