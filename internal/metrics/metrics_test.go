package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePoll(ResultOK, time.Second)
		m.MatchesFetched(3)
		m.RecordsSkipped(1)
		m.Notification("match-live", "sent")
		m.Swept(2)
		m.SweepFailed()
		m.ViewsConnected(1)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.ObservePoll(ResultOK, 10*time.Millisecond)
	m.ObservePoll(ResultFetchError, 10*time.Millisecond)
	m.ObservePoll(ResultFetchError, 10*time.Millisecond)
	m.Notification("match-15min", "sent")
	m.Swept(4)
	m.Swept(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollCycles.WithLabelValues(ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pollCycles.WithLabelValues(ResultFetchError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("match-15min", "sent")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.dedupSwept))
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New(WithNamespace("cricket"))
	m.MatchesFetched(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "cricket_poller_matches 7")
}
