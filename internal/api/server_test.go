package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/dedup"
	"github.com/albapepper/matchwatch/internal/metrics"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"
)

type fakeScheduler struct {
	mu         sync.Mutex
	running    bool
	snapshot   *poller.Snapshot
	triggerErr error
	triggers   int
}

func (s *fakeScheduler) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return poller.ErrAlreadyRunning
	}
	s.running = true
	return nil
}

func (s *fakeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *fakeScheduler) Status() poller.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return poller.Status{Running: s.running, Interval: "1m0s"}
}

func (s *fakeScheduler) Trigger(context.Context) (poller.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers++
	if s.triggerErr != nil {
		return poller.CycleReport{}, s.triggerErr
	}
	return poller.CycleReport{Matches: 2, Notifications: notifications.Report{Sent: 1}}, nil
}

func (s *fakeScheduler) Latest() (poller.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return poller.Snapshot{}, false
	}
	return *s.snapshot, true
}

type fakePinger struct{ err error }

func (p fakePinger) HealthCheck(context.Context) error { return p.err }

type captureSender struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (s *captureSender) Send(_ context.Context, n notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		DedupBackend:     config.BackendMemory,
		CORSAllowOrigins: []string{"http://localhost:3000"},
	}
}

type testServer struct {
	router http.Handler
	sched  *fakeScheduler
	sender *captureSender
}

func newTestServer(t *testing.T, cfg *config.Config, db *fakePinger) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := &fakeScheduler{}
	sender := &captureSender{}
	engine := notifications.NewEngine(dedup.NewMemory(), sender, notifications.Options{}, logger)

	deps := Deps{
		Context:   context.Background(),
		Scheduler: sched,
		Pusher:    engine,
		Metrics:   metrics.New(),
	}
	if db != nil {
		deps.DB = db
	}
	return &testServer{router: NewRouter(cfg, deps), sched: sched, sender: sender}
}

func (s *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "memory", decode(t, rec)["dedup"])
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec = s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = s.do(http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not configured", decode(t, rec)["database"])
}

func TestHealthDB(t *testing.T) {
	s := newTestServer(t, testConfig(), &fakePinger{})
	rec := s.do(http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode(t, rec)["database"])

	s = newTestServer(t, testConfig(), &fakePinger{err: errors.New("refused")})
	rec = s.do(http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", decode(t, rec)["database"])
}

func TestGetMatches(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do(http.MethodGet, "/api/v1/matches", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.sched.snapshot = &poller.Snapshot{
		Matches:   []json.RawMessage{json.RawMessage(`{"Team1":"A","Team2":"B"}`)},
		FetchedAt: time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC),
	}
	rec = s.do(http.MethodGet, "/api/v1/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.JSONEq(t, `{"matches":[{"Team1":"A","Team2":"B"}],"fetched_at":"2026-10-15T14:00:00Z"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/matches", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestSync(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do(http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(2), out["matches"])

	s.sched.triggerErr = &poller.FetchError{URL: "http://feed", Status: 500, Err: errors.New("boom")}
	rec = s.do(http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "FETCH_FAILED")
	assert.Equal(t, 2, s.sched.triggers)
}

func TestSchedulerControl(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do(http.MethodPost, "/api/v1/scheduler/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["running"])

	rec = s.do(http.MethodPost, "/api/v1/scheduler/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["running"])

	rec = s.do(http.MethodPost, "/api/v1/scheduler/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["running"])

	rec = s.do(http.MethodGet, "/api/v1/scheduler", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["running"])
}

func TestPush(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do(http.MethodPost, "/api/v1/push", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CricStreamZone", decode(t, rec)["title"])

	rec = s.do(http.MethodPost, "/api/v1/push", `{"notification":{"title":"Toss","body":"India bat first"},"data":{"tag":"toss"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Toss", out["title"])
	assert.Equal(t, "toss", out["tag"])
	assert.Len(t, s.sender.sent, 2)

	rec = s.do(http.MethodPost, "/api/v1/push", `{"notification":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.sender.err = errors.New("no surface")
	rec = s.do(http.MethodPost, "/api/v1/push", `{}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	s := newTestServer(t, cfg, nil)

	// Burst is half the window allowance.
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "").Code)
	rec := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := s.do(http.MethodOptions, "/api/v1/sync", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
