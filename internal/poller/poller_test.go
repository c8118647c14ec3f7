package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/matchwatch/internal/dedup"
	"github.com/albapepper/matchwatch/internal/match"
	"github.com/albapepper/matchwatch/internal/notifications"
)

var kickoff = time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

type recordingHub struct {
	mu    sync.Mutex
	calls [][]json.RawMessage
}

func (h *recordingHub) BroadcastMatches(m []json.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, m)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notifications.Notification
}

func (s *recordingSender) Send(_ context.Context, n notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type countingSource struct {
	calls atomic.Int32
	batch *match.Batch
	err   error
}

func (s *countingSource) FetchMatches(context.Context) (*match.Batch, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPollOnceFetchFailureSkipsCycle(t *testing.T) {
	srv := feedServer(t, http.StatusInternalServerError, `{"error":"down"}`)
	hub := &recordingHub{}
	sender := &recordingSender{}
	store := dedup.NewMemory()
	engine := notifications.NewEngine(store, sender, notifications.Options{}, quietLogger())

	p := New(newTestClient(srv.URL), hub, engine, quietLogger(), WithClock(fixedClock(kickoff)))
	_, err := p.PollOnce(context.Background())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 0, hub.count())
	assert.Equal(t, 0, sender.count())
	n, _ := store.Len(context.Background())
	assert.Equal(t, 0, n)
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestPollOnceEvaluatesValidSiblings(t *testing.T) {
	srv := feedServer(t, http.StatusOK, `{"matches":[
		{"Team1":"A","Team2":"B","MatchTime":"2026-10-15T14:00:00Z"},
		{"Team1":42,"Team2":"D","MatchTime":"2026-10-15T14:00:00Z"},
		{"Team1":"E","Team2":"F","MatchTime":"not-a-date"}
	]}`)
	hub := &recordingHub{}
	sender := &recordingSender{}
	engine := notifications.NewEngine(dedup.NewMemory(), sender, notifications.Options{}, quietLogger())

	p := New(newTestClient(srv.URL), hub, engine, quietLogger(), WithClock(fixedClock(kickoff)))
	report, err := p.PollOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Matches)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Notifications.Sent)

	require.Equal(t, 1, hub.count())
	assert.Len(t, hub.calls[0], 3)
	require.Equal(t, 1, sender.count())
	assert.Equal(t, "A vs B is now LIVE!", sender.sent[0].Body)

	snap, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, kickoff, snap.FetchedAt)
	assert.Len(t, snap.Matches, 3)

	// A second cycle in the same window sends nothing new.
	report, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notifications.Duplicates)
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, 2, hub.count())
}

func TestPollOnceWithoutHub(t *testing.T) {
	src := &countingSource{batch: &match.Batch{}}
	engine := notifications.NewEngine(dedup.NewMemory(), &recordingSender{}, notifications.Options{}, quietLogger())

	p := New(src, nil, engine, quietLogger())
	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	src := &countingSource{batch: &match.Batch{}}
	engine := notifications.NewEngine(dedup.NewMemory(), &recordingSender{}, notifications.Options{}, quietLogger())
	p := New(src, &recordingHub{}, engine, quietLogger(), WithInterval(10*time.Millisecond))

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	assert.ErrorIs(t, p.Start(ctx), ErrAlreadyRunning)
	assert.True(t, p.Running())
	assert.True(t, p.Status().Running)

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	stopped := src.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, src.calls.Load())

	// Stop is idempotent and the poller can be restarted.
	p.Stop()
	require.NoError(t, p.Start(ctx))
	require.Eventually(t, func() bool { return src.calls.Load() > stopped }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestStartStopsWithContext(t *testing.T) {
	src := &countingSource{err: errors.New("unreachable")}
	engine := notifications.NewEngine(dedup.NewMemory(), &recordingSender{}, notifications.Options{}, quietLogger())
	p := New(src, nil, engine, quietLogger(), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}

func TestTriggerSerializesWithLoop(t *testing.T) {
	src := &countingSource{batch: &match.Batch{}}
	engine := notifications.NewEngine(dedup.NewMemory(), &recordingSender{}, notifications.Options{}, quietLogger())
	p := New(src, nil, engine, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Trigger(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), src.calls.Load())
	assert.False(t, p.Running())
}
