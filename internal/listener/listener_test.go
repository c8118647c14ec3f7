package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		payload string
		want    SyncEvent
	}{
		{"", SyncEvent{}},
		{`{"reason":"fixture moved","source":"admin"}`, SyncEvent{Reason: "fixture moved", Source: "admin"}},
		{"schedule changed", SyncEvent{Reason: "schedule changed"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePayload(tt.payload), "payload %q", tt.payload)
	}
}

func TestEnqueueCoalesces(t *testing.T) {
	signals := make(chan SyncEvent, 1)
	assert.True(t, enqueue(signals, SyncEvent{Reason: "a"}))
	assert.False(t, enqueue(signals, SyncEvent{Reason: "b"}))
	assert.Equal(t, "a", (<-signals).Reason)
}

func TestWorkerRunsTrigger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	trigger := func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("feed down")
		}
		return nil
	}

	signals := make(chan SyncEvent, 1)
	go worker(ctx, signals, trigger, logger)

	signals <- SyncEvent{}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	signals <- SyncEvent{}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}
