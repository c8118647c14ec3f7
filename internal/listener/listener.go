// Package listener provides a Postgres LISTEN/NOTIFY consumer that triggers
// an on-demand poll cycle when an upstream system signals a schedule change.
// It holds a dedicated pgx connection (not from the pool).
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// SyncEvent is the optional JSON payload of a sync notification. An empty or
// non-JSON payload is still a valid signal.
type SyncEvent struct {
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// Trigger runs one poll cycle. *poller.Poller satisfies it through a
// small adapter in cmd/matchwatch.
type Trigger func(ctx context.Context) error

// Start opens a dedicated connection and listens on channel. It reconnects
// automatically on connection loss. Blocks until ctx is cancelled. Intended
// to be called with `go`.
func Start(ctx context.Context, dbURL, channel string, trigger Trigger, logger *slog.Logger) {
	signals := make(chan SyncEvent, 1)
	go worker(ctx, signals, trigger, logger)

	backoff := reconnectBackoff
	for {
		err := listenLoop(ctx, dbURL, channel, signals, logger)
		if ctx.Err() != nil {
			logger.Info("Sync listener stopped (context cancelled)")
			return
		}

		logger.Error("Sync listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL, channel string, signals chan<- SyncEvent, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Sync listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		event := ParsePayload(notification.Payload)
		logger.Info("Sync signal received", "reason", event.Reason, "source", event.Source)
		enqueue(signals, event)
	}
}

// ParsePayload decodes a notification payload, tolerating plain text.
func ParsePayload(payload string) SyncEvent {
	var event SyncEvent
	if payload == "" {
		return event
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return SyncEvent{Reason: payload}
	}
	return event
}

// enqueue coalesces signals: while a cycle is pending, further signals are
// folded into it.
func enqueue(signals chan<- SyncEvent, event SyncEvent) bool {
	select {
	case signals <- event:
		return true
	default:
		return false
	}
}

func worker(ctx context.Context, signals <-chan SyncEvent, trigger Trigger, logger *slog.Logger) {
	for {
		select {
		case event := <-signals:
			if err := trigger(ctx); err != nil {
				logger.Warn("Sync-triggered poll failed", "reason", event.Reason, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
