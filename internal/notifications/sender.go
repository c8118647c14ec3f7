package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sender displays a notification on some surface.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

var errNoSenders = errors.New("no notification senders configured")

// MultiSender fans a notification out to several surfaces. It succeeds if at
// least one surface accepted the notification; failures of the others are
// logged.
type MultiSender struct {
	senders []Sender
	logger  *slog.Logger
}

// NewMultiSender drops nil entries so optional senders can be passed as-is.
func NewMultiSender(logger *slog.Logger, senders ...Sender) *MultiSender {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MultiSender{logger: logger}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

// Len returns the number of configured senders.
func (m *MultiSender) Len() int {
	return len(m.senders)
}

func (m *MultiSender) Send(ctx context.Context, n Notification) error {
	if len(m.senders) == 0 {
		return errNoSenders
	}

	var errs []error
	for i, s := range m.senders {
		if err := s.Send(ctx, n); err != nil {
			m.logger.Warn("Sender failed", "sender", i, "tag", n.Tag, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(m.senders) {
		return fmt.Errorf("all %d senders failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// LogSender writes each notification to the structured log. Useful as the
// only sender in development and as an audit trail next to real surfaces.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("Notification displayed", "title", n.Title, "body", n.Body, "tag", n.Tag)
	return nil
}
