package dedup

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Records do not survive a restart, so it
// suits tests, dry runs and single-instance development setups.
type Memory struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sent: make(map[string]time.Time)}
}

func (m *Memory) TryClaim(_ context.Context, key string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sent[key]; exists {
		return false, nil
	}
	m.sent[key] = at
	return true, nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sent, key)
	return nil
}

func (m *Memory) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, sentAt := range m.sent {
		if sentAt.Before(cutoff) {
			delete(m.sent, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent), nil
}

// Records returns a copy of the held records, in no particular order.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.sent))
	for key, sentAt := range m.sent {
		out = append(out, Record{Key: key, SentAt: sentAt})
	}
	return out
}
