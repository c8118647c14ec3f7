// Package dedup persists which notifications have already been shown.
//
// A record maps a notification key to the time it was sent. Claiming a key
// is atomic in every backend, so a key is emitted at most once until the
// cleanup sweep expires it.
package dedup

import (
	"context"
	"fmt"
	"time"
)

// Store is the persisted "already sent" record.
type Store interface {
	// TryClaim records key with sent-time at and reports true only if this
	// call newly claimed it. A key that already exists is left untouched.
	TryClaim(ctx context.Context, key string, at time.Time) (bool, error)

	// Release removes key so a failed emission can be retried.
	Release(ctx context.Context, key string) error

	// Sweep removes every record sent strictly before cutoff and returns
	// how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// Len returns the number of records currently held.
	Len(ctx context.Context) (int, error)
}

// Record is a single dedup entry.
type Record struct {
	Key    string
	SentAt time.Time
}

// StoreError wraps a backend failure.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("dedup %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dedup %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
