package dedup

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "matchwatch:dedup:"
	scanBatch          = 200
)

// Redis stores each record as prefix+key holding the sent-time in unix
// milliseconds. SETNX provides the atomic claim. A backstop TTL of twice the
// retention bounds growth if the sweep never runs.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	backstop time.Duration
}

// NewRedis returns a Store on an existing client. retention sizes the
// backstop TTL; zero disables it.
func NewRedis(rdb redis.UniversalClient, retention time.Duration) *Redis {
	return &Redis{
		rdb:      rdb,
		prefix:   defaultRedisPrefix,
		backstop: 2 * retention,
	}
}

// DialRedis connects and pings, the same way the rest of the stack checks
// its backends at startup.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, &StoreError{Op: "connect", Err: err}
	}
	return rdb, nil
}

func (r *Redis) TryClaim(ctx context.Context, key string, at time.Time) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.prefix+key, at.UnixMilli(), r.backstop).Result()
	if err != nil {
		return false, &StoreError{Op: "claim", Key: key, Err: err}
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return &StoreError{Op: "release", Key: key, Err: err}
	}
	return nil
}

func (r *Redis) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	limit := cutoff.UnixMilli()
	removed := 0

	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := r.rdb.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return removed, &StoreError{Op: "sweep", Key: full, Err: err}
		}

		sentAt, err := strconv.ParseInt(val, 10, 64)
		if err != nil || sentAt < limit {
			if err := r.rdb.Del(ctx, full).Err(); err != nil {
				return removed, &StoreError{Op: "sweep", Key: full, Err: err}
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, &StoreError{Op: "sweep", Err: err}
	}
	return removed, nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}
