package dedup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Prepared statement names registered by internal/db on every connection.
const (
	StmtClaim   = "dedup_claim"
	StmtRelease = "dedup_release"
	StmtSweep   = "dedup_sweep"
	StmtCount   = "dedup_count"
)

// Statements returns the SQL behind each prepared statement name.
func Statements() map[string]string {
	return map[string]string{
		StmtClaim:   "INSERT INTO notification_dedup (key, sent_at) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		StmtRelease: "DELETE FROM notification_dedup WHERE key = $1",
		StmtSweep:   "DELETE FROM notification_dedup WHERE sent_at < $1",
		StmtCount:   "SELECT count(*) FROM notification_dedup",
	}
}

// Schema creates the dedup table. Safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS notification_dedup (
	key     TEXT PRIMARY KEY,
	sent_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notification_dedup_sent_at_idx ON notification_dedup (sent_at);
`

// Querier is the subset of *pgxpool.Pool used by Postgres.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores dedup records in the notification_dedup table. The
// primary key makes the claim a single atomic insert.
type Postgres struct {
	db Querier
}

// NewPostgres returns a Store backed by the given pool.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) TryClaim(ctx context.Context, key string, at time.Time) (bool, error) {
	tag, err := p.db.Exec(ctx, StmtClaim, key, at.UTC())
	if err != nil {
		return false, &StoreError{Op: "claim", Key: key, Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) Release(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, StmtRelease, key); err != nil {
		return &StoreError{Op: "release", Key: key, Err: err}
	}
	return nil
}

func (p *Postgres) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.db.Exec(ctx, StmtSweep, cutoff.UTC())
	if err != nil {
		return 0, &StoreError{Op: "sweep", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, StmtCount).Scan(&n); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}
