package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kadedb/kadedb"
)

// pgxPool is the subset of *pgxpool.Pool PostgresSink needs. It exists so
// tests can substitute pgxmock's pool fake without a live database (§8 S9).
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

// PostgresSink mirrors committed mutations into a Postgres table via a
// simple upsert keyed by (target, payload), where payload is the row/doc
// rendered as text, for a hot-mirror use case — the same shape as
// the teacher's Postgres-backed entity mirror, minus the EAV column
// mapping.
type PostgresSink struct {
	pool    pgxPool
	table   string
	breaker *CircuitBreaker
}

// NewPostgresSink opens a pool against dsn.
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: connect postgres: %w", err)
	}
	return newPostgresSink(pool, table), nil
}

// newPostgresSink builds a PostgresSink over an already-constructed pool,
// the seam pgxmock-backed tests use.
func newPostgresSink(pool pgxPool, table string) *PostgresSink {
	return &PostgresSink{
		pool:    pool,
		table:   table,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
	}
}

// Notify upserts one row per Row/Document in event.
func (s *PostgresSink) Notify(ctx context.Context, event kadedb.ChangeEvent) error {
	if s.breaker.IsOpen() {
		return fmt.Errorf("sink: postgres sink circuit open for %s", s.table)
	}
	start := time.Now()
	if err := s.writeEvent(ctx, event); err != nil {
		s.breaker.RecordFailure()
		EmitFailure(ctx, "postgres", err)
		return err
	}
	s.breaker.RecordSuccess()
	EmitFlushLatency(ctx, "postgres", time.Since(start).Milliseconds())
	EmitEventCount(ctx, "postgres", event.Target, int64(len(event.Rows)+len(event.Documents)))
	return nil
}

func (s *PostgresSink) writeEvent(ctx context.Context, event kadedb.ChangeEvent) error {
	query := fmt.Sprintf(`
INSERT INTO %s (target, op, payload, recorded_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (target, payload) DO UPDATE SET op = EXCLUDED.op, recorded_at = now()`, s.table)

	for _, row := range event.Rows {
		if _, err := s.pool.Exec(ctx, query, event.Target, string(event.Op), renderRow(row)); err != nil {
			return fmt.Errorf("sink: postgres upsert: %w", err)
		}
	}
	for _, doc := range event.Documents {
		if _, err := s.pool.Exec(ctx, query, event.Target, string(event.Op), renderDocument(doc)); err != nil {
			return fmt.Errorf("sink: postgres upsert: %w", err)
		}
	}
	return nil
}
