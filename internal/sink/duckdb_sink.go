package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/kadedb/kadedb"
)

// DuckDBSink mirrors committed ResultSet-shaped mutations into a DuckDB
// table for cold-tier analytics, the same export target the teacher's CDC
// flusher used for its Postgres-to-DuckDB snapshot, generalized here to
// any ChangeEvent rather than a fixed EAV shape.
type DuckDBSink struct {
	db      *sql.DB
	table   string
	breaker *CircuitBreaker
}

// NewDuckDBSink opens (or creates) the DuckDB database at path. The table
// itself is created on first write, with columns target, op, payload (the
// row/document rendered as text) and recorded_at.
func NewDuckDBSink(path, table string) (*DuckDBSink, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open duckdb %s: %w", path, err)
	}
	return &DuckDBSink{
		db:      db,
		table:   table,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
	}, nil
}

// Notify appends one row to the sink's table per Row/Document in event.
func (s *DuckDBSink) Notify(ctx context.Context, event kadedb.ChangeEvent) error {
	if s.breaker.IsOpen() {
		return fmt.Errorf("sink: duckdb sink circuit open for %s", s.table)
	}
	start := time.Now()
	if err := s.writeEvent(ctx, event); err != nil {
		s.breaker.RecordFailure()
		EmitFailure(ctx, "duckdb", err)
		return err
	}
	s.breaker.RecordSuccess()
	EmitFlushLatency(ctx, "duckdb", time.Since(start).Milliseconds())
	EmitEventCount(ctx, "duckdb", event.Target, int64(len(event.Rows)+len(event.Documents)))
	return nil
}

func (s *DuckDBSink) writeEvent(ctx context.Context, event kadedb.ChangeEvent) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (target VARCHAR, op VARCHAR, payload VARCHAR, recorded_at TIMESTAMP)`,
		s.table)); err != nil {
		return fmt.Errorf("sink: ensure duckdb table %s: %w", s.table, err)
	}
	stmt, err := s.db.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (target, op, payload, recorded_at) VALUES (?, ?, ?, ?)`, s.table))
	if err != nil {
		return fmt.Errorf("sink: prepare duckdb insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range event.Rows {
		if _, err := stmt.ExecContext(ctx, event.Target, string(event.Op), renderRow(row), now); err != nil {
			return fmt.Errorf("sink: duckdb insert: %w", err)
		}
	}
	for _, doc := range event.Documents {
		if _, err := stmt.ExecContext(ctx, event.Target, string(event.Op), renderDocument(doc), now); err != nil {
			return fmt.Errorf("sink: duckdb insert: %w", err)
		}
	}
	return nil
}

// Close releases the underlying DuckDB connection.
func (s *DuckDBSink) Close() error { return s.db.Close() }

func renderRow(row kadedb.Row) string {
	out := "["
	for i, v := range row.Values {
		if i > 0 {
			out += ","
		}
		out += v.String()
	}
	return out + "]"
}

func renderDocument(doc kadedb.Document) string {
	out := "{"
	first := true
	for k, v := range doc.Fields {
		if !first {
			out += ","
		}
		first = false
		out += k + "=" + v.String()
	}
	return out + "}"
}
