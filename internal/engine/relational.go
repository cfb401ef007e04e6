// Package engine implements KadeDB's in-memory relational and document
// engines: single-mutex-protected, schema-validated, predicate-queryable
// table and collection stores with all-or-nothing update semantics.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kadedb/kadedb"
	"github.com/kadedb/kadedb/internal"
)

type table struct {
	schema *kadedb.TableSchema
	rows   []kadedb.Row
}

// Relational is an in-memory multi-table store. All public operations
// hold the single engine mutex while they read or change engine state;
// sink notification after a commit runs once the mutex is released.
type Relational struct {
	mu        sync.Mutex
	tables    map[string]*table
	validator kadedb.SchemaValidator
	sinks     []kadedb.ChangeSink
}

// NewRelational constructs an empty relational engine, optionally
// notifying the given sinks after every committed mutation.
func NewRelational(sinks ...kadedb.ChangeSink) *Relational {
	return &Relational{
		tables:    make(map[string]*table),
		validator: kadedb.NewSchemaValidator(),
		sinks:     sinks,
	}
}

// CreateTable registers name with schema. AlreadyExists if name is taken.
func (r *Relational) CreateTable(name string, schema *kadedb.TableSchema) *kadedb.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; ok {
		return kadedb.AlreadyExists("engine: table %q already exists", name)
	}
	r.tables[name] = &table{schema: schema.Clone()}
	return nil
}

// DropTable removes name and all its rows. NotFound if unknown.
func (r *Relational) DropTable(name string) *kadedb.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; !ok {
		return kadedb.NotFound("engine: table %q does not exist", name)
	}
	delete(r.tables, name)
	return nil
}

// TruncateTable removes all rows from name, keeping its schema. NotFound
// if unknown.
func (r *Relational) TruncateTable(name string) *kadedb.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[name]
	if !ok {
		return kadedb.NotFound("engine: table %q does not exist", name)
	}
	t.rows = nil
	return nil
}

// ListTables returns all table names. Order is unspecified.
func (r *Relational) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return internal.MapKeys(r.tables)
}

// InsertRow validates row against name's schema and uniqueness
// constraints, then appends a clone. insertRow that fails uniqueness
// leaves no trace (§5).
func (r *Relational) InsertRow(ctx context.Context, name string, row kadedb.Row) *kadedb.Status {
	r.mu.Lock()
	t, ok := r.tables[name]
	if !ok {
		r.mu.Unlock()
		return kadedb.NotFound("engine: table %q does not exist", name)
	}
	if st := r.validator.ValidateRow(t.schema, row); st != nil {
		r.mu.Unlock()
		return st
	}
	if st := r.validator.ValidateUniqueRow(t.schema, t.rows, row); st != nil {
		r.mu.Unlock()
		return st
	}
	clone := row.Clone()
	t.rows = append(t.rows, clone)
	r.mu.Unlock()
	r.notify(ctx, name, kadedb.ChangeInsert, []kadedb.Row{clone})
	return nil
}

// Select evaluates pred (nil matches everything) over every row of name
// and returns deep-cloned matches as a ResultSet, snapshotting the
// table's current state. columns selects which schema columns are
// projected, in the given order; an empty columns projects all columns
// in schema order. Any name in columns not present in the schema is an
// InvalidArgument.
func (r *Relational) Select(name string, columns []string, pred *kadedb.Predicate) (*kadedb.ResultSet, *kadedb.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, kadedb.NotFound("engine: table %q does not exist", name)
	}
	cols := t.schema.Columns()

	idx := make([]int, len(cols))
	for i := range cols {
		idx[i] = i
	}
	if len(columns) > 0 {
		idx = make([]int, len(columns))
		for i, col := range columns {
			pos, ok := t.schema.Find(col)
			if !ok {
				return nil, kadedb.InvalidArgument("engine: unknown projected column %q", col)
			}
			idx[i] = pos
		}
	}

	names := make([]string, len(idx))
	types := make([]kadedb.ValueType, len(idx))
	for i, pos := range idx {
		names[i] = cols[pos].Name
		types[i] = cols[pos].Type
	}

	rs := kadedb.NewTypedResultSet(names, types)
	for _, row := range t.rows {
		if pred != nil {
			view := kadedb.NewRowShallow(t.schema, &row)
			if !pred.Evaluate(t.schema, view) {
				continue
			}
		}
		values := make([]kadedb.Value, len(idx))
		for i, pos := range idx {
			values[i] = row.Values[pos]
		}
		if st := rs.AppendRow(values); st != nil {
			return nil, st
		}
	}
	return rs, nil
}

// UpdateRows applies mutate to every row of name matching pred (nil
// matches everything), on a deep-cloned working copy, validating each
// mutated row and the whole set's uniqueness before committing. The
// commit is all-or-nothing: on any validation failure the table's
// observable state is untouched.
func (r *Relational) UpdateRows(ctx context.Context, name string, pred *kadedb.Predicate, mutate func(kadedb.Row) kadedb.Row) (int, *kadedb.Status) {
	r.mu.Lock()
	t, ok := r.tables[name]
	if !ok {
		r.mu.Unlock()
		return 0, kadedb.NotFound("engine: table %q does not exist", name)
	}

	working := make([]kadedb.Row, len(t.rows))
	for i, row := range t.rows {
		working[i] = row.Clone()
	}

	matched := 0
	var changed []kadedb.Row
	for i, row := range t.rows {
		if pred != nil {
			view := kadedb.NewRowShallow(t.schema, &row)
			if !pred.Evaluate(t.schema, view) {
				continue
			}
		}
		updated := mutate(row.Clone())
		if st := r.validator.ValidateRow(t.schema, updated); st != nil {
			r.mu.Unlock()
			return 0, st
		}
		working[i] = updated
		matched++
		changed = append(changed, updated.Clone())
	}

	if st := validateAllUnique(r.validator, t.schema, working); st != nil {
		r.mu.Unlock()
		return 0, st
	}

	t.rows = working
	r.mu.Unlock()
	if matched > 0 {
		r.notify(ctx, name, kadedb.ChangeUpdate, changed)
	}
	return matched, nil
}

// DeleteRows removes every row of name matching pred (nil matches
// everything) and returns the count removed.
func (r *Relational) DeleteRows(ctx context.Context, name string, pred *kadedb.Predicate) (int, *kadedb.Status) {
	r.mu.Lock()
	t, ok := r.tables[name]
	if !ok {
		r.mu.Unlock()
		return 0, kadedb.NotFound("engine: table %q does not exist", name)
	}
	var kept, removed []kadedb.Row
	for _, row := range t.rows {
		match := pred == nil
		if !match {
			view := kadedb.NewRowShallow(t.schema, &row)
			match = pred.Evaluate(t.schema, view)
		}
		if match {
			removed = append(removed, row.Clone())
		} else {
			kept = append(kept, row)
		}
	}
	t.rows = kept
	r.mu.Unlock()
	if len(removed) > 0 {
		r.notify(ctx, name, kadedb.ChangeDelete, removed)
	}
	return len(removed), nil
}

func validateAllUnique(v kadedb.SchemaValidator, schema *kadedb.TableSchema, rows []kadedb.Row) *kadedb.Status {
	for i := range rows {
		if st := v.ValidateUniqueRow(schema, rows[:i], rows[i]); st != nil {
			return st
		}
	}
	return nil
}

func (r *Relational) notify(ctx context.Context, target string, op kadedb.ChangeOp, rows []kadedb.Row) {
	if len(r.sinks) == 0 {
		return
	}
	event := kadedb.ChangeEvent{Target: target, Op: op, Rows: rows}
	for _, sink := range r.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			kadedb.L().Warn("change sink notify failed",
				zap.String("target", target), zap.String("op", string(op)), zap.Error(err))
		}
	}
}
