package kadedb

// Row is a schema-bound, ordered sequence of Values, one per column of its
// TableSchema, in column order.
type Row struct {
	Values []Value
}

// NewRow constructs a Row from the given values, in column order.
func NewRow(values ...Value) Row {
	return Row{Values: append([]Value(nil), values...)}
}

// Get returns the value at the given column index.
func (r Row) Get(idx int) (Value, *Status) {
	if idx < 0 || idx >= len(r.Values) {
		return Value{}, InvalidArgument("row: column index %d out of range [0,%d)", idx, len(r.Values))
	}
	return r.Values[idx], nil
}

// Clone deep-copies the row.
func (r Row) Clone() Row {
	out := make([]Value, len(r.Values))
	for i, v := range r.Values {
		out[i] = v.Clone()
	}
	return Row{Values: out}
}

// RowShallow is a name-indexed, read-only view over a Row plus its schema,
// avoiding a full copy when callers only need named-column access (e.g. a
// Predicate evaluator walking a scan). It does not own the underlying Row.
type RowShallow struct {
	schema *TableSchema
	row    *Row
}

// NewRowShallow builds a shallow, name-indexed view over row using schema's
// column positions.
func NewRowShallow(schema *TableSchema, row *Row) RowShallow {
	return RowShallow{schema: schema, row: row}
}

// Get returns the named column's value. Unknown column names yield NotFound.
func (rs RowShallow) Get(name string) (Value, *Status) {
	idx, ok := rs.schema.Find(name)
	if !ok {
		return Value{}, NotFound("row: unknown column %q", name)
	}
	return rs.row.Get(idx)
}

// Has reports whether name is a known column of the backing schema.
func (rs RowShallow) Has(name string) bool {
	_, ok := rs.schema.Find(name)
	return ok
}

// Document is a schema-less (or DocumentSchema-bound, when validated), flat
// name -> Value mapping. Field order carries no meaning (§3).
type Document struct {
	Fields map[string]Value
}

// NewDocument constructs an empty Document.
func NewDocument() Document {
	return Document{Fields: make(map[string]Value)}
}

// Get returns the named field's value. Unknown field names yield NotFound.
func (d Document) Get(name string) (Value, *Status) {
	v, ok := d.Fields[name]
	if !ok {
		return Value{}, NotFound("document: unknown field %q", name)
	}
	return v, nil
}

// Set assigns the named field, adding it if absent.
func (d Document) Set(name string, v Value) {
	d.Fields[name] = v
}

// Has reports whether name is present in the document.
func (d Document) Has(name string) bool {
	_, ok := d.Fields[name]
	return ok
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	out := NewDocument()
	for k, v := range d.Fields {
		out.Fields[k] = v.Clone()
	}
	return out
}
