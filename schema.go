package kadedb

import "github.com/kadedb/kadedb/internal"

// ColumnConstraints holds the optional constraints a Column or Field can
// carry. An unset (nil) field imposes no constraint, per §3.
type ColumnConstraints struct {
	MinLength *int     // string byte-length lower bound, inclusive
	MaxLength *int     // string byte-length upper bound, inclusive
	OneOf     []string // allowed-set, ordered but set-semantics, case-sensitive
	MinValue  *float64 // numeric lower bound, inclusive
	MaxValue  *float64 // numeric upper bound, inclusive
}

// Clone deep-copies the constraints.
func (c ColumnConstraints) Clone() ColumnConstraints {
	out := c
	if c.MinLength != nil {
		v := *c.MinLength
		out.MinLength = &v
	}
	if c.MaxLength != nil {
		v := *c.MaxLength
		out.MaxLength = &v
	}
	if c.MinValue != nil {
		v := *c.MinValue
		out.MinValue = &v
	}
	if c.MaxValue != nil {
		v := *c.MaxValue
		out.MaxValue = &v
	}
	if c.OneOf != nil {
		out.OneOf = append([]string(nil), c.OneOf...)
	}
	return out
}

// allowed reports whether s is in the OneOf set. An empty/nil OneOf means
// the constraint is disabled (§8 boundary case: "oneOf with empty set after
// clear: constraint disabled").
func (c ColumnConstraints) allowed(s string) bool {
	if len(c.OneOf) == 0 {
		return true
	}
	set := internal.NewSet[string]()
	for _, candidate := range c.OneOf {
		set.Add(candidate)
	}
	return set.Contains(s)
}

// Column describes one named, typed slot of a TableSchema.
type Column struct {
	Name        string
	Type        ValueType
	Nullable    bool
	Unique      bool
	Constraints ColumnConstraints
}

// Clone deep-copies the column.
func (c Column) Clone() Column {
	out := c
	out.Constraints = c.Constraints.Clone()
	return out
}

// Field describes one named, typed slot of a DocumentSchema. It has the
// same shape as Column; document field order carries no meaning (§3).
type Field = Column

// TableSchema is an ordered, name-indexed sequence of Columns with an
// optional primary-key column.
type TableSchema struct {
	columns []Column
	index   map[string]int
	pk      string // "" when unset
}

// NewTableSchema constructs an empty schema.
func NewTableSchema() *TableSchema {
	return &TableSchema{index: make(map[string]int)}
}

// Columns returns the columns in schema order. The returned slice is a
// defensive copy; mutating it does not affect the schema.
func (s *TableSchema) Columns() []Column {
	out := make([]Column, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Clone()
	}
	return out
}

// ColumnCount returns the number of columns.
func (s *TableSchema) ColumnCount() int { return len(s.columns) }

// Find returns the index of the named column, or (-1, false) when absent.
// Lookup is amortized O(1) via the name index (§3).
func (s *TableSchema) Find(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// GetColumn returns the named column.
func (s *TableSchema) GetColumn(name string) (Column, bool) {
	idx, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[idx].Clone(), true
}

// AddColumn appends a column. Duplicate names are rejected.
func (s *TableSchema) AddColumn(c Column) *Status {
	if c.Name == "" {
		return InvalidArgument("schema: column name must not be empty")
	}
	if _, exists := s.index[c.Name]; exists {
		return InvalidArgument("schema: duplicate column name %q", c.Name)
	}
	s.index[c.Name] = len(s.columns)
	s.columns = append(s.columns, c.Clone())
	return nil
}

// RemoveColumn drops the named column, shifting later columns down and
// reindexing. Returns NotFound when the name is unknown. Clearing the
// primary key when it names the removed column.
func (s *TableSchema) RemoveColumn(name string) *Status {
	idx, ok := s.index[name]
	if !ok {
		return NotFound("schema: unknown column %q", name)
	}
	s.columns = append(s.columns[:idx], s.columns[idx+1:]...)
	delete(s.index, name)
	for n, i := range s.index {
		if i > idx {
			s.index[n] = i - 1
		}
	}
	if s.pk == name {
		s.pk = ""
	}
	return nil
}

// UpdateColumn replaces the named column's descriptor in place, keeping its
// position. Returns NotFound when the name is unknown.
func (s *TableSchema) UpdateColumn(c Column) *Status {
	idx, ok := s.index[c.Name]
	if !ok {
		return NotFound("schema: unknown column %q", c.Name)
	}
	s.columns[idx] = c.Clone()
	return nil
}

// SetPrimaryKey designates name as the primary-key column, implicitly
// making it non-nullable and unique; an empty name clears the primary key.
func (s *TableSchema) SetPrimaryKey(name string) *Status {
	if name == "" {
		s.pk = ""
		return nil
	}
	idx, ok := s.index[name]
	if !ok {
		return InvalidArgument("schema: primary key references unknown column %q", name)
	}
	s.columns[idx].Nullable = false
	s.columns[idx].Unique = true
	s.pk = name
	return nil
}

// PrimaryKey returns the primary-key column name, or "" when unset.
func (s *TableSchema) PrimaryKey() string { return s.pk }

// Clone deep-copies the schema.
func (s *TableSchema) Clone() *TableSchema {
	out := NewTableSchema()
	for _, c := range s.columns {
		_ = out.AddColumn(c)
	}
	out.pk = s.pk
	return out
}

// DocumentSchema is a name -> Field mapping; field order carries no
// meaning (§3).
type DocumentSchema struct {
	fields map[string]Field
}

// NewDocumentSchema constructs an empty document schema.
func NewDocumentSchema() *DocumentSchema {
	return &DocumentSchema{fields: make(map[string]Field)}
}

// AddField adds or replaces a field descriptor.
func (s *DocumentSchema) AddField(f Field) *Status {
	if f.Name == "" {
		return InvalidArgument("schema: field name must not be empty")
	}
	s.fields[f.Name] = f.Clone()
	return nil
}

// RemoveField removes the named field.
func (s *DocumentSchema) RemoveField(name string) *Status {
	if _, ok := s.fields[name]; !ok {
		return NotFound("schema: unknown field %q", name)
	}
	delete(s.fields, name)
	return nil
}

// GetField returns the named field descriptor.
func (s *DocumentSchema) GetField(name string) (Field, bool) {
	f, ok := s.fields[name]
	if !ok {
		return Field{}, false
	}
	return f.Clone(), true
}

// FieldNames returns all field names. Order is unspecified (map-derived),
// matching the teacher's internal.MapKeys helper.
func (s *DocumentSchema) FieldNames() []string {
	return internal.MapKeys(s.fields)
}

// Fields returns all field descriptors. Order is unspecified (map-derived).
func (s *DocumentSchema) Fields() []Field {
	return internal.MapValues(s.fields)
}

// FieldCount returns the number of fields.
func (s *DocumentSchema) FieldCount() int { return len(s.fields) }

// Clone deep-copies the document schema.
func (s *DocumentSchema) Clone() *DocumentSchema {
	out := NewDocumentSchema()
	for _, f := range s.fields {
		_ = out.AddField(f)
	}
	return out
}
