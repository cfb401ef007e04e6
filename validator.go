package kadedb

// SchemaValidator checks Rows and Documents against a TableSchema or
// DocumentSchema: type agreement, nullability, and per-column constraints.
// Uniqueness checks need a peer set (existing rows/documents) and are
// exposed separately since they are O(n) over the table/collection rather
// than O(columns) over a single row.
type SchemaValidator struct{}

// NewSchemaValidator constructs a stateless validator.
func NewSchemaValidator() SchemaValidator { return SchemaValidator{} }

// ValidateRow checks row against schema: column count, per-column type
// agreement, nullability, and ColumnConstraints.
func (SchemaValidator) ValidateRow(schema *TableSchema, row Row) *Status {
	cols := schema.Columns()
	if len(row.Values) != len(cols) {
		return InvalidArgument("validator: row has %d values, schema has %d columns", len(row.Values), len(cols))
	}
	for i, col := range cols {
		if st := validateValue(col, row.Values[i]); st != nil {
			return st
		}
	}
	return nil
}

// ValidateDocument checks doc against schema: every field present in doc
// must be declared in schema and satisfy its constraints; every
// non-nullable declared field must be present and non-null in doc.
func (SchemaValidator) ValidateDocument(schema *DocumentSchema, doc Document) *Status {
	for name, v := range doc.Fields {
		field, ok := schema.GetField(name)
		if !ok {
			return InvalidArgument("validator: unknown field %q", name)
		}
		if st := validateValue(field, v); st != nil {
			return st
		}
	}
	for _, name := range schema.FieldNames() {
		field, _ := schema.GetField(name)
		if field.Nullable {
			continue
		}
		v, ok := doc.Fields[name]
		if !ok || v.IsNull() {
			return InvalidArgument("validator: required field %q missing", name)
		}
	}
	return nil
}

func validateValue(col Column, v Value) *Status {
	if v.IsNull() {
		if !col.Nullable {
			return InvalidArgument("column '%s': not nullable", col.Name)
		}
		return nil
	}
	if v.Type() != col.Type {
		return InvalidArgument("column '%s': expects %s, got %s", col.Name, col.Type, v.Type())
	}
	switch col.Type {
	case TypeString:
		s, _ := v.AsString()
		if col.Constraints.MinLength != nil && len(s) < *col.Constraints.MinLength {
			return InvalidArgument("column '%s': string shorter than min_length %d", col.Name, *col.Constraints.MinLength)
		}
		if col.Constraints.MaxLength != nil && len(s) > *col.Constraints.MaxLength {
			return InvalidArgument("column '%s': string longer than max_length %d", col.Name, *col.Constraints.MaxLength)
		}
		if !col.Constraints.allowed(s) {
			return InvalidArgument("column '%s': value %q not in allowed set", col.Name, s)
		}
	case TypeInteger, TypeFloat:
		f, _ := v.AsFloat()
		if col.Constraints.MinValue != nil && f < *col.Constraints.MinValue {
			return InvalidArgument("column '%s': value %v below min_value %v", col.Name, f, *col.Constraints.MinValue)
		}
		if col.Constraints.MaxValue != nil && f > *col.Constraints.MaxValue {
			return InvalidArgument("column '%s': value %v above max_value %v", col.Name, f, *col.Constraints.MaxValue)
		}
	}
	return nil
}

// ValidateUniqueRow reports a Status error when row's unique-column values
// collide with any row in existing (same schema). Null values never
// collide on a unique column — NULL is not equal to itself for uniqueness
// purposes, matching SQL convention and §4.2's "unique constraints ignore
// Null" boundary case.
func (SchemaValidator) ValidateUniqueRow(schema *TableSchema, existing []Row, row Row) *Status {
	cols := schema.Columns()
	for i, col := range cols {
		if !col.Unique {
			continue
		}
		candidate := row.Values[i]
		if candidate.IsNull() {
			continue
		}
		for _, other := range existing {
			if other.Values[i].IsNull() {
				continue
			}
			if Equals(other.Values[i], candidate) {
				return FailedPrecondition("validator: column %q value %s violates uniqueness", col.Name, candidate.String())
			}
		}
	}
	return nil
}

// ValidateUniqueDocument reports a Status error when doc's unique-field
// values collide with any document in existing (same schema).
func (SchemaValidator) ValidateUniqueDocument(schema *DocumentSchema, existing []Document, doc Document) *Status {
	for _, name := range schema.FieldNames() {
		field, _ := schema.GetField(name)
		if !field.Unique {
			continue
		}
		candidate, ok := doc.Fields[name]
		if !ok || candidate.IsNull() {
			continue
		}
		for _, other := range existing {
			ov, ok := other.Fields[name]
			if !ok || ov.IsNull() {
				continue
			}
			if Equals(ov, candidate) {
				return FailedPrecondition("validator: field %q value %s violates uniqueness", name, candidate.String())
			}
		}
	}
	return nil
}
