package kadedb

// ResultSet is the output container of select/query operations: a named
// column list plus a sequence of rows, all the same width as the column
// list. It is produced once and read many times; it does not hold a lock
// on the engine that produced it (§4.5).
type ResultSet struct {
	columns []string
	types   []ValueType
	rows    [][]Value
}

// NewResultSet constructs a ResultSet with the given column names and no
// declared column types. Use NewTypedResultSet when the producer knows
// each column's ValueType (e.g. a relational select, which can read it
// straight off the table's schema); ToJSON's metadata-wrapped mode omits
// the "types" array entirely when it was never supplied.
func NewResultSet(columns []string) *ResultSet {
	return &ResultSet{columns: append([]string(nil), columns...)}
}

// NewTypedResultSet constructs a ResultSet with both column names and
// their declared Value types (len(types) must equal len(columns)).
func NewTypedResultSet(columns []string, types []ValueType) *ResultSet {
	return &ResultSet{
		columns: append([]string(nil), columns...),
		types:   append([]ValueType(nil), types...),
	}
}

// Types returns the declared column types, or nil if the ResultSet was
// built without them.
func (rs *ResultSet) Types() []ValueType {
	if rs.types == nil {
		return nil
	}
	return append([]ValueType(nil), rs.types...)
}

// AppendRow appends one row. Its length must equal ColumnCount.
func (rs *ResultSet) AppendRow(values []Value) *Status {
	if len(values) != len(rs.columns) {
		return InvalidArgument("resultset: row has %d values, expected %d", len(values), len(rs.columns))
	}
	row := make([]Value, len(values))
	for i, v := range values {
		row[i] = v.Clone()
	}
	rs.rows = append(rs.rows, row)
	return nil
}

// ColumnCount returns the number of columns.
func (rs *ResultSet) ColumnCount() int { return len(rs.columns) }

// RowCount returns the number of rows.
func (rs *ResultSet) RowCount() int { return len(rs.rows) }

// Columns returns the column names, in order.
func (rs *ResultSet) Columns() []string {
	return append([]string(nil), rs.columns...)
}

// FindColumn returns the index of the named column, or (-1, false).
func (rs *ResultSet) FindColumn(name string) (int, bool) {
	for i, c := range rs.columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// At returns the value at (row, col). Out-of-range indices return
// InvalidArgument.
func (rs *ResultSet) At(row, col int) (Value, *Status) {
	if row < 0 || row >= len(rs.rows) {
		return Value{}, InvalidArgument("resultset: row index %d out of range [0,%d)", row, len(rs.rows))
	}
	if col < 0 || col >= len(rs.columns) {
		return Value{}, InvalidArgument("resultset: column index %d out of range [0,%d)", col, len(rs.columns))
	}
	return rs.rows[row][col], nil
}

// Row returns a copy of the values in the given row.
func (rs *ResultSet) Row(i int) ([]Value, *Status) {
	if i < 0 || i >= len(rs.rows) {
		return nil, InvalidArgument("resultset: row index %d out of range [0,%d)", i, len(rs.rows))
	}
	out := make([]Value, len(rs.columns))
	for j, v := range rs.rows[i] {
		out[j] = v.Clone()
	}
	return out, nil
}

// Paginate returns the rows in [offset, offset+limit) as a new ResultSet
// sharing the same column list. An offset past the end yields zero rows;
// limit <= 0 yields zero rows. Neither argument is an error condition; this
// is the saturating, offset/limit-flavored sibling of PaginationBounds,
// which implements §4.5/§6's page_index-flavored math and does raise
// InvalidArgument on an out-of-range index.
func (rs *ResultSet) Paginate(offset, limit int) *ResultSet {
	out := NewTypedResultSet(rs.columns, rs.types)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rs.rows) || limit <= 0 {
		return out
	}
	end := offset + limit
	if end > len(rs.rows) {
		end = len(rs.rows)
	}
	for _, row := range rs.rows[offset:end] {
		_ = out.AppendRow(row)
	}
	return out
}

// PaginationBounds computes [start, end) for page pageIndex of pageSize
// over totalRows rows (§4.5/§6). page_size == 0 means a single page
// covering the whole set (when non-empty); otherwise total_pages =
// ceil(totalRows/pageSize) and pageIndex >= total_pages is InvalidArgument.
func PaginationBounds(totalRows, pageSize, pageIndex int) (start, end int, st *Status) {
	if totalRows < 0 {
		return 0, 0, InvalidArgument("resultset: total_rows must be non-negative, got %d", totalRows)
	}
	if pageSize < 0 {
		return 0, 0, InvalidArgument("resultset: page_size must be non-negative, got %d", pageSize)
	}
	if pageIndex < 0 {
		return 0, 0, InvalidArgument("resultset: page_index must be non-negative, got %d", pageIndex)
	}
	if pageSize == 0 {
		if totalRows == 0 {
			return 0, 0, nil
		}
		if pageIndex != 0 {
			return 0, 0, InvalidArgument("resultset: page_index %d out of range (page_size=0 has exactly one page)", pageIndex)
		}
		return 0, totalRows, nil
	}
	totalPages := (totalRows + pageSize - 1) / pageSize
	if pageIndex >= totalPages {
		return 0, 0, InvalidArgument("resultset: page_index %d out of range [0,%d)", pageIndex, totalPages)
	}
	start = pageIndex * pageSize
	end = start + pageSize
	if end > totalRows {
		end = totalRows
	}
	return start, end, nil
}

// Page returns page pageIndex of pageSize rows as a new ResultSet sharing
// the same column list, per PaginationBounds. InvalidArgument propagates
// from an out-of-range pageIndex.
func (rs *ResultSet) Page(pageSize, pageIndex int) (*ResultSet, *Status) {
	start, end, st := PaginationBounds(len(rs.rows), pageSize, pageIndex)
	if st != nil {
		return nil, st
	}
	out := NewTypedResultSet(rs.columns, rs.types)
	for _, row := range rs.rows[start:end] {
		_ = out.AppendRow(row)
	}
	return out, nil
}
