package kadedb

import (
	"bytes"
	"encoding/json"
	"math"
)

// JSONMode selects ToJSON's output shape.
type JSONMode int

const (
	// JSONArray renders the ResultSet as a bare JSON array of objects,
	// one per row, keyed by column name.
	JSONArray JSONMode = iota
	// JSONWrapped renders {"columns": [...], "rows": [[...], ...]}, plus a
	// "types": [...] array when the ResultSet has declared column types —
	// a metadata-wrapped form that preserves column order explicitly
	// and avoids repeating column names per row.
	JSONWrapped
)

// JSONOptions controls ToJSON rendering.
type JSONOptions struct {
	Mode   JSONMode
	Indent string // empty means compact output
}

// ToJSON renders the full ResultSet as JSON text. NaN and +/-Inf Float
// values render as JSON null, since JSON has no literal for them (§6).
func (rs *ResultSet) ToJSON(opts JSONOptions) (string, *Status) {
	rendered, err := renderJSON(rs, opts)
	if err != nil {
		return "", InternalError(err, "json: render failed")
	}
	return string(rendered), nil
}

// WriteJSON implements the same dual-mode required-length probe ABI as
// WriteCSV: it always returns the required buffer length, one byte longer
// than the rendering to account for a trailing NUL. A nil buf only probes
// the length. A non-nil buf shorter than the required length gets as much
// of the rendering as fits, truncated and NUL-terminated in its final
// byte, rather than an error.
func (rs *ResultSet) WriteJSON(buf []byte, opts JSONOptions) (int, *Status) {
	rendered, err := renderJSON(rs, opts)
	if err != nil {
		return 0, InternalError(err, "json: render failed")
	}
	required := len(rendered) + 1
	if len(buf) == 0 {
		return required, nil
	}
	n := len(rendered)
	if n > len(buf)-1 {
		n = len(buf) - 1
	}
	copy(buf, rendered[:n])
	buf[n] = 0
	return required, nil
}

func renderJSON(rs *ResultSet, opts JSONOptions) ([]byte, error) {
	var v any
	switch opts.Mode {
	case JSONWrapped:
		rows := make([][]any, rs.RowCount())
		for i := 0; i < rs.RowCount(); i++ {
			row, _ := rs.Row(i)
			rows[i] = valuesToJSON(row)
		}
		obj := map[string]any{"columns": rs.columns, "rows": rows}
		if rs.types != nil {
			types := make([]string, len(rs.types))
			for i, t := range rs.types {
				types[i] = jsonTypeName(t)
			}
			obj["types"] = types
		}
		v = obj
	default:
		objs := make([]map[string]any, rs.RowCount())
		for i := 0; i < rs.RowCount(); i++ {
			row, _ := rs.Row(i)
			obj := make(map[string]any, len(rs.columns))
			for j, col := range rs.columns {
				obj[col] = valueToJSON(row[j])
			}
			objs[i] = obj
		}
		v = objs
	}
	if opts.Indent != "" {
		return json.MarshalIndent(v, "", opts.Indent)
	}
	return json.Marshal(v)
}

func jsonTypeName(t ValueType) string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeString:
		return "String"
	case TypeBoolean:
		return "Boolean"
	default:
		return "Null"
	}
}

func valuesToJSON(row []Value) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = valueToJSON(v)
	}
	return out
}

func valueToJSON(v Value) any {
	switch v.Type() {
	case TypeNull:
		return nil
	case TypeInteger:
		i, _ := v.AsInt()
		return i
	case TypeFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case TypeString:
		s, _ := v.AsString()
		return s
	case TypeBoolean:
		b, _ := v.AsBool()
		return b
	default:
		return nil
	}
}

// ParseJSON parses a JSON array-of-objects document (§6) back into a
// ResultSet. Columns are the first object's keys; since that object is
// decoded into a Go map, their order is not defined and need not match the
// key order in data. The column set is then held fixed for subsequent rows:
// objects missing one of those keys, or with extra keys not seen in the
// first row, are rejected with InvalidArgument rather than silently
// widening the schema.
func ParseJSON(data []byte) (*ResultSet, *Status) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, InvalidArgument("json: parse error: %v", err)
	}
	if len(raw) == 0 {
		return NewResultSet(nil), nil
	}
	columns := make([]string, 0, len(raw[0]))
	for k := range raw[0] {
		columns = append(columns, k)
	}
	rs := NewResultSet(columns)
	for _, obj := range raw {
		if len(obj) > len(columns) {
			return nil, InvalidArgument("json: row has keys not present in the first row")
		}
		values := make([]Value, len(columns))
		for i, col := range columns {
			raw, ok := obj[col]
			if !ok {
				return nil, InvalidArgument("json: row missing column %q", col)
			}
			v, st := jsonToValue(raw)
			if st != nil {
				return nil, st
			}
			values[i] = v
		}
		if st := rs.AppendRow(values); st != nil {
			return nil, st
		}
	}
	return rs, nil
}

func jsonToValue(raw any) (Value, *Status) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInt(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, InvalidArgument("json: invalid number %q", t.String())
		}
		return NewFloat(f), nil
	default:
		return Value{}, InvalidArgument("json: unsupported value type %T", raw)
	}
}
