package kadedb

import (
	"bufio"
	"bytes"
	"strings"
)

// CSVOptions controls ToCSV/WriteCSV rendering.
type CSVOptions struct {
	Delimiter     byte // default ',' when zero
	IncludeHeader bool
	AlwaysQuote   bool
	QuoteChar     byte // default '"' when zero
}

func (o CSVOptions) delimiter() byte {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o CSVOptions) quoteChar() byte {
	if o.QuoteChar == 0 {
		return '"'
	}
	return o.QuoteChar
}

// ToCSV renders the full ResultSet as CSV text.
func (rs *ResultSet) ToCSV(opts CSVOptions) (string, *Status) {
	return string(renderCSV(rs, opts)), nil
}

// WriteCSV implements the spec's dual-mode required-length probe ABI: it
// always returns the required buffer length, one byte longer than the
// rendering itself to account for a trailing NUL. A nil buf only probes
// the length and writes nothing. A non-nil buf shorter than the required
// length gets as much of the rendering as fits, truncated and
// NUL-terminated in its final byte, rather than an error.
func (rs *ResultSet) WriteCSV(buf []byte, opts CSVOptions) (int, *Status) {
	rendered := renderCSV(rs, opts)
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

func renderCSV(rs *ResultSet, opts CSVOptions) []byte {
	var out bytes.Buffer
	delim := opts.delimiter()
	quote := opts.quoteChar()
	if opts.IncludeHeader {
		writeCSVRecord(&out, rs.columns, delim, quote, opts.AlwaysQuote)
	}
	for i := 0; i < rs.RowCount(); i++ {
		row, _ := rs.Row(i)
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = v.String()
		}
		writeCSVRecord(&out, fields, delim, quote, opts.AlwaysQuote)
	}
	return out.Bytes()
}

func writeCSVRecord(out *bytes.Buffer, fields []string, delim, quote byte, alwaysQuote bool) {
	for i, f := range fields {
		if i > 0 {
			out.WriteByte(delim)
		}
		out.WriteString(csvEncodeField(f, delim, quote, alwaysQuote))
	}
	out.WriteByte('\n')
}

func csvEncodeField(field string, delim, quote byte, alwaysQuote bool) string {
	needsQuote := alwaysQuote ||
		strings.IndexByte(field, delim) >= 0 ||
		strings.IndexByte(field, quote) >= 0 ||
		strings.ContainsAny(field, "\r\n")
	if !needsQuote {
		return field
	}
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(field); i++ {
		if field[i] == quote {
			b.WriteByte(quote)
		}
		b.WriteByte(field[i])
	}
	b.WriteByte(quote)
	return b.String()
}

// ParseCSV parses CSV text back into a ResultSet, the inverse of ToCSV
// when hasHeader is true (the first record supplies column names). When
// hasHeader is false, columns are synthesized as col0..colN-1.
func ParseCSV(data string, opts CSVOptions, hasHeader bool) (*ResultSet, *Status) {
	delim := rune(opts.delimiter())
	quote := opts.quoteChar()
	records, err := parseCSVRecords(data, byte(delim), quote)
	if err != nil {
		return nil, InvalidArgument("csv: parse error: %v", err)
	}
	if len(records) == 0 {
		return NewResultSet(nil), nil
	}
	var columns []string
	start := 0
	if hasHeader {
		columns = records[0]
		start = 1
	} else {
		columns = make([]string, len(records[0]))
		for i := range columns {
			columns[i] = columnName(i)
		}
	}
	rs := NewResultSet(columns)
	for _, rec := range records[start:] {
		values := make([]Value, len(rec))
		for i, f := range rec {
			values[i] = NewString(f)
		}
		if st := rs.AppendRow(values); st != nil {
			return nil, st
		}
	}
	return rs, nil
}

func columnName(i int) string {
	return "col" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// parseCSVRecords is a minimal RFC4180-style reader supporting a
// configurable delimiter and quote character, matching csvEncodeField's
// doubled-quote escaping.
func parseCSVRecords(data string, delim, quote byte) ([][]string, error) {
	var records [][]string
	var field strings.Builder
	var record []string
	inQuotes := false
	r := bufio.NewReader(strings.NewReader(data))
	flushField := func() {
		record = append(record, field.String())
		field.Reset()
	}
	flushRecord := func() {
		flushField()
		records = append(records, record)
		record = nil
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		switch {
		case inQuotes:
			if b == quote {
				next, err := r.ReadByte()
				if err == nil && next == quote {
					field.WriteByte(quote)
				} else {
					inQuotes = false
					if err == nil {
						_ = r.UnreadByte()
					}
				}
			} else {
				field.WriteByte(b)
			}
		case b == quote:
			inQuotes = true
		case b == delim:
			flushField()
		case b == '\r':
			// peek for \n, swallow either way
			next, err := r.ReadByte()
			if err == nil && next != '\n' {
				_ = r.UnreadByte()
			}
			flushRecord()
		case b == '\n':
			flushRecord()
		default:
			field.WriteByte(b)
		}
	}
	if field.Len() > 0 || len(record) > 0 {
		flushRecord()
	}
	return records, nil
}
