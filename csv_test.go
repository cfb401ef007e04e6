package kadedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResultSet(t *testing.T) *ResultSet {
	t.Helper()
	rs := NewResultSet([]string{"id", "name"})
	require.Nil(t, rs.AppendRow([]Value{NewInt(1), NewString("ada, lovelace")}))
	require.Nil(t, rs.AppendRow([]Value{NewInt(2), NewString(`quote"inside`)}))
	return rs
}

// Invariant #2: parseCSV(R.toCSV(',', header=true)) recovers the same
// (columns, values) up to the textual rendering of values.
func TestCSVRoundTrip(t *testing.T) {
	rs := sampleResultSet(t)
	opts := CSVOptions{IncludeHeader: true}
	text, st := rs.ToCSV(opts)
	require.Nil(t, st)

	parsed, st := ParseCSV(text, opts, true)
	require.Nil(t, st)
	assert.Equal(t, rs.Columns(), parsed.Columns())
	assert.Equal(t, rs.RowCount(), parsed.RowCount())

	for i := 0; i < rs.RowCount(); i++ {
		want, _ := rs.Row(i)
		got, _ := parsed.Row(i)
		for j := range want {
			ws := want[j].String()
			gs, _ := got[j].AsString()
			assert.Equal(t, ws, gs)
		}
	}
}

func TestCSVWriteProbeDualModeABI(t *testing.T) {
	rs := sampleResultSet(t)
	opts := CSVOptions{IncludeHeader: true}

	rendered := renderCSV(rs, opts)

	n, st := rs.WriteCSV(nil, opts)
	require.Nil(t, st)
	assert.Equal(t, len(rendered)+1, n)

	tooSmall := make([]byte, n-1)
	required, st := rs.WriteCSV(tooSmall, opts)
	require.Nil(t, st)
	assert.Equal(t, n, required)
	assert.Equal(t, byte(0), tooSmall[len(tooSmall)-1])
	assert.Equal(t, rendered[:len(tooSmall)-1], tooSmall[:len(tooSmall)-1])

	buf := make([]byte, n)
	required, st = rs.WriteCSV(buf, opts)
	require.Nil(t, st)
	assert.Equal(t, n, required)
	assert.Equal(t, rendered, buf[:len(rendered)])
	assert.Equal(t, byte(0), buf[len(rendered)])
}

// S4. toCSV with columns=["a","b"], rows=[("x,y",1),(`"q"`,2)] -> header
// "a,b\n", then "\"x,y\",1\n" and "\"\"\"q\"\"\",2\n"; required_len equals
// the byte length of the full output plus 1.
func TestScenarioS4CSVLineSeparatorAndRequiredLen(t *testing.T) {
	rs := NewResultSet([]string{"a", "b"})
	require.Nil(t, rs.AppendRow([]Value{NewString("x,y"), NewInt(1)}))
	require.Nil(t, rs.AppendRow([]Value{NewString(`"q"`), NewInt(2)}))

	opts := CSVOptions{IncludeHeader: true}
	text, st := rs.ToCSV(opts)
	require.Nil(t, st)
	assert.Equal(t, "a,b\n\"x,y\",1\n\"\"\"q\"\"\",2\n", text)
	assert.NotContains(t, text, "\r")

	n, st := rs.WriteCSV(nil, opts)
	require.Nil(t, st)
	assert.Equal(t, len(text)+1, n)
}

func TestCSVQuotesFieldsWithDelimiterOrQuote(t *testing.T) {
	rs := sampleResultSet(t)
	text, st := rs.ToCSV(CSVOptions{IncludeHeader: false})
	require.Nil(t, st)
	assert.Contains(t, text, `"ada, lovelace"`)
	assert.Contains(t, text, `"quote""inside"`)
}
