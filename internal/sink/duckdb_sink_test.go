package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadedb/kadedb"
)

func TestDuckDBSinkNotifyWritesRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.duckdb")

	s, err := NewDuckDBSink(path, "mirrored_events")
	require.NoError(t, err)
	defer s.Close()

	event := kadedb.ChangeEvent{
		Target: "users",
		Op:     kadedb.ChangeInsert,
		Rows:   []kadedb.Row{kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("ada"))},
	}
	require.NoError(t, s.Notify(context.Background(), event))

	var count int
	require.NoError(t, s.db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM mirrored_events WHERE target = 'users'").Scan(&count))
	require.Equal(t, 1, count)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
