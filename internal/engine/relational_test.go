package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadedb/kadedb"
)

func usersTable(t *testing.T) *kadedb.TableSchema {
	t.Helper()
	s := kadedb.NewTableSchema()
	require.Nil(t, s.AddColumn(kadedb.Column{Name: "id", Type: kadedb.TypeInteger, Nullable: false, Unique: true}))
	require.Nil(t, s.AddColumn(kadedb.Column{Name: "name", Type: kadedb.TypeString, Nullable: false}))
	require.Nil(t, s.AddColumn(kadedb.Column{Name: "age", Type: kadedb.TypeInteger, Nullable: true}))
	return s
}

// S1. users(id NOT NULL UNIQUE, name NOT NULL, age NULL); insert (1,"Ada",36),
// (2,"Grace",41); select name where age>36 returns one row with name="Grace".
func TestScenarioS1SelectWithPredicate(t *testing.T) {
	ctx := context.Background()
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))

	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Ada"), kadedb.NewInt(36))))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(2), kadedb.NewString("Grace"), kadedb.NewInt(41))))

	rs, st := r.Select("users", []string{"name"}, predPtr(kadedb.Comparison("age", kadedb.OpGt, kadedb.NewInt(36))))
	require.Nil(t, st)
	require.Equal(t, 1, rs.RowCount())
	require.Equal(t, 1, rs.ColumnCount())

	idx, ok := rs.FindColumn("name")
	require.True(t, ok)
	v, _ := rs.At(0, idx)
	name, _ := v.AsString()
	assert.Equal(t, "Grace", name)
}

// Unknown projected column names are rejected before any row is scanned.
func TestSelectUnknownProjectedColumnIsInvalidArgument(t *testing.T) {
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))

	_, st := r.Select("users", []string{"nonexistent"}, nil)
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindInvalidArgument, st.Kind)
}

// S2. updateRows age:=42 where name="Grace" returns 1; subsequent select
// name,age yields (1,"Ada",36), (2,"Grace",42).
func TestScenarioS2UpdateRows(t *testing.T) {
	ctx := context.Background()
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Ada"), kadedb.NewInt(36))))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(2), kadedb.NewString("Grace"), kadedb.NewInt(41))))

	n, st := r.UpdateRows(ctx, "users", predPtr(kadedb.Comparison("name", kadedb.OpEq, kadedb.NewString("Grace"))),
		func(row kadedb.Row) kadedb.Row {
			row.Values[2] = kadedb.NewInt(42)
			return row
		})
	require.Nil(t, st)
	assert.Equal(t, 1, n)

	rs, st := r.Select("users", nil, nil)
	require.Nil(t, st)
	require.Equal(t, 2, rs.RowCount())

	ageIdx, _ := rs.FindColumn("age")
	nameIdx, _ := rs.FindColumn("name")
	found := map[string]int64{}
	for i := 0; i < rs.RowCount(); i++ {
		nv, _ := rs.At(i, nameIdx)
		av, _ := rs.At(i, ageIdx)
		name, _ := nv.AsString()
		age, _ := av.AsInt()
		found[name] = age
	}
	assert.Equal(t, int64(36), found["Ada"])
	assert.Equal(t, int64(42), found["Grace"])
}

// S3. Insert (1,"Dup",null) into S1's table -> FailedPrecondition
// (duplicate unique id); table unchanged.
func TestScenarioS3DuplicateUniqueLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Ada"), kadedb.NewInt(36))))

	st := r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Dup"), kadedb.NullValue()))
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindFailedPrecondition, st.Kind)

	rs, _ := r.Select("users", nil, nil)
	assert.Equal(t, 1, rs.RowCount())
}

func TestEmptyTableSelectHasColumnsNoRows(t *testing.T) {
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))

	rs, st := r.Select("users", nil, nil)
	require.Nil(t, st)
	assert.Equal(t, 0, rs.RowCount())
	assert.Equal(t, 3, rs.ColumnCount())
}

func TestDeleteRowsRemovesMatches(t *testing.T) {
	ctx := context.Background()
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Ada"), kadedb.NewInt(36))))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(2), kadedb.NewString("Grace"), kadedb.NewInt(41))))

	n, st := r.DeleteRows(ctx, "users", predPtr(kadedb.Comparison("id", kadedb.OpEq, kadedb.NewInt(1))))
	require.Nil(t, st)
	assert.Equal(t, 1, n)

	rs, _ := r.Select("users", nil, nil)
	assert.Equal(t, 1, rs.RowCount())
}

func TestDropAndTruncateTable(t *testing.T) {
	ctx := context.Background()
	r := NewRelational()
	schema := usersTable(t)
	require.Nil(t, r.CreateTable("users", schema))
	require.Nil(t, r.InsertRow(ctx, "users", kadedb.NewRow(kadedb.NewInt(1), kadedb.NewString("Ada"), kadedb.NewInt(36))))

	require.Nil(t, r.TruncateTable("users"))
	rs, _ := r.Select("users", nil, nil)
	assert.Equal(t, 0, rs.RowCount())

	require.Nil(t, r.DropTable("users"))
	_, st := r.Select("users", nil, nil)
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindNotFound, st.Kind)
}

func predPtr(p kadedb.Predicate) *kadedb.Predicate { return &p }
