package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadedb/kadedb"
)

func contactsCollection(t *testing.T) *kadedb.DocumentSchema {
	t.Helper()
	s := kadedb.NewDocumentSchema()
	require.Nil(t, s.AddField(kadedb.Field{Name: "email", Type: kadedb.TypeString, Nullable: false, Unique: true}))
	require.Nil(t, s.AddField(kadedb.Field{Name: "age", Type: kadedb.TypeInteger, Nullable: true}))
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	doc := kadedb.NewDocument()
	doc.Set("email", kadedb.NewString("ada@example.com"))
	doc.Set("age", kadedb.NewInt(36))
	require.Nil(t, d.Put(ctx, "contacts", "c1", doc))

	got, st := d.Get("contacts", "c1")
	require.Nil(t, st)
	email, _ := got.Get("email")
	s, _ := email.AsString()
	assert.Equal(t, "ada@example.com", s)
}

func TestPutRejectsDuplicateUniqueField(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	first := kadedb.NewDocument()
	first.Set("email", kadedb.NewString("ada@example.com"))
	first.Set("age", kadedb.NewInt(36))
	require.Nil(t, d.Put(ctx, "contacts", "c1", first))

	second := kadedb.NewDocument()
	second.Set("email", kadedb.NewString("ada@example.com"))
	second.Set("age", kadedb.NewInt(41))
	st := d.Put(ctx, "contacts", "c2", second)
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindFailedPrecondition, st.Kind)

	_, getSt := d.Get("contacts", "c2")
	require.NotNil(t, getSt)
	assert.Equal(t, kadedb.KindNotFound, getSt.Kind)
}

func TestPutSameKeyReplacesWithoutTrippingUniqueness(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	doc := kadedb.NewDocument()
	doc.Set("email", kadedb.NewString("ada@example.com"))
	doc.Set("age", kadedb.NewInt(36))
	require.Nil(t, d.Put(ctx, "contacts", "c1", doc))

	updated := kadedb.NewDocument()
	updated.Set("email", kadedb.NewString("ada@example.com"))
	updated.Set("age", kadedb.NewInt(37))
	require.Nil(t, d.Put(ctx, "contacts", "c1", updated))

	got, st := d.Get("contacts", "c1")
	require.Nil(t, st)
	age, _ := got.Get("age")
	v, _ := age.AsInt()
	assert.Equal(t, int64(37), v)
}

func TestQueryRejectsUnknownFieldUpfront(t *testing.T) {
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	_, st := d.Query("contacts", docPredPtr(kadedb.DocComparison("nickname", kadedb.OpEq, kadedb.NewString("x"))), nil)
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindInvalidArgument, st.Kind)
}

func TestQueryWithProjection(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	doc := kadedb.NewDocument()
	doc.Set("email", kadedb.NewString("grace@example.com"))
	doc.Set("age", kadedb.NewInt(41))
	require.Nil(t, d.Put(ctx, "contacts", "c1", doc))

	results, st := d.Query("contacts", docPredPtr(kadedb.DocComparison("age", kadedb.OpGt, kadedb.NewInt(40))), []string{"email"})
	require.Nil(t, st)
	require.Len(t, results, 1)
	assert.False(t, results[0].Document.Has("age"))
	assert.True(t, results[0].Document.Has("email"))
}

func TestQueryRejectsUnknownProjectionFieldUpfront(t *testing.T) {
	d := NewDocument()
	schema := contactsCollection(t)
	require.Nil(t, d.CreateCollection("contacts", schema))

	_, st := d.Query("contacts", nil, []string{"nickname"})
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindInvalidArgument, st.Kind)
}

func TestEraseAndCount(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	require.Nil(t, d.CreateCollection("notes", nil))

	require.Nil(t, d.Put(ctx, "notes", "n1", kadedb.NewDocument()))
	require.Nil(t, d.Put(ctx, "notes", "n2", kadedb.NewDocument()))

	n, st := d.Count("notes")
	require.Nil(t, st)
	assert.Equal(t, 2, n)

	require.Nil(t, d.Erase(ctx, "notes", "n1"))
	n, st = d.Count("notes")
	require.Nil(t, st)
	assert.Equal(t, 1, n)
}

func TestPutRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	require.Nil(t, d.CreateCollection("notes", nil))

	st := d.Put(ctx, "notes", "", kadedb.NewDocument())
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindInvalidArgument, st.Kind)
}

func TestPutAcceptsMintedDocumentKey(t *testing.T) {
	ctx := context.Background()
	d := NewDocument()
	require.Nil(t, d.CreateCollection("notes", nil))

	key := kadedb.NewDocumentKey()
	require.Nil(t, d.Put(ctx, "notes", key, kadedb.NewDocument()))

	_, st := d.Get("notes", key)
	require.Nil(t, st)
}

func docPredPtr(p kadedb.DocPredicate) *kadedb.DocPredicate { return &p }
