package kadedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSchema(t *testing.T) *TableSchema {
	t.Helper()
	s := NewTableSchema()
	minLen := 1
	require.Nil(t, s.AddColumn(Column{Name: "id", Type: TypeInteger, Nullable: false, Unique: true}))
	require.Nil(t, s.AddColumn(Column{Name: "name", Type: TypeString, Nullable: false, Constraints: ColumnConstraints{MinLength: &minLen}}))
	require.Nil(t, s.AddColumn(Column{Name: "email", Type: TypeString, Nullable: true, Unique: true}))
	return s
}

func TestValidateRowRejectsWrongColumnCount(t *testing.T) {
	v := NewSchemaValidator()
	s := usersSchema(t)
	st := v.ValidateRow(s, NewRow(NewInt(1), NewString("ada")))
	require.NotNil(t, st)
	assert.Equal(t, KindInvalidArgument, st.Kind)
}

func TestValidateRowRejectsNullNonNullable(t *testing.T) {
	v := NewSchemaValidator()
	s := usersSchema(t)
	st := v.ValidateRow(s, NewRow(NullValue(), NewString("ada"), NullValue()))
	require.NotNil(t, st)
}

func TestValidateRowRejectsTooShortString(t *testing.T) {
	v := NewSchemaValidator()
	s := usersSchema(t)
	st := v.ValidateRow(s, NewRow(NewInt(1), NewString(""), NullValue()))
	require.NotNil(t, st)
}

func TestValidateRowAcceptsValid(t *testing.T) {
	v := NewSchemaValidator()
	s := usersSchema(t)
	st := v.ValidateRow(s, NewRow(NewInt(1), NewString("ada"), NullValue()))
	assert.Nil(t, st)
}

func TestValidateUniqueRowIgnoresNulls(t *testing.T) {
	v := NewSchemaValidator()
	s := usersSchema(t)
	existing := []Row{NewRow(NewInt(1), NewString("ada"), NullValue())}
	// a second row with a null email must not collide on the unique email column
	st := v.ValidateUniqueRow(s, existing, NewRow(NewInt(2), NewString("grace"), NullValue()))
	assert.Nil(t, st)

	st = v.ValidateUniqueRow(s, existing, NewRow(NewInt(1), NewString("grace"), NullValue()))
	require.NotNil(t, st)
	assert.Equal(t, KindFailedPrecondition, st.Kind)
}

func TestValidateDocumentRequiresNonNullableFields(t *testing.T) {
	v := NewSchemaValidator()
	s := NewDocumentSchema()
	require.Nil(t, s.AddField(Field{Name: "key", Type: TypeString, Nullable: false}))

	doc := NewDocument()
	st := v.ValidateDocument(s, doc)
	require.NotNil(t, st)

	doc.Set("key", NewString("abc"))
	assert.Nil(t, v.ValidateDocument(s, doc))
}

func TestValidateDocumentRejectsUnknownField(t *testing.T) {
	v := NewSchemaValidator()
	s := NewDocumentSchema()
	require.Nil(t, s.AddField(Field{Name: "key", Type: TypeString, Nullable: true}))

	doc := NewDocument()
	doc.Set("other", NewString("x"))
	st := v.ValidateDocument(s, doc)
	require.NotNil(t, st)
	assert.Equal(t, KindInvalidArgument, st.Kind)
}
