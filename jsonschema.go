package kadedb

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToJSONSchema renders s as a JSON Schema `object` document: one property
// per column, `required` listing non-nullable columns, `enum`/`minLength`/
// `maxLength`/`minimum`/`maximum` carrying ColumnConstraints.
func (s *TableSchema) ToJSONSchema() ([]byte, error) {
	root := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
	for _, col := range s.Columns() {
		prop, err := columnToJSONSchema(col)
		if err != nil {
			return nil, err
		}
		root.Properties[col.Name] = prop
		if !col.Nullable {
			root.Required = append(root.Required, col.Name)
		}
	}
	return json.Marshal(root)
}

// TableSchemaFromJSONSchema parses doc as a JSON Schema `object` document
// into a TableSchema. Properties whose `type` is not one of the five
// Value tags are rejected with InvalidArgument.
func TableSchemaFromJSONSchema(doc []byte) (*TableSchema, error) {
	var root jsonschema.Schema
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, InvalidArgument("jsonschema: parse error: %v", err)
	}
	required := make(map[string]bool, len(root.Required))
	for _, r := range root.Required {
		required[r] = true
	}
	out := NewTableSchema()
	for name, prop := range root.Properties {
		col, err := columnFromJSONSchema(name, prop, required[name])
		if err != nil {
			return nil, err
		}
		if st := out.AddColumn(col); st != nil {
			return nil, st
		}
	}
	return out, nil
}

// ToJSONSchema renders s as a JSON Schema `object` document, the
// DocumentSchema analog of (*TableSchema).ToJSONSchema.
func (s *DocumentSchema) ToJSONSchema() ([]byte, error) {
	root := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
	for _, name := range s.FieldNames() {
		field, _ := s.GetField(name)
		prop, err := columnToJSONSchema(field)
		if err != nil {
			return nil, err
		}
		root.Properties[name] = prop
		if !field.Nullable {
			root.Required = append(root.Required, name)
		}
	}
	return json.Marshal(root)
}

// DocumentSchemaFromJSONSchema parses doc into a DocumentSchema, the
// DocumentSchema analog of TableSchemaFromJSONSchema.
func DocumentSchemaFromJSONSchema(doc []byte) (*DocumentSchema, error) {
	var root jsonschema.Schema
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, InvalidArgument("jsonschema: parse error: %v", err)
	}
	required := make(map[string]bool, len(root.Required))
	for _, r := range root.Required {
		required[r] = true
	}
	out := NewDocumentSchema()
	for name, prop := range root.Properties {
		field, err := columnFromJSONSchema(name, prop, required[name])
		if err != nil {
			return nil, err
		}
		if st := out.AddField(field); st != nil {
			return nil, st
		}
	}
	return out, nil
}

func columnToJSONSchema(col Column) (*jsonschema.Schema, error) {
	prop := &jsonschema.Schema{}
	switch col.Type {
	case TypeInteger:
		prop.Type = "integer"
	case TypeFloat:
		prop.Type = "number"
	case TypeString:
		prop.Type = "string"
	case TypeBoolean:
		prop.Type = "boolean"
	case TypeNull:
		prop.Type = "null"
	default:
		return nil, fmt.Errorf("jsonschema: column %q has unrepresentable type %s", col.Name, col.Type)
	}
	c := col.Constraints
	if c.MinLength != nil {
		v := *c.MinLength
		prop.MinLength = &v
	}
	if c.MaxLength != nil {
		v := *c.MaxLength
		prop.MaxLength = &v
	}
	if c.MinValue != nil {
		prop.Minimum = c.MinValue
	}
	if c.MaxValue != nil {
		prop.Maximum = c.MaxValue
	}
	for _, v := range c.OneOf {
		prop.Enum = append(prop.Enum, v)
	}
	return prop, nil
}

func columnFromJSONSchema(name string, prop *jsonschema.Schema, required bool) (Column, error) {
	col := Column{Name: name, Nullable: !required}
	switch prop.Type {
	case "integer":
		col.Type = TypeInteger
	case "number":
		col.Type = TypeFloat
	case "string":
		col.Type = TypeString
	case "boolean":
		col.Type = TypeBoolean
	case "null":
		col.Type = TypeNull
	default:
		return Column{}, InvalidArgument("jsonschema: property %q has unsupported type %q", name, prop.Type)
	}
	if prop.MinLength != nil {
		v := *prop.MinLength
		col.Constraints.MinLength = &v
	}
	if prop.MaxLength != nil {
		v := *prop.MaxLength
		col.Constraints.MaxLength = &v
	}
	if prop.Minimum != nil {
		col.Constraints.MinValue = prop.Minimum
	}
	if prop.Maximum != nil {
		col.Constraints.MaxValue = prop.Maximum
	}
	for _, e := range prop.Enum {
		s, ok := e.(string)
		if !ok {
			return Column{}, InvalidArgument("jsonschema: property %q has non-string enum value", name)
		}
		col.Constraints.OneOf = append(col.Constraints.OneOf, s)
	}
	return col, nil
}
