package domain

import (
	"fmt"
	"strings"
)

type SchemaType string

const (
	TypeNull    SchemaType = "null"
	TypeBoolean SchemaType = "boolean"
	TypeInt     SchemaType = "int"
	TypeLong    SchemaType = "long"
	TypeFloat   SchemaType = "float"
	TypeDouble  SchemaType = "double"
	TypeString  SchemaType = "string"
	TypeBytes   SchemaType = "bytes"
	TypeEnum    SchemaType = "enum"
	TypeRecord  SchemaType = "record"
	TypeArray   SchemaType = "array"
	TypeMap     SchemaType = "map"
	TypeUnion   SchemaType = "union"
)

// Field tags read from a field's schema properties.
const (
	PropSession        = "session"
	PropSessionSibling = "session-sibling-int-hash"
	PropFormatAsTime   = "format_as_time"
	PropArgProperties  = "arg.properties"

	TimeFormatUnixLong = "unix_long"
)

// Schema is the generator's declarative, Avro-style description of a record.
type Schema struct {
	Type     SchemaType
	Name     string
	Fields   []Field
	Items    *Schema
	Values   *Schema
	Symbols  []string
	Branches []*Schema
	Props    map[string]any
}

type Field struct {
	Name   string
	Schema *Schema
}

func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (s *Schema) Prop(name string) (any, bool) {
	if s == nil || s.Props == nil {
		return nil, false
	}
	value, ok := s.Props[name]
	return value, ok
}

func (s *Schema) HasProp(name string) bool {
	_, ok := s.Prop(name)
	return ok
}

// StringProp returns the property rendered as a string, or "" when unset.
func (s *Schema) StringProp(name string) string {
	value, ok := s.Prop(name)
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprint(value)
}

// ArgProperty walks the nested arg.properties map, e.g. ArgProperty("range", "max").
func (s *Schema) ArgProperty(path ...string) (any, bool) {
	current, ok := s.Prop(PropArgProperties)
	if !ok {
		return nil, false
	}
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Nullable reports whether s is a union containing null, returning the single
// non-null branch when there is exactly one.
func (s *Schema) Nullable() (*Schema, bool) {
	if s == nil || s.Type != TypeUnion {
		return nil, false
	}
	var other *Schema
	hasNull := false
	for _, branch := range s.Branches {
		if branch.Type == TypeNull {
			hasNull = true
			continue
		}
		if other != nil {
			return nil, false
		}
		other = branch
	}
	if !hasNull || other == nil {
		return nil, false
	}
	return other, true
}

func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	switch s.Type {
	case TypeRecord:
		names := make([]string, 0, len(s.Fields))
		for _, field := range s.Fields {
			names = append(names, field.Name+":"+field.Schema.String())
		}
		return fmt.Sprintf("record %s{%s}", s.Name, strings.Join(names, ","))
	case TypeArray:
		return "array<" + s.Items.String() + ">"
	case TypeMap:
		return "map<" + s.Values.String() + ">"
	case TypeUnion:
		names := make([]string, 0, len(s.Branches))
		for _, branch := range s.Branches {
			names = append(names, branch.String())
		}
		return "union[" + strings.Join(names, ",") + "]"
	default:
		return string(s.Type)
	}
}

// Record is one generated value of a record schema.
type Record struct {
	Schema *Schema
	Values map[string]any
}

func NewRecord(schema *Schema) *Record {
	return &Record{Schema: schema, Values: make(map[string]any, len(schema.Fields))}
}

func (r *Record) Get(name string) any {
	if r == nil {
		return nil
	}
	return r.Values[name]
}

func (r *Record) Put(name string, value any) {
	r.Values[name] = value
}
