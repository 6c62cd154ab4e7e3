package domain

import (
	"fmt"
	"strings"
)

type RowType string

const (
	RowBoolean RowType = "boolean"
	RowInt32   RowType = "int32"
	RowInt64   RowType = "int64"
	RowFloat32 RowType = "float32"
	RowFloat64 RowType = "float64"
	RowString  RowType = "string"
	RowBytes   RowType = "bytes"
	RowArray   RowType = "array"
	RowMap     RowType = "map"
	RowStruct  RowType = "struct"
)

// RowSchema describes the internal row representation handed to serializers.
// Map keys are always strings.
type RowSchema struct {
	Type     RowType
	Name     string
	Optional bool
	Fields   []RowField
	Key      *RowSchema
	Value    *RowSchema
}

type RowField struct {
	Name   string
	Schema *RowSchema
}

func (s *RowSchema) Field(name string) (RowField, bool) {
	if s == nil {
		return RowField{}, false
	}
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return RowField{}, false
}

func (s *RowSchema) String() string {
	if s == nil {
		return "<nil>"
	}
	suffix := ""
	if s.Optional {
		suffix = "?"
	}
	switch s.Type {
	case RowStruct:
		parts := make([]string, 0, len(s.Fields))
		for _, field := range s.Fields {
			parts = append(parts, field.Name+":"+field.Schema.String())
		}
		return "struct{" + strings.Join(parts, ",") + "}" + suffix
	case RowArray:
		return "array<" + s.Value.String() + ">" + suffix
	case RowMap:
		return "map<" + s.Key.String() + "," + s.Value.String() + ">" + suffix
	default:
		return string(s.Type) + suffix
	}
}

// Struct is a nested record value inside a row.
type Struct struct {
	Schema *RowSchema
	Values map[string]any
}

func (s *Struct) Get(name string) any {
	if s == nil {
		return nil
	}
	return s.Values[name]
}

func (s *Struct) String() string {
	if s == nil {
		return "null"
	}
	parts := make([]string, 0, len(s.Schema.Fields))
	for _, field := range s.Schema.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", field.Name, formatValue(s.Values[field.Name])))
	}
	return "Struct{" + strings.Join(parts, ",") + "}"
}

// Row holds the top-level values of one generated message in schema order.
type Row struct {
	Values []any
}

func NewRow(values ...any) Row {
	return Row{Values: values}
}

func (r Row) Len() int {
	return len(r.Values)
}

func (r Row) String() string {
	parts := make([]string, 0, len(r.Values))
	for _, value := range r.Values {
		parts = append(parts, formatValue(value))
	}
	return "[ " + strings.Join(parts, " | ") + " ]"
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + v + "'"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Message is a serialized row addressed to a topic.
type Message struct {
	Topic string
	Key   string
	Value []byte
	// Row is kept for logging delivery outcomes.
	Row Row
}
