package json

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const Format = "json"

// Serializer encodes a row as a JSON object with keys in schema order.
type Serializer struct{}

var _ ports.Serializer = Serializer{}

func New() Serializer {
	return Serializer{}
}

func (Serializer) Format() string {
	return Format
}

func (Serializer) Serialize(schema *domain.RowSchema, row domain.Row) ([]byte, error) {
	if schema == nil || schema.Type != domain.RowStruct {
		return nil, fmt.Errorf("%w: json rows need a struct schema, got %s", domain.ErrInvalidConfiguration, schema)
	}
	if row.Len() != len(schema.Fields) {
		return nil, fmt.Errorf("row has %d values, schema has %d fields", row.Len(), len(schema.Fields))
	}

	object := orderedmap.New[string, any](len(schema.Fields))
	for i, field := range schema.Fields {
		object.Set(field.Name, encodeValue(row.Values[i]))
	}

	data, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("encode json row: %w", err)
	}
	return data, nil
}

func encodeValue(value any) any {
	switch v := value.(type) {
	case *domain.Struct:
		if v == nil {
			return nil
		}
		object := orderedmap.New[string, any](len(v.Schema.Fields))
		for _, field := range v.Schema.Fields {
			object.Set(field.Name, encodeValue(v.Values[field.Name]))
		}
		return object
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = encodeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = encodeValue(item)
		}
		return out
	default:
		return v
	}
}
