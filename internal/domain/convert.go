package domain

import (
	"fmt"
	"math"
)

// ToRowSchema converts a generator schema into the internal row schema.
// Nullable unions become optional schemas; other unions are rejected.
func ToRowSchema(schema *Schema) (*RowSchema, error) {
	return toRowSchema(schemaPath(schema), schema)
}

func toRowSchema(path string, schema *Schema) (*RowSchema, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: missing schema at %s", ErrInvalidConfiguration, path)
	}

	switch schema.Type {
	case TypeBoolean:
		return &RowSchema{Type: RowBoolean}, nil
	case TypeInt:
		return &RowSchema{Type: RowInt32}, nil
	case TypeLong:
		return &RowSchema{Type: RowInt64}, nil
	case TypeFloat:
		return &RowSchema{Type: RowFloat32}, nil
	case TypeDouble:
		return &RowSchema{Type: RowFloat64}, nil
	case TypeString, TypeEnum:
		return &RowSchema{Type: RowString}, nil
	case TypeBytes:
		return &RowSchema{Type: RowBytes}, nil
	case TypeArray:
		items, err := toRowSchema(path+"[]", schema.Items)
		if err != nil {
			return nil, err
		}
		return &RowSchema{Type: RowArray, Value: items}, nil
	case TypeMap:
		values, err := toRowSchema(path+"{}", schema.Values)
		if err != nil {
			return nil, err
		}
		return &RowSchema{Type: RowMap, Key: &RowSchema{Type: RowString}, Value: values}, nil
	case TypeRecord:
		out := &RowSchema{Type: RowStruct, Name: schema.Name, Fields: make([]RowField, 0, len(schema.Fields))}
		for _, field := range schema.Fields {
			converted, err := toRowSchema(path+"."+field.Name, field.Schema)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, RowField{Name: field.Name, Schema: converted})
		}
		return out, nil
	case TypeUnion:
		inner, ok := schema.Nullable()
		if !ok {
			return nil, fmt.Errorf("%w: unsupported union %s at %s", ErrInvalidConfiguration, schema, path)
		}
		converted, err := toRowSchema(path, inner)
		if err != nil {
			return nil, err
		}
		converted.Optional = true
		return converted, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %q at %s", ErrInvalidConfiguration, schema.Type, path)
	}
}

// OptionalSchema widens every level of schema to optional: struct fields,
// array elements and map keys and values. Types downstream consumers cannot
// read as nullable (float32, bytes) are rejected.
func OptionalSchema(schema *RowSchema) (*RowSchema, error) {
	return optionalSchema(rowSchemaPath(schema), schema)
}

func optionalSchema(path string, schema *RowSchema) (*RowSchema, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: missing schema at %s", ErrInvalidConfiguration, path)
	}

	switch schema.Type {
	case RowBoolean, RowInt32, RowInt64, RowFloat64, RowString:
		return &RowSchema{Type: schema.Type, Optional: true}, nil
	case RowArray:
		value, err := optionalSchema(path+"[]", schema.Value)
		if err != nil {
			return nil, err
		}
		return &RowSchema{Type: RowArray, Value: value, Optional: true}, nil
	case RowMap:
		key, err := optionalSchema(path+"{key}", schema.Key)
		if err != nil {
			return nil, err
		}
		value, err := optionalSchema(path+"{}", schema.Value)
		if err != nil {
			return nil, err
		}
		return &RowSchema{Type: RowMap, Key: key, Value: value, Optional: true}, nil
	case RowStruct:
		out := &RowSchema{Type: RowStruct, Name: schema.Name, Optional: true, Fields: make([]RowField, 0, len(schema.Fields))}
		for _, field := range schema.Fields {
			widened, err := optionalSchema(path+"."+field.Name, field.Schema)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, RowField{Name: field.Name, Schema: widened})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %s at %s", ErrInvalidConfiguration, schema, path)
	}
}

// RowValue converts a generated value into its row representation under schema.
// Nested records become *Struct values carrying the (optional) nested schema.
func RowValue(schema *RowSchema, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch schema.Type {
	case RowBoolean:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case RowInt32:
		if v, ok := AsInt64(value); ok && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int32(v), nil
		}
	case RowInt64:
		if v, ok := AsInt64(value); ok {
			return v, nil
		}
	case RowFloat32:
		if v, ok := AsFloat64(value); ok {
			return float32(v), nil
		}
	case RowFloat64:
		if v, ok := AsFloat64(value); ok {
			return v, nil
		}
	case RowString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case RowBytes:
		if v, ok := value.([]byte); ok {
			return v, nil
		}
	case RowArray:
		list, ok := value.([]any)
		if !ok {
			break
		}
		out := make([]any, 0, len(list))
		for _, item := range list {
			converted, err := RowValue(schema.Value, item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case RowMap:
		entries, ok := value.(map[string]any)
		if !ok {
			break
		}
		out := make(map[string]any, len(entries))
		for key, item := range entries {
			converted, err := RowValue(schema.Value, item)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case RowStruct:
		record, ok := value.(*Record)
		if !ok {
			break
		}
		out := &Struct{Schema: schema, Values: make(map[string]any, len(schema.Fields))}
		for _, field := range schema.Fields {
			converted, err := RowValue(field.Schema, record.Get(field.Name))
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			out.Values[field.Name] = converted
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: value %v (%T) does not match %s", ErrGeneratorContract, value, value, schema)
}

func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func AsFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func schemaPath(schema *Schema) string {
	if schema == nil || schema.Name == "" {
		return "$"
	}
	return schema.Name
}

func rowSchemaPath(schema *RowSchema) string {
	if schema == nil || schema.Name == "" {
		return "$"
	}
	return schema.Name
}
