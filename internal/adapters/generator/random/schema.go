package random

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/bnema/datagen/internal/domain"
)

var structuralKeys = map[string]struct{}{
	"type":      {},
	"name":      {},
	"namespace": {},
	"fields":    {},
	"items":     {},
	"values":    {},
	"symbols":   {},
	"doc":       {},
	"aliases":   {},
	"default":   {},
	"order":     {},
}

// ParseSchema decodes an Avro JSON schema. Keys outside the Avro grammar,
// such as session tags and arg.properties, are kept as schema properties.
// Extra keys on a record field are merged into the field's type.
func ParseSchema(data []byte) (*domain.Schema, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode schema: %w", domain.ErrInvalidConfiguration, err)
	}

	p := &parser{named: map[string]*domain.Schema{}}
	schema, err := p.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return schema, nil
}

type parser struct {
	named map[string]*domain.Schema
}

func (p *parser) parse(raw any) (*domain.Schema, error) {
	switch v := raw.(type) {
	case string:
		if primitive, ok := primitiveType(v); ok {
			return &domain.Schema{Type: primitive}, nil
		}
		if named, ok := p.named[v]; ok {
			return named, nil
		}
		return nil, fmt.Errorf("unknown type %q", v)
	case []any:
		union := &domain.Schema{Type: domain.TypeUnion, Branches: make([]*domain.Schema, 0, len(v))}
		for _, branch := range v {
			parsed, err := p.parse(branch)
			if err != nil {
				return nil, err
			}
			union.Branches = append(union.Branches, parsed)
		}
		return union, nil
	case map[string]any:
		return p.parseObject(v)
	default:
		return nil, fmt.Errorf("unexpected schema node %T", raw)
	}
}

func (p *parser) parseObject(obj map[string]any) (*domain.Schema, error) {
	props := extraProps(obj)

	typeName, ok := obj["type"].(string)
	if !ok {
		inner, err := p.parse(obj["type"])
		if err != nil {
			return nil, err
		}
		return withProps(inner, props), nil
	}

	name, _ := obj["name"].(string)
	schema := &domain.Schema{Name: name, Props: props}

	switch typeName {
	case "record", "error":
		schema.Type = domain.TypeRecord
		if name != "" {
			p.named[name] = schema
		}
		rawFields, _ := obj["fields"].([]any)
		for _, rawField := range rawFields {
			fieldObj, ok := rawField.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %s: field must be an object", name)
			}
			fieldName, _ := fieldObj["name"].(string)
			if fieldName == "" {
				return nil, fmt.Errorf("record %s: field name is required", name)
			}
			fieldSchema, err := p.parse(fieldObj["type"])
			if err != nil {
				return nil, fmt.Errorf("record %s field %s: %w", name, fieldName, err)
			}
			schema.Fields = append(schema.Fields, domain.Field{
				Name:   fieldName,
				Schema: withProps(fieldSchema, extraProps(fieldObj)),
			})
		}
	case "enum":
		schema.Type = domain.TypeEnum
		rawSymbols, _ := obj["symbols"].([]any)
		for _, symbol := range rawSymbols {
			str, ok := symbol.(string)
			if !ok {
				return nil, fmt.Errorf("enum %s: symbols must be strings", name)
			}
			schema.Symbols = append(schema.Symbols, str)
		}
		if len(schema.Symbols) == 0 {
			return nil, fmt.Errorf("enum %s: symbols are required", name)
		}
		if name != "" {
			p.named[name] = schema
		}
	case "array":
		items, err := p.parse(obj["items"])
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		schema.Type = domain.TypeArray
		schema.Items = items
	case "map":
		values, err := p.parse(obj["values"])
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		schema.Type = domain.TypeMap
		schema.Values = values
	default:
		primitive, ok := primitiveType(typeName)
		if !ok {
			named, ok := p.named[typeName]
			if !ok {
				return nil, fmt.Errorf("unknown type %q", typeName)
			}
			return withProps(named, props), nil
		}
		schema.Type = primitive
	}

	return schema, nil
}

func primitiveType(name string) (domain.SchemaType, bool) {
	switch domain.SchemaType(name) {
	case domain.TypeNull, domain.TypeBoolean, domain.TypeInt, domain.TypeLong,
		domain.TypeFloat, domain.TypeDouble, domain.TypeString, domain.TypeBytes:
		return domain.SchemaType(name), true
	}
	return "", false
}

func extraProps(obj map[string]any) map[string]any {
	var props map[string]any
	for key, value := range obj {
		if _, structural := structuralKeys[key]; structural {
			continue
		}
		if props == nil {
			props = map[string]any{}
		}
		props[key] = value
	}
	return props
}

// withProps returns schema with props added, copying it first so shared named
// types are never mutated. Existing properties win.
func withProps(schema *domain.Schema, props map[string]any) *domain.Schema {
	if len(props) == 0 {
		return schema
	}
	clone := *schema
	clone.Props = maps.Clone(schema.Props)
	if clone.Props == nil {
		clone.Props = map[string]any{}
	}
	for key, value := range props {
		if _, exists := clone.Props[key]; !exists {
			clone.Props[key] = value
		}
	}
	return &clone
}
