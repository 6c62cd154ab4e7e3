package random

import (
	"fmt"
	"math/rand/v2"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
)

const (
	defaultStringLength = 8
	defaultMaxElements  = 5
	alphanumeric        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator samples records from an Avro schema annotated with arg.properties:
// options, range{min,max}, length{min,max} and iteration{start,step}.
type Generator struct {
	schema     *domain.Schema
	rand       *rand.Rand
	iterations map[*domain.Schema]float64
}

var _ ports.Generator = (*Generator)(nil)

func New(schema *domain.Schema, r *rand.Rand) (*Generator, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is required", domain.ErrInvalidConfiguration)
	}
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{schema: schema, rand: r, iterations: map[*domain.Schema]float64{}}, nil
}

func (g *Generator) Schema() *domain.Schema {
	return g.schema
}

func (g *Generator) Generate() (any, error) {
	return g.generate(g.schema)
}

func (g *Generator) generate(s *domain.Schema) (any, error) {
	if options, ok := s.ArgProperty("options"); ok {
		list, ok := options.([]any)
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("%w: options for %s must be a non-empty list", domain.ErrInvalidConfiguration, s)
		}
		return coerce(s, list[g.rand.IntN(len(list))])
	}

	switch s.Type {
	case domain.TypeNull:
		return nil, nil
	case domain.TypeBoolean:
		return g.rand.IntN(2) == 1, nil
	case domain.TypeInt:
		v, err := g.number(s, false)
		return int32(v), err
	case domain.TypeLong:
		return g.number(s, true)
	case domain.TypeFloat:
		v, err := g.decimal(s)
		return float32(v), err
	case domain.TypeDouble:
		return g.decimal(s)
	case domain.TypeString:
		n, err := g.length(s, defaultStringLength, defaultStringLength+1)
		if err != nil {
			return nil, err
		}
		return g.randomString(n), nil
	case domain.TypeBytes:
		n, err := g.length(s, defaultStringLength, defaultStringLength+1)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		for i := range out {
			out[i] = byte(g.rand.IntN(256))
		}
		return out, nil
	case domain.TypeEnum:
		return s.Symbols[g.rand.IntN(len(s.Symbols))], nil
	case domain.TypeRecord:
		record := domain.NewRecord(s)
		for _, field := range s.Fields {
			value, err := g.generate(field.Schema)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			record.Put(field.Name, value)
		}
		return record, nil
	case domain.TypeArray:
		n, err := g.length(s, 0, defaultMaxElements)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for range n {
			item, err := g.generate(s.Items)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case domain.TypeMap:
		n, err := g.length(s, 0, defaultMaxElements)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for range n {
			value, err := g.generate(s.Values)
			if err != nil {
				return nil, err
			}
			out[g.randomString(defaultStringLength)] = value
		}
		return out, nil
	case domain.TypeUnion:
		if len(s.Branches) == 0 {
			return nil, fmt.Errorf("%w: empty union", domain.ErrInvalidConfiguration)
		}
		return g.generate(s.Branches[g.rand.IntN(len(s.Branches))])
	default:
		return nil, fmt.Errorf("%w: cannot generate %s", domain.ErrInvalidConfiguration, s)
	}
}

// number draws an integer from the iteration sequence, or from
// range{min,max} with max exclusive, or uniformly over the whole type.
func (g *Generator) number(s *domain.Schema, wide bool) (int64, error) {
	if v, ok, err := g.iterate(s); ok || err != nil {
		return int64(v), err
	}

	min, max, ok, err := rangeBounds(s)
	if err != nil {
		return 0, err
	}
	if !ok {
		if wide {
			return int64(g.rand.Uint64()), nil
		}
		return int64(int32(g.rand.Uint32())), nil
	}
	lo, hi := int64(min), int64(max)
	if hi <= lo {
		return 0, fmt.Errorf("%w: integer range max %v must exceed min %v", domain.ErrInvalidConfiguration, max, min)
	}
	return lo + g.rand.Int64N(hi-lo), nil
}

func (g *Generator) decimal(s *domain.Schema) (float64, error) {
	if v, ok, err := g.iterate(s); ok || err != nil {
		return v, err
	}

	min, max, ok, err := rangeBounds(s)
	if err != nil {
		return 0, err
	}
	if !ok {
		return g.rand.Float64(), nil
	}
	if max <= min {
		return 0, fmt.Errorf("%w: range max %v must exceed min %v", domain.ErrInvalidConfiguration, max, min)
	}
	return min + g.rand.Float64()*(max-min), nil
}

func (g *Generator) iterate(s *domain.Schema) (float64, bool, error) {
	raw, ok := s.ArgProperty("iteration")
	if !ok {
		return 0, false, nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return 0, false, fmt.Errorf("%w: iteration must be an object", domain.ErrInvalidConfiguration)
	}

	current, started := g.iterations[s]
	if !started {
		start, _ := domain.AsFloat64(props["start"])
		g.iterations[s] = start
		return start, true, nil
	}

	step := 1.0
	if rawStep, ok := props["step"]; ok {
		if v, ok := domain.AsFloat64(rawStep); ok {
			step = v
		}
	}
	next := current + step
	g.iterations[s] = next
	return next, true, nil
}

func (g *Generator) length(s *domain.Schema, lo, hi int) (int, error) {
	raw, ok := s.ArgProperty("length")
	if !ok {
		if hi <= lo {
			return lo, nil
		}
		return lo + g.rand.IntN(hi-lo), nil
	}

	if n, ok := domain.AsInt64(raw); ok {
		if n < 0 {
			return 0, fmt.Errorf("%w: length must not be negative, got %d", domain.ErrInvalidConfiguration, n)
		}
		return int(n), nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: length must be a number or {min,max}", domain.ErrInvalidConfiguration)
	}
	min, _ := domain.AsInt64(props["min"])
	max, hasMax := domain.AsInt64(props["max"])
	if min < 0 || max < 0 {
		return 0, fmt.Errorf("%w: length bounds must not be negative, got {%d,%d}", domain.ErrInvalidConfiguration, min, max)
	}
	if !hasMax || max <= min {
		return int(min), nil
	}
	return int(min) + g.rand.IntN(int(max-min)), nil
}

func (g *Generator) randomString(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = alphanumeric[g.rand.IntN(len(alphanumeric))]
	}
	return string(out)
}

func rangeBounds(s *domain.Schema) (float64, float64, bool, error) {
	raw, ok := s.ArgProperty("range")
	if !ok {
		return 0, 0, false, nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: range must be an object", domain.ErrInvalidConfiguration)
	}
	min, _ := domain.AsFloat64(props["min"])
	max, ok := domain.AsFloat64(props["max"])
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: range max is required", domain.ErrInvalidConfiguration)
	}
	return min, max, true, nil
}

// coerce converts a decoded JSON option to the Go type generated for s.
func coerce(s *domain.Schema, value any) (any, error) {
	target := s
	if inner, ok := s.Nullable(); ok && value != nil {
		target = inner
	}

	switch target.Type {
	case domain.TypeInt:
		if v, ok := domain.AsInt64(value); ok {
			return int32(v), nil
		}
	case domain.TypeLong:
		if v, ok := domain.AsInt64(value); ok {
			return v, nil
		}
	case domain.TypeFloat:
		if v, ok := domain.AsFloat64(value); ok {
			return float32(v), nil
		}
	case domain.TypeDouble:
		if v, ok := domain.AsFloat64(value); ok {
			return v, nil
		}
	case domain.TypeString, domain.TypeEnum:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case domain.TypeBoolean:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	default:
		return value, nil
	}
	return nil, fmt.Errorf("%w: option %v does not match %s", domain.ErrInvalidConfiguration, value, target)
}
