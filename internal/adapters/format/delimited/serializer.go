package delimited

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
)

const Format = "delimited"

// Serializer writes a row as a single CSV record. Nested values have no
// delimited form and are rejected.
type Serializer struct {
	comma rune
}

var _ ports.Serializer = (*Serializer)(nil)

func New(comma rune) *Serializer {
	if comma == 0 {
		comma = ','
	}
	return &Serializer{comma: comma}
}

func (s *Serializer) Format() string {
	return Format
}

func (s *Serializer) Serialize(schema *domain.RowSchema, row domain.Row) ([]byte, error) {
	if schema == nil || schema.Type != domain.RowStruct {
		return nil, fmt.Errorf("%w: delimited rows need a struct schema, got %s", domain.ErrInvalidConfiguration, schema)
	}
	if row.Len() != len(schema.Fields) {
		return nil, fmt.Errorf("row has %d values, schema has %d fields", row.Len(), len(schema.Fields))
	}

	record := make([]string, len(schema.Fields))
	for i, field := range schema.Fields {
		cell, err := formatCell(row.Values[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		record[i] = cell
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = s.comma
	if err := w.Write(record); err != nil {
		return nil, fmt.Errorf("encode delimited row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode delimited row: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\r\n"), nil
}

func formatCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	default:
		return "", fmt.Errorf("%w: %T cannot be written as a delimited value", domain.ErrInvalidConfiguration, value)
	}
}
