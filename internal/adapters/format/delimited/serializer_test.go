package delimited

import (
	"testing"

	"github.com/bnema/datagen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSchema(names ...string) *domain.RowSchema {
	schema := &domain.RowSchema{Type: domain.RowStruct, Optional: true}
	for _, name := range names {
		schema.Fields = append(schema.Fields, domain.RowField{Name: name, Schema: &domain.RowSchema{Type: domain.RowString, Optional: true}})
	}
	return schema
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		comma rune
		row   domain.Row
		want  string
	}{
		{
			name: "scalars in schema order",
			row:  domain.NewRow("1.2.3.4", int32(7), int64(1500), 0.5, true),
			want: "1.2.3.4,7,1500,0.5,true",
		},
		{
			name: "quotes values containing the delimiter",
			row:  domain.NewRow("GET /a, b", int32(1), int64(2), 1.0, false),
			want: `"GET /a, b",1,2,1,false`,
		},
		{
			name:  "custom delimiter and null",
			comma: '|',
			row:   domain.NewRow(nil, int32(1), int64(2), 3.25, false),
			want:  "|1|2|3.25|false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := New(tt.comma).Serialize(flatSchema("a", "b", "c", "d", "e"), tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestSerializeRejectsNestedValues(t *testing.T) {
	t.Parallel()

	_, err := New(0).Serialize(flatSchema("a"), domain.NewRow([]any{"x"}))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = New(0).Serialize(flatSchema("a"), domain.NewRow(&domain.Struct{}))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
