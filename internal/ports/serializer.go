package ports

import "github.com/bnema/datagen/internal/domain"

type Serializer interface {
	Format() string
	Serialize(schema *domain.RowSchema, row domain.Row) ([]byte, error)
}
