package ports

import (
	"context"

	"github.com/bnema/datagen/internal/domain"
)

type RunRepository interface {
	GetByID(ctx context.Context, id domain.RunID) (domain.RunSummary, error)
	List(ctx context.Context) ([]domain.RunSummary, error)
	Save(ctx context.Context, run domain.RunSummary) error
}
