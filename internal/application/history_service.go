package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
)

type HistoryService struct {
	runs ports.RunRepository
}

func NewHistoryService(runs ports.RunRepository) *HistoryService {
	return &HistoryService{runs: runs}
}

func (s *HistoryService) Record(ctx context.Context, summary domain.RunSummary) error {
	if err := summary.Validate(); err != nil {
		return fmt.Errorf("invalid run summary: %w", err)
	}
	if err := s.runs.Save(ctx, summary); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	runs, err := s.runs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *HistoryService) Get(ctx context.Context, id domain.RunID) (domain.RunSummary, error) {
	return s.runs.GetByID(ctx, id)
}
