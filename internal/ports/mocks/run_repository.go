package mocks

import (
	"context"

	"github.com/bnema/datagen/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockRunRepository struct {
	mock.Mock
}

func NewMockRunRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunRepository {
	m := &MockRunRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRunRepository) GetByID(ctx context.Context, id domain.RunID) (domain.RunSummary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.RunSummary), args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context) ([]domain.RunSummary, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]domain.RunSummary)
	return runs, args.Error(1)
}

func (m *MockRunRepository) Save(ctx context.Context, run domain.RunSummary) error {
	return m.Called(ctx, run).Error(0)
}
