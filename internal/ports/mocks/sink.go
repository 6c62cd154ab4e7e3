package mocks

import (
	"context"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/stretchr/testify/mock"
)

// MockSink records expectations on Send, Flush and Close. Delivery callbacks
// are not invoked; use Run on the Send expectation to drive them.
type MockSink struct {
	mock.Mock
}

func NewMockSink(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSink {
	m := &MockSink{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	return m.Called(ctx, msg, done).Error(0)
}

func (m *MockSink) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSink) Close() error {
	return m.Called().Error(0)
}
