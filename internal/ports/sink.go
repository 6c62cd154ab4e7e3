package ports

import (
	"context"
	"time"

	"github.com/bnema/datagen/internal/domain"
)

// DeliveryCallback receives the outcome of one Send. On success err is nil and
// ts is the time the sink acknowledged the message. It may be called from a
// sink-owned goroutine.
type DeliveryCallback func(msg domain.Message, ts time.Time, err error)

type Sink interface {
	// Send hands msg to the sink without waiting for delivery.
	Send(ctx context.Context, msg domain.Message, done DeliveryCallback) error
	// Flush blocks until every sent message has reported an outcome.
	Flush(ctx context.Context) error
	Close() error
}
