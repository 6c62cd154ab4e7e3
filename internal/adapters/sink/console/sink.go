package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
)

const Name = "console"

// Sink prints each message as "key --> value" on one line.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ ports.Sink = (*Sink)(nil)

func New(out io.Writer) *Sink {
	return &Sink{out: out, now: time.Now}
}

func (s *Sink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, err := fmt.Fprintf(s.out, "%s --> %s\n", msg.Key, msg.Value)
	s.mu.Unlock()

	if done != nil {
		if err != nil {
			done(msg, time.Time{}, fmt.Errorf("%w: %w", domain.ErrDelivery, err))
		} else {
			done(msg, s.now(), nil)
		}
	}
	return nil
}

func (s *Sink) Flush(context.Context) error {
	return nil
}

func (s *Sink) Close() error {
	return nil
}
