package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldSink keeps callbacks until Flush, like an async producer with a batch
// still in flight.
type heldSink struct {
	held     []func()
	refuse   bool
	flushErr error
}

func (s *heldSink) Send(_ context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	if s.refuse {
		return errors.New("queue full")
	}
	s.held = append(s.held, func() { done(msg, time.Now(), nil) })
	return nil
}

func (s *heldSink) Flush(context.Context) error {
	for _, deliver := range s.held {
		deliver()
	}
	s.held = nil
	return s.flushErr
}

func (s *heldSink) Close() error {
	return nil
}

func TestDrainingSinkTracksOutstandingDeliveries(t *testing.T) {
	inner := &heldSink{}
	sink := newDrainingSink(inner, "kafka", &bytes.Buffer{})

	delivered := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Send(context.Background(), domain.Message{Key: "k"}, func(domain.Message, time.Time, error) {
			delivered++
		}))
	}
	assert.EqualValues(t, 3, sink.Outstanding())

	require.NoError(t, sink.Flush(context.Background()))
	assert.Zero(t, sink.Outstanding())
	assert.Equal(t, 3, delivered)
}

func TestDrainingSinkRefusedSendIsNotOutstanding(t *testing.T) {
	sink := newDrainingSink(&heldSink{refuse: true}, "redis", &bytes.Buffer{})

	err := sink.Send(context.Background(), domain.Message{}, nil)
	require.Error(t, err)
	assert.Zero(t, sink.Outstanding())
}

func TestDrainingSinkReturnsFlushError(t *testing.T) {
	sink := newDrainingSink(&heldSink{flushErr: errors.New("broker gone")}, "kafka", &bytes.Buffer{})

	err := sink.Flush(context.Background())
	require.EqualError(t, err, "broker gone")
}

func TestDrainModelViewShowsOutstandingCount(t *testing.T) {
	start := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	now := start
	model := newDrainModel("kafka", func() int64 { return 12 }, func() time.Time { return now }, nil)

	now = start.Add(1500 * time.Millisecond)
	view := model.View()
	assert.Contains(t, view, "waiting for kafka: 12 outstanding (1.5s)")

	updated, _ := model.Update(drainedMsg{})
	assert.Empty(t, strings.TrimSpace(updated.View()))
}
