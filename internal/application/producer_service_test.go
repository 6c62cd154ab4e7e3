package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/bnema/datagen/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubSerializer struct {
	err error
}

func (stubSerializer) Format() string {
	return "stub"
}

func (s stubSerializer) Serialize(_ *domain.RowSchema, row domain.Row) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(row.String()), nil
}

// recordingSink acknowledges every message synchronously, failing the keys
// listed in fail.
type recordingSink struct {
	mu       sync.Mutex
	sent     []domain.Message
	fail     map[string]bool
	sendErr  error
	flushErr error
	closeErr error
	flushed  bool
	closed   bool
	onSend   func(int)
}

func (s *recordingSink) Send(_ context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()

	if s.onSend != nil {
		s.onSend(n)
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	if s.fail[msg.Key] {
		done(msg, time.Time{}, errors.New("broker rejected message"))
		return nil
	}
	done(msg, time.UnixMilli(int64(n)), nil)
	return nil
}

func (s *recordingSink) Flush(context.Context) error {
	s.flushed = true
	return s.flushErr
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.closeErr
}

func newTestProducer(t *testing.T, script []map[string]any, sink ports.Sink, opts ...ProducerOption) (*ProducerService, *[]time.Duration) {
	t.Helper()

	gen := &scriptedGenerator{schema: clickSchema(), script: script}
	assembler, _ := newTestAssembler(t, gen, nil)

	var pauses []time.Duration
	opts = append([]ProducerOption{
		WithProducerRand(rand.New(rand.NewPCG(1, 2))),
		WithSleeper(func(d time.Duration) { pauses = append(pauses, d) }),
		WithRunIDs(func() domain.RunID { return "run-1" }),
	}, opts...)

	clock := &manualClock{now: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)}
	return NewProducerService(assembler, stubSerializer{}, sink, clock, discardLogger(), opts...), &pauses
}

func TestRunProducesRequestedIterations(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	producer, pauses := newTestProducer(t, ipScript("a", "b", "c"), sink)

	summary, err := producer.Run(context.Background(), RunRequest{Topic: "clicks", Iterations: 3, MaxInterval: 100 * time.Millisecond, Schema: "clickstream", SinkName: "memory"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunID("run-1"), summary.ID)
	assert.Equal(t, "clicks", summary.Topic)
	assert.Equal(t, "memory", summary.Sink)
	assert.Equal(t, "stub", summary.Format)
	assert.Equal(t, "clickstream", summary.Schema)
	assert.Equal(t, 3, summary.Requested)
	assert.Equal(t, 3, summary.Produced)
	assert.Equal(t, 3, summary.Delivered)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Err)
	assert.NoError(t, summary.Validate())

	require.Len(t, sink.sent, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, "clicks", sink.sent[i].Topic)
		assert.Equal(t, want, sink.sent[i].Key)
		assert.Equal(t, []byte(sink.sent[i].Row.String()), sink.sent[i].Value)
	}
	assert.True(t, sink.flushed)
	assert.True(t, sink.closed)

	require.Len(t, *pauses, 3)
	for _, d := range *pauses {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 100*time.Millisecond)
	}
}

func TestRunPacingDefaultsAndZeroInterval(t *testing.T) {
	t.Parallel()

	producer, pauses := newTestProducer(t, ipScript("a"), &recordingSink{})
	_, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 4, MaxInterval: -1})
	require.NoError(t, err)
	require.Len(t, *pauses, 4)
	for _, d := range *pauses {
		assert.Less(t, d, DefaultMaxInterval)
	}

	producer, pauses = newTestProducer(t, ipScript("a"), &recordingSink{})
	_, err = producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 4})
	require.NoError(t, err)
	assert.Empty(t, *pauses)
}

func TestRunCountsDeliveryFailuresWithoutStopping(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{fail: map[string]bool{"b": true}}
	producer, _ := newTestProducer(t, ipScript("a", "b", "c"), sink)

	summary, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Produced)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Pending())
}

func TestRunTreatsSendErrorAsFailedDelivery(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{sendErr: errors.New("queue full")}
	producer, _ := newTestProducer(t, ipScript("a"), sink)

	summary, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Produced)
	assert.Equal(t, 2, summary.Failed)
	assert.Zero(t, summary.Delivered)
}

func TestRunStopsBetweenMessagesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{onSend: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	producer, _ := newTestProducer(t, ipScript("a"), sink)

	summary, err := producer.Run(ctx, RunRequest{Topic: "t", Iterations: 10})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 10, summary.Requested)
	assert.Equal(t, 2, summary.Produced)
	assert.Equal(t, 2, summary.Delivered)
	assert.Equal(t, err.Error(), summary.Err)
	assert.True(t, sink.flushed, "sink is still flushed after cancellation")
	assert.True(t, sink.closed)
}

func TestRunStopsOnGenerationError(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	producer, _ := newTestProducer(t, []map[string]any{{"ip": 42}}, sink)

	summary, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 5})
	require.ErrorIs(t, err, domain.ErrGeneratorContract)
	assert.Zero(t, summary.Produced)
	assert.Empty(t, sink.sent)
	assert.True(t, sink.closed)
}

func TestRunStopsOnSerializationError(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{schema: clickSchema(), script: ipScript("a")}
	assembler, _ := newTestAssembler(t, gen, nil)
	sink := &recordingSink{}
	producer := NewProducerService(assembler, stubSerializer{err: errors.New("bad row")}, sink, nil, discardLogger(),
		WithSleeper(func(time.Duration) {}),
	)

	_, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 1})
	require.ErrorContains(t, err, "serialize row: bad row")
	assert.Empty(t, sink.sent)
}

func TestRunValidatesRequestAndClosesSink(t *testing.T) {
	t.Parallel()

	sink := mocks.NewMockSink(t)
	sink.On("Close").Return(nil).Once()

	producer, _ := newTestProducer(t, ipScript("a"), sink)

	_, err := producer.Run(context.Background(), RunRequest{Topic: "  ", Iterations: 1})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewProducerService(producer.assembler, stubSerializer{}, &recordingSink{}, nil, discardLogger()).
		Run(context.Background(), RunRequest{Topic: "t", Iterations: -1})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestRunJoinsFlushAndCloseErrors(t *testing.T) {
	t.Parallel()

	sink := mocks.NewMockSink(t)
	sink.On("Send", mock.Anything, mock.MatchedBy(func(msg domain.Message) bool { return msg.Key == "a" }), mock.Anything).
		Run(func(args mock.Arguments) {
			done := args.Get(2).(ports.DeliveryCallback)
			done(args.Get(1).(domain.Message), time.Now(), nil)
		}).
		Return(nil).Once()
	sink.On("Flush", mock.Anything).Return(errors.New("timeout")).Once()
	sink.On("Close").Return(errors.New("already closed")).Once()

	producer, _ := newTestProducer(t, ipScript("a"), sink)

	summary, err := producer.Run(context.Background(), RunRequest{Topic: "t", Iterations: 1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "flush sink: timeout")
	assert.ErrorContains(t, err, "close sink: already closed")
	assert.Equal(t, 1, summary.Delivered)
	assert.True(t, strings.Contains(summary.Err, "timeout"))
}
