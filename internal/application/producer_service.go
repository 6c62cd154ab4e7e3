package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/google/uuid"
)

// DefaultMaxInterval caps the random pause between messages when none is configured.
const DefaultMaxInterval = 500 * time.Millisecond

type RunRequest struct {
	Topic      string
	Iterations int
	// MaxInterval bounds the random pause after each message; negative means DefaultMaxInterval.
	MaxInterval time.Duration
	Schema      string
	SinkName    string
}

func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic is required", domain.ErrInvalidConfiguration)
	}
	if r.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", domain.ErrInvalidConfiguration, r.Iterations)
	}
	return nil
}

func (r RunRequest) interval() time.Duration {
	if r.MaxInterval < 0 {
		return DefaultMaxInterval
	}
	return r.MaxInterval
}

// ProducerService runs the delivery loop: assemble a row, hand it to the sink,
// pause for a random interval, repeat.
type ProducerService struct {
	assembler  *RowAssembler
	serializer ports.Serializer
	sink       ports.Sink
	clock      ports.Clock
	logger     *slog.Logger
	rand       *rand.Rand
	sleep      func(time.Duration)
	newRunID   func() domain.RunID
}

type ProducerOption func(*ProducerService)

func WithProducerRand(r *rand.Rand) ProducerOption {
	return func(s *ProducerService) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithSleeper replaces the pacing delay, which defaults to time.Sleep.
func WithSleeper(sleep func(time.Duration)) ProducerOption {
	return func(s *ProducerService) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func WithRunIDs(newRunID func() domain.RunID) ProducerOption {
	return func(s *ProducerService) {
		if newRunID != nil {
			s.newRunID = newRunID
		}
	}
}

func NewProducerService(
	assembler *RowAssembler,
	serializer ports.Serializer,
	sink ports.Sink,
	clock ports.Clock,
	logger *slog.Logger,
	opts ...ProducerOption,
) *ProducerService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &ProducerService{
		assembler:  assembler,
		serializer: serializer,
		sink:       sink,
		clock:      clock,
		logger:     logger,
		rand:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:      time.Sleep,
		newRunID:   func() domain.RunID { return domain.RunID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run produces req.Iterations messages and then flushes and closes the sink.
// Context cancellation is only observed between messages. Delivery failures
// are logged and counted; generation errors stop the run.
func (s *ProducerService) Run(ctx context.Context, req RunRequest) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		ID:        s.newRunID(),
		Topic:     req.Topic,
		Sink:      req.SinkName,
		Format:    s.serializer.Format(),
		Schema:    req.Schema,
		Requested: req.Iterations,
		StartedAt: s.clock.Now(),
	}

	if err := req.Validate(); err != nil {
		return summary, errors.Join(err, s.sink.Close())
	}

	logger := s.logger.With(slog.String("run", string(summary.ID)), slog.String("topic", req.Topic))
	interval := req.interval()

	var delivered, failed atomic.Int64
	done := func(msg domain.Message, ts time.Time, err error) {
		if err != nil {
			failed.Add(1)
			logger.Error("error when sending message",
				slog.String("key", msg.Key),
				slog.String("value", msg.Row.String()),
				slog.String("err", err.Error()),
			)
			return
		}
		delivered.Add(1)
		logger.Info(msg.Key+" --> ("+msg.Row.String()+")", slog.Int64("ts", ts.UnixMilli()))
	}

	var runErr error
	for i := 0; i < req.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		msg, err := s.nextMessage(req.Topic)
		if err != nil {
			runErr = err
			break
		}
		summary.Produced++

		if err := s.sink.Send(ctx, msg, done); err != nil {
			done(msg, time.Time{}, fmt.Errorf("%w: %w", domain.ErrDelivery, err))
		}

		if interval > 0 {
			s.sleep(time.Duration(s.rand.Int64N(int64(interval))))
		}
	}

	flushCtx := context.WithoutCancel(ctx)
	flushErr := s.sink.Flush(flushCtx)
	if flushErr != nil {
		flushErr = fmt.Errorf("flush sink: %w", flushErr)
	}
	closeErr := s.sink.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close sink: %w", closeErr)
	}

	summary.Delivered = int(delivered.Load())
	summary.Failed = int(failed.Load())
	summary.FinishedAt = s.clock.Now()

	err := errors.Join(runErr, flushErr, closeErr)
	if err != nil {
		summary.Err = err.Error()
	}
	logger.Debug("run finished",
		slog.Int("produced", summary.Produced),
		slog.Int("delivered", summary.Delivered),
		slog.Int("failed", summary.Failed),
	)

	return summary, err
}

func (s *ProducerService) nextMessage(topic string) (domain.Message, error) {
	key, row, err := s.assembler.Next()
	if err != nil {
		return domain.Message{}, err
	}

	value, err := s.serializer.Serialize(s.assembler.RowSchema(), row)
	if err != nil {
		return domain.Message{}, fmt.Errorf("serialize row: %w", err)
	}

	return domain.Message{Topic: topic, Key: key, Value: value, Row: row}, nil
}
