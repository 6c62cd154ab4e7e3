package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/segmentio/kafka-go"
)

const (
	Name = "kafka"

	runHeader = "datagen-run"
	seqHeader = "datagen-seq"

	defaultBatchTimeout = 50 * time.Millisecond
)

type Config struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	// RunID is attached to every message as a header.
	RunID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type pendingMessage struct {
	msg  domain.Message
	done ports.DeliveryCallback
}

// Sink publishes messages with an asynchronous kafka-go writer. Keys are
// hashed to pick the partition. Outcomes arrive through the writer's
// completion hook and are matched back to their callbacks by sequence header.
type Sink struct {
	writer messageWriter
	runID  string
	now    func() time.Time

	seq     atomic.Uint64
	mu      sync.Mutex
	pending map[string]pendingMessage
	wg      sync.WaitGroup
}

var _ ports.Sink = (*Sink)(nil)

func New(cfg Config) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka sink needs at least one broker", domain.ErrInvalidConfiguration)
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	s := newSink(nil, cfg.RunID, time.Now)
	s.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		Completion:             s.complete,
	}
	return s, nil
}

func newSink(writer messageWriter, runID string, now func() time.Time) *Sink {
	return &Sink{
		writer:  writer,
		runID:   runID,
		now:     now,
		pending: map[string]pendingMessage{},
	}
}

func (s *Sink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	seq := strconv.FormatUint(s.seq.Add(1), 10)

	s.mu.Lock()
	s.pending[seq] = pendingMessage{msg: msg, done: done}
	s.mu.Unlock()
	s.wg.Add(1)

	err := s.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  s.now(),
		Headers: []kafka.Header{
			{Key: runHeader, Value: []byte(s.runID)},
			{Key: seqHeader, Value: []byte(seq)},
		},
	})
	if err != nil {
		if _, ok := s.take(seq); ok {
			s.wg.Done()
		}
		return fmt.Errorf("enqueue kafka message: %w", err)
	}
	return nil
}

func (s *Sink) complete(messages []kafka.Message, err error) {
	ts := s.now()
	for _, m := range messages {
		seq := header(m, seqHeader)
		pending, ok := s.take(seq)
		if !ok {
			continue
		}
		if pending.done != nil {
			if err != nil {
				pending.done(pending.msg, time.Time{}, fmt.Errorf("%w: %w", domain.ErrDelivery, err))
			} else {
				pending.done(pending.msg, ts, nil)
			}
		}
		s.wg.Done()
	}
}

func (s *Sink) take(seq string) (pendingMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending[seq]
	if ok {
		delete(s.pending, seq)
	}
	return pending, ok
}

// Flush waits until every sent message has been acknowledged or failed.
func (s *Sink) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) Close() error {
	if err := s.writer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
