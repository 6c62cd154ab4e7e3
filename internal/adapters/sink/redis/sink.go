package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/redis/go-redis/v9"
)

const (
	Name = "redis"

	defaultAddr         = "localhost:6379"
	defaultStreamPrefix = "datagen:"
	maxInFlight         = 64
)

type Config struct {
	// Client is used as is when set; otherwise one is dialed from Addr and DB.
	Client       redis.UniversalClient
	Addr         string
	DB           int
	StreamPrefix string
	RunID        string
}

// Sink appends each message to the Redis stream <prefix><topic> with XADD.
// Appends run on their own goroutines, bounded by maxInFlight.
type Sink struct {
	client redis.UniversalClient
	prefix string
	runID  string

	slots chan struct{}
	wg    sync.WaitGroup
}

var _ ports.Sink = (*Sink)(nil)

func New(cfg Config) *Sink {
	client := cfg.Client
	if client == nil {
		addr := cfg.Addr
		if addr == "" {
			addr = defaultAddr
		}
		client = redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
	}

	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = defaultStreamPrefix
	}

	return &Sink{
		client: client,
		prefix: prefix,
		runID:  cfg.RunID,
		slots:  make(chan struct{}, maxInFlight),
	}
}

func (s *Sink) StreamKey(topic string) string {
	return s.prefix + topic
}

func (s *Sink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.wg.Add(1)
	go func() {
		defer func() {
			<-s.slots
			s.wg.Done()
		}()

		id, err := s.client.XAdd(context.WithoutCancel(ctx), &redis.XAddArgs{
			Stream: s.StreamKey(msg.Topic),
			Values: map[string]any{
				"key":   msg.Key,
				"value": msg.Value,
				"run":   s.runID,
			},
		}).Result()
		if done == nil {
			return
		}
		if err != nil {
			done(msg, time.Time{}, fmt.Errorf("%w: xadd %s: %w", domain.ErrDelivery, s.StreamKey(msg.Topic), err))
			return
		}
		done(msg, entryTime(id), nil)
	}()

	return nil
}

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
	s.wg.Wait()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// entryTime reads the millisecond timestamp Redis puts in a stream entry id.
func entryTime(id string) time.Time {
	millis, _, _ := strings.Cut(id, "-")
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
