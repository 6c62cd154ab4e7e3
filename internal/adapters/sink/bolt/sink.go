package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	bolt "go.etcd.io/bbolt"
)

const (
	Name = "bolt"

	fileMode = 0o600
	dirMode  = 0o700
)

var (
	keysBucket   = []byte("keys")
	valuesBucket = []byte("values")
)

// Entry is one stored message.
type Entry struct {
	Seq   uint64
	Key   string
	Value []byte
}

// Sink appends messages to a local bbolt file. Each topic is a bucket holding
// parallel keys and values buckets indexed by the topic's sequence number.
// Writes are synchronous, so the callback runs before Send returns.
type Sink struct {
	db  *bolt.DB
	now func() time.Time
}

var _ ports.Sink = (*Sink)(nil)

func Open(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: bolt sink path is empty", domain.ErrInvalidConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	return &Sink{db: db, now: time.Now}, nil
}

func (s *Sink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		topic, err := tx.CreateBucketIfNotExists([]byte(msg.Topic))
		if err != nil {
			return err
		}
		keys, err := topic.CreateBucketIfNotExists(keysBucket)
		if err != nil {
			return err
		}
		values, err := topic.CreateBucketIfNotExists(valuesBucket)
		if err != nil {
			return err
		}

		seq, err := topic.NextSequence()
		if err != nil {
			return err
		}
		id := itob(seq)
		if err := keys.Put(id, []byte(msg.Key)); err != nil {
			return err
		}
		return values.Put(id, msg.Value)
	})

	if done != nil {
		if err != nil {
			done(msg, time.Time{}, fmt.Errorf("%w: bolt append to %s: %w", domain.ErrDelivery, msg.Topic, err))
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
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close bolt database: %w", err)
	}
	return nil
}

// Entries returns the messages stored under topic in append order.
func (s *Sink) Entries(topic string) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(topic))
		if bucket == nil {
			return nil
		}
		keys := bucket.Bucket(keysBucket)
		values := bucket.Bucket(valuesBucket)
		if keys == nil || values == nil {
			return nil
		}

		return values.ForEach(func(k, v []byte) error {
			entries = append(entries, Entry{
				Seq:   binary.BigEndian.Uint64(k),
				Key:   string(keys.Get(k)),
				Value: append([]byte(nil), v...),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read bolt topic %s: %w", topic, err)
	}
	return entries, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
