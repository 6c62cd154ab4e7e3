package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.UnixMilli(1700000000123), entryTime("1700000000123-0"))
	assert.False(t, entryTime("garbage").IsZero())
}

func TestStreamKeyUsesPrefix(t *testing.T) {
	t.Parallel()

	sink := New(Config{Client: redis.NewClient(&redis.Options{Addr: defaultAddr}), StreamPrefix: "test:"})
	defer sink.Close()

	assert.Equal(t, "test:clicks", sink.StreamKey("clicks"))
}

func TestSinkAppendsToStream(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: defaultAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	ctx := context.Background()
	prefix := "test:datagen:" + time.Now().Format("150405.000") + ":"
	sink := New(Config{Client: client, StreamPrefix: prefix, RunID: "run-1"})

	var mu sync.Mutex
	var outcomes []error
	done := func(_ domain.Message, ts time.Time, err error) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, err)
	}

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, sink.Send(ctx, domain.Message{Topic: "clicks", Key: key, Value: []byte(`{"k":"` + key + `"}`)}, done))
	}
	require.NoError(t, sink.Flush(ctx))

	require.Len(t, outcomes, 3)
	for _, err := range outcomes {
		assert.NoError(t, err)
	}

	check := redis.NewClient(&redis.Options{Addr: defaultAddr})
	defer check.Close()
	stream := prefix + "clicks"
	defer check.Del(ctx, stream)

	n, err := check.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, sink.Close())
}
