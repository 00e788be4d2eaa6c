package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumerRedeliversFailedMessage(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Offset: 1, Value: []byte("a")}, {Offset: 2, Value: []byte("b")}}}

	var (
		mu       sync.Mutex
		attempts = map[string]int{}
		order    []string
	)
	handler := func(_ context.Context, _ []byte, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[string(value)]++
		if string(value) == "a" && attempts["a"] < 3 {
			return errors.New("db down")
		}
		order = append(order, string(value))
		return nil
	}

	c := newConsumer(reader, "feedback", handler)
	c.minDelay = time.Millisecond
	c.maxDelay = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, reader.commits())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts["a"])
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestConsumerStopsWithoutCommittingFailedMessage(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Offset: 7}, {Offset: 8}}}
	calls := make(chan struct{}, 100)
	c := newConsumer(reader, "feedback", func(context.Context, []byte, []byte) error {
		calls <- struct{}{}
		return errors.New("db down")
	})
	c.minDelay = time.Millisecond
	c.maxDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	<-calls
	<-calls
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, reader.commits())
}
