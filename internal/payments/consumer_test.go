package payments

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupcart/internal/events"
)

func TestConsumer_Kafka(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	addrs := strings.Split(brokers, ",")
	topic := "groupcart-test-payments-" + time.Now().Format("150405.000")

	w := &kafka.Writer{Addr: kafka.TCP(addrs...), Topic: topic, AllowAutoTopicCreation: true}
	defer w.Close()

	env, err := events.New("gateway", events.EventPaymentSucceeded, "g1", payload())
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, w.WriteMessages(ctx, kafka.Message{Key: []byte("g1"), Value: b}))

	rec := &fakeRecorder{}
	h := NewHandler(rec, fastRetry(2))
	c := NewConsumer(addrs, topic+"-group", topic, 2)

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h.HandleMessage) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 25*time.Second, 100*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

// memReader serves a fixed list of messages and records commits per partition.
type memReader struct {
	msgs chan kafka.Message

	mu      sync.Mutex
	commits map[int][]int64
}

func newMemReader(msgs ...kafka.Message) *memReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &memReader{msgs: ch, commits: map[int][]int64{}}
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.commits[m.Partition] = append(r.commits[m.Partition], m.Offset)
	}
	return nil
}

func (r *memReader) Close() error { return nil }

func (r *memReader) committed(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.commits[partition]...)
}

func (r *memReader) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, offs := range r.commits {
		n += len(offs)
	}
	return n
}

func TestConsumer_FailedOffsetIsNotSkipped(t *testing.T) {
	r := newMemReader(
		kafka.Message{Partition: 0, Offset: 10},
		kafka.Message{Partition: 0, Offset: 11},
		kafka.Message{Partition: 1, Offset: 5},
		kafka.Message{Partition: 0, Offset: 12},
	)

	var mu sync.Mutex
	failures := 2
	var handled []int64
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Partition == 0 && m.Offset == 10 && failures > 0 {
			failures--
			return errors.New("store unavailable")
		}
		if m.Partition == 0 {
			handled = append(handled, m.Offset)
		}
		return nil
	}

	c := newConsumer(r, "g", "payments", 2, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return r.total() == 4 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{10, 11, 12}, r.committed(0))
	assert.Equal(t, []int64{5}, r.committed(1))
	mu.Lock()
	assert.Equal(t, []int64{10, 11, 12}, handled)
	mu.Unlock()
}

func TestConsumer_CancelLeavesFailingOffsetUncommitted(t *testing.T) {
	r := newMemReader(
		kafka.Message{Partition: 0, Offset: 10},
		kafka.Message{Partition: 0, Offset: 11},
	)
	attempts := make(chan struct{}, 100)
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset == 10 {
			select {
			case attempts <- struct{}{}:
			default:
			}
			return errors.New("store unavailable")
		}
		return nil
	}

	c := newConsumer(r, "g", "payments", 2, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatal("handler was not retried")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.committed(0), "offset 11 must not be committed past the failing offset 10")
}
