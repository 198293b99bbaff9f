// Package payments turns payment-gateway notifications into recorded payments.
// Notifications arrive on a Kafka topic (Consumer) or through the HTTP webhook;
// both go through Handler.
package payments

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler must return nil only when the message is done and its offset may be committed.
type MessageHandler func(ctx context.Context, m kafka.Message) error

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group and fans messages out to
// workers. Every partition is owned by exactly one worker, which handles its
// messages in offset order.
type Consumer struct {
	r          messageReader
	topic      string
	group      string
	workers    int
	retryDelay time.Duration
}

// NewConsumer returns a consumer with manual offset commits.
func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return newConsumer(r, group, topic, workers, time.Second)
}

func newConsumer(r messageReader, group, topic string, workers int, retryDelay time.Duration) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, group: group, workers: workers, retryDelay: retryDelay}
}

// Start blocks until ctx is cancelled or the reader fails.
//
// A commit in kafka-go moves the partition offset past every earlier message,
// so a failed message is retried in place until it succeeds or ctx ends. Later
// messages of that partition wait behind it and are never committed first.
func (c *Consumer) Start(ctx context.Context, h MessageHandler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(id int, lane <-chan kafka.Message) {
			defer wg.Done()
			for m := range lane {
				if !c.handle(ctx, id, h, m) {
					return
				}
			}
		}(i, lanes[i])
	}
	closeLanes := func() {
		for _, lane := range lanes {
			close(lane)
		}
	}
	defer wg.Wait()

	slog.Info("Payment consumer started", "topic", c.topic, "group", c.group, "workers", c.workers)
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			closeLanes()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			closeLanes()
			return nil
		}
	}
}

// handle runs h until it succeeds and then commits m. It returns false when ctx
// ended first; m then stays uncommitted and is redelivered after a rebalance or restart.
func (c *Consumer) handle(ctx context.Context, worker int, h MessageHandler, m kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		slog.Error("Payment message failed", "worker", worker, "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "error", err)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return false
		}
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		// The next commit on this partition covers m as well.
		slog.Warn("Payment offset commit failed", "partition", m.Partition, "offset", m.Offset, "error", err)
	}
	return true
}
