package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher buffers envelopes and writes them from a single goroutine,
// keyed by group ID so one group's events stay ordered within a partition.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewKafkaPublisher returns a publisher for topic. Call Start before Publish.
func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled or Close is called.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case m, ok := <-p.inbox:
			if !ok {
				_ = p.w.Close()
				return
			}
			p.write(m)
		default:
			_ = p.w.Close()
			return
		}
	}
}

func (p *KafkaPublisher) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		slog.Error("Event publish failed", "topic", p.w.Topic, "key", string(m.Key), "error", err)
	}
}

// Publish enqueues env. It returns an error instead of blocking when the buffer is full.
func (p *KafkaPublisher) Publish(_ context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	m := kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}
	select {
	case p.inbox <- m:
		return nil
	default:
		return fmt.Errorf("event buffer full, dropping %s for %s", env.EventType, env.CorrelationID)
	}
}

// Close stops accepting events; the loop flushes what is buffered and exits.
func (p *KafkaPublisher) Close() { close(p.inbox) }

// WaitClosed blocks until the writer loop has exited.
func (p *KafkaPublisher) WaitClosed() { <-p.closeCh }
