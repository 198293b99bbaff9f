// Package events defines the domain events the coordinator emits and the
// publishers that carry them (Kafka in production, in-memory in tests).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventParticipantChanged = "ParticipantChanged"
	EventCapacityReached    = "CapacityReached"
	EventCapacityReopened   = "CapacityReopened"
	EventPaymentRecorded    = "PaymentRecorded"
	EventPaymentLocked      = "PaymentLocked"
	EventGroupDeleted       = "GroupDeleted"

	// EventPaymentSucceeded is consumed, not produced: the payment gateway
	// emits it once a charge for a group member clears.
	EventPaymentSucceeded = "PaymentSucceeded"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // group id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payloads ----

type ParticipantChangedPayload struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type CapacityPayload struct {
	GroupID       string `json:"group_id"`
	ApprovedCount int    `json:"approved_count"`
}

type PaymentRecordedPayload struct {
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// PaymentSucceededPayload is what the gateway reports for a cleared charge.
type PaymentSucceededPayload struct {
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

type GroupDeletedPayload struct {
	GroupID string `json:"group_id"`
	OwnerID string `json:"owner_id"`
}

// New builds an envelope around payload.
func New(producer, eventType, groupID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: groupID,
		Payload:       b,
	}, nil
}

// UnwrapPayload decodes an envelope's payload into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// Publisher delivers envelopes. Implementations must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }

// Memory keeps published events in order; used by tests.
type Memory struct {
	mu     sync.Mutex
	events []Envelope
}

func (m *Memory) Publish(_ context.Context, env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, env)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the event types published so far, in order.
func (m *Memory) Types() []string {
	var types []string
	for _, e := range m.Events() {
		types = append(types, e.EventType)
	}
	return types
}
