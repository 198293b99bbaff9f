package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/models"
)

// Recorder stores a payment against a group. *coordinator.Coordinator implements it.
type Recorder interface {
	RecordPayment(ctx context.Context, groupID, userID string, amount decimal.Decimal, reference string) (models.Payment, bool, error)
}

// Deduper remembers handled event IDs. *cache.Dedup implements it.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Outcome says what happened to a notification.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
)

const defaultMaxTries = 5

// Handler records payment notifications, retrying dependency failures.
type Handler struct {
	recorder   Recorder
	dedup      Deduper
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDedup skips events already handled. Without it, idempotency rests on
// the ledger's one-payment-per-member rule.
func WithDedup(d Deduper) HandlerOption {
	return func(h *Handler) { h.dedup = d }
}

// WithRetry overrides the retry policy for dependency failures.
func WithRetry(maxTries uint, newBackOff func() backoff.BackOff) HandlerOption {
	return func(h *Handler) {
		h.maxTries = maxTries
		h.newBackOff = newBackOff
	}
}

// NewHandler returns a handler recording through r.
func NewHandler(r Recorder, opts ...HandlerOption) *Handler {
	h := &Handler{
		recorder: r,
		maxTries: defaultMaxTries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleMessage is the MessageHandler for the payment topic. Malformed and
// rejected notifications are logged and committed; only dependency failures
// that outlive the retries leave the message uncommitted.
func (h *Handler) HandleMessage(ctx context.Context, m kafka.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		slog.Warn("Dropping undecodable payment message", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != events.EventPaymentSucceeded {
		return nil
	}
	p, err := events.UnwrapPayload[events.PaymentSucceededPayload](env.Payload)
	if err != nil {
		slog.Warn("Dropping payment event with bad payload", "event_id", env.EventID, "error", err)
		return nil
	}

	_, err = h.Process(ctx, env.EventID, p)
	if err == nil {
		return nil
	}
	if models.IsRetryable(err) || ctx.Err() != nil {
		return err
	}
	slog.Warn("Payment event rejected",
		"event_id", env.EventID,
		"group_id", p.GroupID,
		"user_id", p.UserID,
		"error", err,
	)
	return nil
}

// Process records one notification identified by eventID.
func (h *Handler) Process(ctx context.Context, eventID string, p events.PaymentSucceededPayload) (Outcome, error) {
	if p.GroupID == "" || p.UserID == "" {
		return "", models.NewError("payments.Process", p.GroupID, fmt.Errorf("%w: group_id and user_id are required", models.ErrInvalidArgument))
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return "", models.NewError("payments.Process", p.GroupID, fmt.Errorf("%w: amount %q", models.ErrInvalidArgument, p.Amount))
	}

	if h.dedup != nil && eventID != "" {
		seen, err := h.dedup.Seen(ctx, eventID)
		if err != nil {
			slog.Warn("Dedup check failed, relying on ledger idempotency", "event_id", eventID, "error", err)
		} else if seen {
			slog.Debug("Payment event already handled", "event_id", eventID)
			return OutcomeDuplicate, nil
		}
	}

	duplicate, err := backoff.Retry(ctx, func() (bool, error) {
		_, dup, err := h.recorder.RecordPayment(ctx, p.GroupID, p.UserID, amount, p.Reference)
		if err != nil && !models.IsRetryable(err) {
			return false, backoff.Permanent(err)
		}
		return dup, err
	}, backoff.WithBackOff(h.newBackOff()), backoff.WithMaxTries(h.maxTries))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return "", err
	}

	if h.dedup != nil && eventID != "" {
		if err := h.dedup.Mark(ctx, eventID); err != nil {
			slog.Warn("Failed to mark payment event handled", "event_id", eventID, "error", err)
		}
	}
	if duplicate {
		return OutcomeDuplicate, nil
	}
	return OutcomeRecorded, nil
}
