package coordinator

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/models"
)

// RecordPayment stores a successful payment reported by the payment collaborator.
// Redelivery of the same (group, user) payment is a no-op reported as duplicate.
func (c *Coordinator) RecordPayment(ctx context.Context, groupID, userID string, amount decimal.Decimal, reference string) (payment models.Payment, duplicate bool, err error) {
	_, err = c.mutate(ctx, "RecordPayment", groupID, func(l *ledger.Ledger, emit func(string, any)) error {
		wasLocked := l.Group().PaymentLocked
		p, dup, err := l.RecordPayment(userID, amount, reference)
		if err != nil {
			return err
		}
		payment, duplicate = p, dup
		if dup {
			return nil
		}
		emit(events.EventPaymentRecorded, events.PaymentRecordedPayload{
			GroupID:   groupID,
			UserID:    userID,
			Amount:    p.Amount.String(),
			Reference: p.Reference,
		})
		if !wasLocked {
			emit(events.EventPaymentLocked, events.CapacityPayload{GroupID: groupID, ApprovedCount: l.Group().ApprovedCount()})
		}
		return nil
	})

	switch {
	case err != nil:
		c.metrics.PaymentsRecorded.WithLabelValues("rejected").Inc()
		return models.Payment{}, false, err
	case duplicate:
		c.metrics.PaymentsRecorded.WithLabelValues("duplicate").Inc()
		slog.Info("Duplicate payment ignored", "group_id", groupID, "user_id", userID, "reference", reference)
	default:
		c.metrics.PaymentsRecorded.WithLabelValues("recorded").Inc()
		slog.Info("Payment recorded", "group_id", groupID, "user_id", userID, "amount", payment.Amount.String())
	}
	return payment, duplicate, nil
}
