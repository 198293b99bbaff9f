package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/models"
)

// Summary is the read view of a group shown to its members.
type Summary struct {
	GroupID          string
	Lines            []calculator.Quote
	TotalValue       decimal.Decimal
	DiscountedValue  decimal.Decimal
	PotentialSavings decimal.Decimal
	ApprovedCount    int
	SpotsLeft        int
	PendingUserIDs   []string
	ApprovedUserIDs  []string
	// ReadyForPayment mirrors the capacity lock: payment opens once the group is full.
	ReadyForPayment bool
	PaymentLocked   bool
	PaidCount       int
}

// Summarize computes the group's summary in one pass over the catalog.
func (l *Ledger) Summarize() (Summary, error) {
	quotes, err := l.Quotes()
	if err != nil {
		return Summary{}, err
	}

	total, discounted := decimal.Zero, decimal.Zero
	for _, q := range quotes {
		total = total.Add(q.OriginalPrice.Mul(decimal.NewFromInt(int64(q.Quantity))))
		discounted = discounted.Add(q.TotalPrice)
	}

	return Summary{
		GroupID:          l.group.ID,
		Lines:            quotes,
		TotalValue:       total,
		DiscountedValue:  discounted,
		PotentialSavings: sumSavings(quotes),
		ApprovedCount:    l.group.ApprovedCount(),
		SpotsLeft:        l.group.SpotsLeft(),
		PendingUserIDs:   l.ParticipantsByStatus(models.StatusPending),
		ApprovedUserIDs:  l.ParticipantsByStatus(models.StatusApproved),
		ReadyForPayment:  l.group.CapacityLocked(),
		PaymentLocked:    l.group.PaymentLocked,
		PaidCount:        l.PaidCount(),
	}, nil
}
