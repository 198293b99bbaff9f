// Package ledger owns the mutable state of a single group: its item list,
// aggregates, payments and participant transitions. A Ledger is not safe for
// concurrent use; callers serialize access per group (see coordinator).
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/models"
)

// Ledger wraps a group aggregate with the rules that guard its mutation.
type Ledger struct {
	group   *models.Group
	catalog calculator.ProductLookup
	now     func() time.Time
}

// New returns a ledger operating on group in place.
func New(group *models.Group, catalog calculator.ProductLookup) *Ledger {
	group.EnsureMaps()
	return &Ledger{group: group, catalog: catalog, now: time.Now}
}

// Group returns the underlying aggregate.
func (l *Ledger) Group() *models.Group {
	return l.group
}

func (l *Ledger) fail(op string, err error) error {
	return models.NewError(op, l.group.ID, err)
}

// AddItem inserts a new product line into the group cart.
func (l *Ledger) AddItem(productID string, quantity int) error {
	const op = "ledger.AddItem"
	if l.group.PaymentLocked {
		return l.fail(op, models.ErrGroupLocked)
	}
	if quantity <= 0 {
		return l.fail(op, models.ErrInvalidQuantity)
	}
	if l.group.HasProduct(productID) {
		return l.fail(op, models.ErrDuplicateItem)
	}
	l.group.Items[productID] = models.GroupItem{ProductID: productID, Quantity: quantity}
	return nil
}

// SetQuantity updates an existing line. A non-positive quantity removes it.
func (l *Ledger) SetQuantity(productID string, quantity int) error {
	const op = "ledger.SetQuantity"
	if l.group.PaymentLocked {
		return l.fail(op, models.ErrGroupLocked)
	}
	item, ok := l.group.Items[productID]
	if !ok {
		return l.fail(op, models.ErrItemNotFound)
	}
	if quantity <= 0 {
		delete(l.group.Items, productID)
		return nil
	}
	item.Quantity = quantity
	l.group.Items[productID] = item
	return nil
}

// RemoveItem deletes a product line. Removing an absent product is a no-op.
func (l *Ledger) RemoveItem(productID string) error {
	if l.group.PaymentLocked {
		return l.fail("ledger.RemoveItem", models.ErrGroupLocked)
	}
	delete(l.group.Items, productID)
	return nil
}

// Quotes prices every line of the group cart at the group's tier.
func (l *Ledger) Quotes() ([]calculator.Quote, error) {
	quotes := make([]calculator.Quote, 0, len(l.group.Items))
	for _, id := range sortedKeys(l.group.Items) {
		item := l.group.Items[id]
		product, err := l.catalog.Product(id)
		if err != nil {
			return nil, models.DependencyError("ledger.Quotes", err)
		}
		q, err := calculator.Resolve(product, item.Quantity)
		if err != nil {
			return nil, l.fail("ledger.Quotes", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// TotalValue is the undiscounted value of the group cart.
func (l *Ledger) TotalValue() (decimal.Decimal, error) {
	quotes, err := l.Quotes()
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, q := range quotes {
		total = total.Add(q.OriginalPrice.Mul(decimal.NewFromInt(int64(q.Quantity))))
	}
	return total, nil
}

// DiscountedValue is the group cart priced at each product's tier.
func (l *Ledger) DiscountedValue() (decimal.Decimal, error) {
	quotes, err := l.Quotes()
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, q := range quotes {
		total = total.Add(q.TotalPrice)
	}
	return total, nil
}

// PotentialSavings is the sum of per-line savings. Lines whose tier costs more
// than the original price contribute zero, so the result is never negative.
func (l *Ledger) PotentialSavings() (decimal.Decimal, error) {
	quotes, err := l.Quotes()
	if err != nil {
		return decimal.Zero, err
	}
	return sumSavings(quotes), nil
}

func sumSavings(quotes []calculator.Quote) decimal.Decimal {
	total := decimal.Zero
	for _, q := range quotes {
		total = total.Add(q.Savings)
	}
	return total
}

// RecordPayment stores a successful payment for userID and locks the group's items.
// Payments are idempotent per user: a repeat returns the stored record with duplicate set.
func (l *Ledger) RecordPayment(userID string, amount decimal.Decimal, reference string) (payment models.Payment, duplicate bool, err error) {
	const op = "ledger.RecordPayment"
	if !l.group.IsMember(userID) {
		return models.Payment{}, false, l.fail(op, models.ErrParticipantNotApproved)
	}
	if existing, ok := l.group.Payments[userID]; ok && existing.HasPaid {
		return existing, true, nil
	}
	if amount.IsNegative() {
		return models.Payment{}, false, l.fail(op, models.ErrInvalidArgument)
	}

	payment = models.Payment{
		UserID:    userID,
		HasPaid:   true,
		Amount:    amount,
		PaidAt:    l.now().Unix(),
		Reference: reference,
	}
	l.group.Payments[userID] = payment
	l.group.PaymentLocked = true
	return payment, false, nil
}

// PaidCount counts members with a recorded payment.
func (l *Ledger) PaidCount() int {
	n := 0
	for _, p := range l.group.Payments {
		if p.HasPaid {
			n++
		}
	}
	return n
}
