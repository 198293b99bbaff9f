package models

import "github.com/shopspring/decimal"

// Payment is a successful charge recorded against a group for one user.
// The engine never initiates charges; it only records what the payment
// collaborator reports.
type Payment struct {
	// UserID is the member who paid.
	UserID string `json:"user_id"`

	// HasPaid is always true for stored payments.
	HasPaid bool `json:"has_paid"`

	// Amount is the charged amount as reported by the gateway.
	Amount decimal.Decimal `json:"amount"`

	// PaidAt is the Unix timestamp when the payment was recorded.
	PaidAt int64 `json:"paid_at"`

	// Reference is the gateway's charge reference, if any.
	Reference string `json:"reference,omitempty"`
}
