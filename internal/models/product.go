package models

import "github.com/shopspring/decimal"

// DiscountTier is one row of a product's pricing table.
type DiscountTier struct {
	// MinQuantity is the quantity the tier is nominally unlocked at.
	MinQuantity int `json:"min_quantity"`

	// FinalPrice is the discounted unit price.
	FinalPrice decimal.Decimal `json:"final_price"`
}

// Product represents a catalog entry.
// Products are read-only to the engine; catalog management happens elsewhere.
type Product struct {
	// ID is the unique identifier for the product.
	ID string `json:"id"`

	// Name is the display name of the product.
	Name string `json:"name"`

	// OriginalPrice is the undiscounted unit price.
	OriginalPrice decimal.Decimal `json:"original_price"`

	// DiscountTiers are ordered ascending by MinQuantity.
	// Only the first tier is honored when pricing.
	DiscountTiers []DiscountTier `json:"discount_tiers"`
}

// HasDiscount reports whether the product carries any discount tier.
func (p *Product) HasDiscount() bool {
	return len(p.DiscountTiers) > 0
}
