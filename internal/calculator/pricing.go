// Package calculator holds the pure pricing and matching math of the engine:
// tier resolution, cart-to-group matching and greedy coverage strategies.
// Nothing here touches storage or locks; callers pass in snapshots.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

// Quote is the resolved price of a quantity of one product.
type Quote struct {
	ProductID     string
	Quantity      int
	OriginalPrice decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	// UnitSavings is the per-unit discount, never negative.
	UnitSavings decimal.Decimal
	// Savings is UnitSavings times Quantity.
	Savings decimal.Decimal
}

// ProductLookup resolves catalog entries by ID.
type ProductLookup interface {
	Product(id string) (*models.Product, error)
}

// Catalog is an in-memory ProductLookup keyed by product ID.
type Catalog map[string]*models.Product

// NewCatalog indexes products by ID.
func NewCatalog(products ...*models.Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

// Product returns the product with the given ID or ErrProductNotFound.
func (c Catalog) Product(id string) (*models.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	return p, nil
}

// UnitPrice returns the effective unit price of a product.
// The first discount tier always wins, whatever the quantity or group size.
func UnitPrice(product *models.Product) decimal.Decimal {
	if len(product.DiscountTiers) > 0 {
		return product.DiscountTiers[0].FinalPrice
	}
	return product.OriginalPrice
}

// Resolve prices quantity units of product.
// Savings are floored at zero: a tier priced above the original price saves nothing.
func Resolve(product *models.Product, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, fmt.Errorf("%w: got %d for product %s", models.ErrInvalidQuantity, quantity, product.ID)
	}

	qty := decimal.NewFromInt(int64(quantity))
	unit := UnitPrice(product)
	unitSavings := product.OriginalPrice.Sub(unit)
	if unitSavings.IsNegative() {
		unitSavings = decimal.Zero
	}

	return Quote{
		ProductID:     product.ID,
		Quantity:      quantity,
		OriginalPrice: product.OriginalPrice,
		UnitPrice:     unit,
		TotalPrice:    unit.Mul(qty),
		UnitSavings:   unitSavings,
		Savings:       unitSavings.Mul(qty),
	}, nil
}
