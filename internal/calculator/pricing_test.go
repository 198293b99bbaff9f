package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(id, original string, tierPrices ...string) *models.Product {
	p := &models.Product{ID: id, Name: id, OriginalPrice: d(original)}
	for i, price := range tierPrices {
		p.DiscountTiers = append(p.DiscountTiers, models.DiscountTier{MinQuantity: (i + 1) * 5, FinalPrice: d(price)})
	}
	return p
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		product     *models.Product
		quantity    int
		wantUnit    string
		wantTotal   string
		wantSavings string
		wantErr     error
	}{
		{
			name:        "first tier applies",
			product:     product("A", "10", "8"),
			quantity:    2,
			wantUnit:    "8",
			wantTotal:   "16",
			wantSavings: "4",
		},
		{
			name:        "no tiers falls back to original price",
			product:     product("B", "12.50"),
			quantity:    3,
			wantUnit:    "12.50",
			wantTotal:   "37.50",
			wantSavings: "0",
		},
		{
			name:        "later tiers are ignored",
			product:     product("C", "20", "18", "15", "10"),
			quantity:    100,
			wantUnit:    "18",
			wantTotal:   "1800",
			wantSavings: "200",
		},
		{
			name:        "tier above original price saves nothing",
			product:     product("D", "5", "7"),
			quantity:    4,
			wantUnit:    "7",
			wantTotal:   "28",
			wantSavings: "0",
		},
		{
			name:     "zero quantity",
			product:  product("E", "5", "4"),
			quantity: 0,
			wantErr:  models.ErrInvalidQuantity,
		},
		{
			name:     "negative quantity",
			product:  product("E", "5", "4"),
			quantity: -3,
			wantErr:  models.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Resolve(tt.product, tt.quantity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				if models.KindOf(err) != models.KindValidation {
					t.Errorf("KindOf() = %s, want validation", models.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if !q.UnitPrice.Equal(d(tt.wantUnit)) {
				t.Errorf("UnitPrice = %s, want %s", q.UnitPrice, tt.wantUnit)
			}
			if !q.TotalPrice.Equal(d(tt.wantTotal)) {
				t.Errorf("TotalPrice = %s, want %s", q.TotalPrice, tt.wantTotal)
			}
			if !q.Savings.Equal(d(tt.wantSavings)) {
				t.Errorf("Savings = %s, want %s", q.Savings, tt.wantSavings)
			}
		})
	}
}

func TestResolve_QuantityDoesNotChangeTier(t *testing.T) {
	p := product("A", "10", "8", "6")
	for _, qty := range []int{1, 5, 1000} {
		q, err := Resolve(p, qty)
		if err != nil {
			t.Fatalf("Resolve(%d) failed: %v", qty, err)
		}
		if !q.UnitPrice.Equal(d("8")) {
			t.Errorf("Resolve(%d).UnitPrice = %s, want 8", qty, q.UnitPrice)
		}
	}
}

func TestResolve_SavingsNeverNegative(t *testing.T) {
	prices := []string{"0.01", "1", "9.99", "10", "10.01", "250"}
	for _, price := range prices {
		for _, qty := range []int{1, 2, 7, 500} {
			q, err := Resolve(product("P", "10", price), qty)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if q.Savings.IsNegative() || q.UnitSavings.IsNegative() {
				t.Errorf("tier %s qty %d: negative savings %s", price, qty, q.Savings)
			}
		}
	}
}

func TestCatalog_ProductNotFound(t *testing.T) {
	c := NewCatalog(product("A", "1"))
	if _, err := c.Product("A"); err != nil {
		t.Fatalf("Product(A) failed: %v", err)
	}
	_, err := c.Product("missing")
	if !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Product(missing) error = %v, want ErrProductNotFound", err)
	}
}
