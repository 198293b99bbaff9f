// Package catalog seeds the product catalog from a YAML file.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/groupcart/internal/models"
)

// File is the on-disk layout:
//
//	products:
//	  - id: rice-5kg
//	    name: Rice 5kg
//	    original_price: "10.00"
//	    discount_tiers:
//	      - min_quantity: 5
//	        final_price: "8.00"
type File struct {
	Products []productSpec `yaml:"products"`
}

type productSpec struct {
	ID            string     `yaml:"id"`
	Name          string     `yaml:"name"`
	OriginalPrice string     `yaml:"original_price"`
	DiscountTiers []tierSpec `yaml:"discount_tiers"`
}

type tierSpec struct {
	MinQuantity int    `yaml:"min_quantity"`
	FinalPrice  string `yaml:"final_price"`
}

// Upserter stores products. storage.CatalogStore implements it.
type Upserter interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) ([]*models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document.
func Parse(data []byte) ([]*models.Product, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Products))
	products := make([]*models.Product, 0, len(f.Products))
	for i, spec := range f.Products {
		p, err := spec.product()
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	return products, nil
}

func (s productSpec) product() (*models.Product, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	price, err := decimal.NewFromString(s.OriginalPrice)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid original_price %q", s.ID, s.OriginalPrice)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%s: original_price is negative", s.ID)
	}

	p := &models.Product{ID: s.ID, Name: s.Name, OriginalPrice: price}
	last := 0
	for _, t := range s.DiscountTiers {
		final, err := decimal.NewFromString(t.FinalPrice)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid final_price %q", s.ID, t.FinalPrice)
		}
		if t.MinQuantity <= last {
			return nil, fmt.Errorf("%s: discount tiers must have ascending positive min_quantity", s.ID)
		}
		last = t.MinQuantity
		p.DiscountTiers = append(p.DiscountTiers, models.DiscountTier{MinQuantity: t.MinQuantity, FinalPrice: final})
	}
	return p, nil
}

// Seed upserts every product in the catalog at path.
func Seed(ctx context.Context, store Upserter, path string) (int, error) {
	products, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := store.UpsertProduct(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	slog.Info("Catalog seeded", "path", path, "products", len(products))
	return len(products), nil
}
