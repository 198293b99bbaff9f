package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

func (s *Store) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	products, err := s.GetProducts(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	p, ok := products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, productID)
	}
	return p, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	products := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id, name, original_price FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get products by IDs: %w", err)
	}
	for rows.Next() {
		p := &models.Product{}
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if p.OriginalPrice, err = decimal.NewFromString(price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse price of %s: %w", p.ID, err)
		}
		products[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT product_id, min_quantity, final_price FROM discount_tiers
		 WHERE product_id = ANY($1) ORDER BY product_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get discount tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var productID, price string
		var tier models.DiscountTier
		if err := rows.Scan(&productID, &tier.MinQuantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan discount tier: %w", err)
		}
		if tier.FinalPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse tier price of %s: %w", productID, err)
		}
		if p, ok := products[productID]; ok {
			p.DiscountTiers = append(p.DiscountTiers, tier)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discount tiers: %w", err)
	}
	return products, nil
}

func (s *Store) UpsertProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO products (id, name, original_price) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, original_price = EXCLUDED.original_price`,
		product.ID, product.Name, product.OriginalPrice.String())
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM discount_tiers WHERE product_id = $1", product.ID); err != nil {
		return fmt.Errorf("failed to clear discount tiers: %w", err)
	}
	for i, tier := range product.DiscountTiers {
		if _, err := tx.Exec(ctx,
			"INSERT INTO discount_tiers (product_id, position, min_quantity, final_price) VALUES ($1, $2, $3, $4)",
			product.ID, i, tier.MinQuantity, tier.FinalPrice.String()); err != nil {
			return fmt.Errorf("failed to insert discount tier: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
