package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/groupcart/internal/models"
)

// GetProduct retrieves a product with its discount tiers.
func (s *SQLiteStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
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

// GetProducts retrieves multiple products by their IDs.
// Products that don't exist are omitted from the result.
func (s *SQLiteStore) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if len(ids) == 0 {
		return make(map[string]*models.Product), nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := "(?" + repeatPlaceholder(len(ids)-1) + ")"

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, original_price FROM products WHERE id IN "+in, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products by IDs: %w", err)
	}
	defer rows.Close()

	products := make(map[string]*models.Product)
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.OriginalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	tierRows, err := s.db.QueryContext(ctx,
		`SELECT product_id, min_quantity, final_price FROM discount_tiers
		 WHERE product_id IN `+in+` ORDER BY product_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get discount tiers: %w", err)
	}
	defer tierRows.Close()

	for tierRows.Next() {
		var productID string
		var tier models.DiscountTier
		if err := tierRows.Scan(&productID, &tier.MinQuantity, &tier.FinalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan discount tier: %w", err)
		}
		if p, ok := products[productID]; ok {
			p.DiscountTiers = append(p.DiscountTiers, tier)
		}
	}
	if err := tierRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discount tiers: %w", err)
	}

	return products, nil
}

// UpsertProduct inserts or replaces a product and its tiers.
func (s *SQLiteStore) UpsertProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (id, name, original_price) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, original_price = excluded.original_price`,
		product.ID, product.Name, product.OriginalPrice.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM discount_tiers WHERE product_id = ?", product.ID); err != nil {
		return fmt.Errorf("failed to clear discount tiers: %w", err)
	}
	for i, tier := range product.DiscountTiers {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO discount_tiers (product_id, position, min_quantity, final_price) VALUES (?, ?, ?, ?)",
			product.ID, i, tier.MinQuantity, tier.FinalPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert discount tier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}
