package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/groupcart/internal/models"
)

// loadPayments reads the payments recorded against g.
func loadPayments(ctx context.Context, q queryer, g *models.Group) error {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, amount, paid_at, reference
		 FROM group_payments WHERE group_id = ?`,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to list payments by group: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := models.Payment{HasPaid: true}
		var reference sql.NullString
		if err := rows.Scan(&p.UserID, &p.Amount, &p.PaidAt, &reference); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		if reference.Valid {
			p.Reference = reference.String
		}
		g.Payments[p.UserID] = p
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate payments: %w", err)
	}
	return nil
}

// savePayments inserts g's payments. Only successful payments are ever stored.
func savePayments(ctx context.Context, tx execer, g *models.Group) error {
	for _, p := range g.Payments {
		if !p.HasPaid {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_payments (group_id, user_id, amount, paid_at, reference)
			 VALUES (?, ?, ?, ?, ?)`,
			g.ID, p.UserID, p.Amount.String(), p.PaidAt, nullString(p.Reference),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}
	return nil
}
