package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
	"github.com/mmynk/groupcart/internal/storage"
)

const groupColumns = `id, owner_id, name, visibility, share_token, delivery_method,
	pickup_address_id, payment_locked, created_at`

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	storage.PrepareNew(group)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		group.ID, group.OwnerID, group.Name, string(group.Visibility), group.ShareToken,
		string(group.DeliveryMethod), nullable(group.PickupAddressID), group.PaymentLocked, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	if err := saveChildren(ctx, tx, group); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.pool, "id = $1", groupID)
}

func (s *Store) GetGroupByShareToken(ctx context.Context, token string) (*models.Group, error) {
	return loadGroup(ctx, s.pool, "share_token = $1", token)
}

func (s *Store) ListPublicGroups(ctx context.Context) ([]*models.Group, error) {
	return s.listGroups(ctx, "visibility = $1", string(models.VisibilityPublic))
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.listGroups(ctx,
		`owner_id = $1 OR id IN (SELECT group_id FROM group_participants WHERE user_id = $1)`,
		userID,
	)
}

func (s *Store) listGroups(ctx context.Context, where string, args ...any) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var groups []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, g := range groups {
		if err := loadChildren(ctx, s.pool, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// MutateGroup locks the group row with SELECT ... FOR UPDATE so writers in
// other processes queue behind this one.
func (s *Store) MutateGroup(ctx context.Context, groupID string, fn storage.MutateFunc) (*models.Group, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	group, err := loadGroup(ctx, tx, "id = $1 FOR UPDATE", groupID)
	if err != nil {
		return nil, err
	}
	if err := fn(group); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE groups SET name = $1, visibility = $2, delivery_method = $3, pickup_address_id = $4,
			payment_locked = $5 WHERE id = $6`,
		group.Name, string(group.Visibility), string(group.DeliveryMethod),
		nullable(group.PickupAddressID), group.PaymentLocked, group.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	for _, table := range []string{"group_items", "group_participants", "group_payments"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE group_id = $1", group.ID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := saveChildren(ctx, tx, group); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string, check storage.MutateFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	group, err := loadGroup(ctx, tx, "id = $1 FOR UPDATE", groupID)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(group); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM groups WHERE id = $1", groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanGroup(row pgx.Row) (*models.Group, error) {
	g := &models.Group{}
	var visibility, delivery string
	var pickup *string
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &visibility, &g.ShareToken,
		&delivery, &pickup, &g.PaymentLocked, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Visibility = models.Visibility(visibility)
	g.DeliveryMethod = models.DeliveryMethod(delivery)
	if pickup != nil {
		g.PickupAddressID = *pickup
	}
	g.EnsureMaps()
	return g, nil
}

func loadGroup(ctx context.Context, q querier, where string, arg any) (*models.Group, error) {
	g, err := scanGroup(q.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", models.ErrGroupNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if err := loadChildren(ctx, q, g); err != nil {
		return nil, err
	}
	return g, nil
}

func loadChildren(ctx context.Context, q querier, g *models.Group) error {
	rows, err := q.Query(ctx, "SELECT product_id, quantity FROM group_items WHERE group_id = $1", g.ID)
	if err != nil {
		return fmt.Errorf("failed to get group items: %w", err)
	}
	for rows.Next() {
		var item models.GroupItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan group item: %w", err)
		}
		g.Items[item.ProductID] = item
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group items: %w", err)
	}

	rows, err = q.Query(ctx, "SELECT user_id, status, updated_at FROM group_participants WHERE group_id = $1", g.ID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var p models.Participant
		var status string
		if err := rows.Scan(&p.UserID, &status, &p.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Status = models.ParticipantStatus(status)
		g.Participants[p.UserID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	rows, err = q.Query(ctx,
		"SELECT user_id, amount, paid_at, reference FROM group_payments WHERE group_id = $1", g.ID)
	if err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := models.Payment{HasPaid: true}
		var amount string
		var reference *string
		if err := rows.Scan(&p.UserID, &amount, &p.PaidAt, &reference); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("failed to parse payment amount %q: %w", amount, err)
		}
		if reference != nil {
			p.Reference = *reference
		}
		g.Payments[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate payments: %w", err)
	}
	return nil
}

func saveChildren(ctx context.Context, tx pgx.Tx, g *models.Group) error {
	batch := &pgx.Batch{}
	for _, item := range g.Items {
		batch.Queue("INSERT INTO group_items (group_id, product_id, quantity) VALUES ($1, $2, $3)",
			g.ID, item.ProductID, item.Quantity)
	}
	for _, p := range g.Participants {
		batch.Queue("INSERT INTO group_participants (group_id, user_id, status, updated_at) VALUES ($1, $2, $3, $4)",
			g.ID, p.UserID, string(p.Status), p.UpdatedAt)
	}
	for _, p := range g.Payments {
		if !p.HasPaid {
			continue
		}
		batch.Queue(`INSERT INTO group_payments (group_id, user_id, amount, paid_at, reference)
			VALUES ($1, $2, $3, $4, $5)`,
			g.ID, p.UserID, p.Amount.String(), p.PaidAt, nullable(p.Reference))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write group children: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
