package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/groupcart/internal/models"
	"github.com/mmynk/groupcart/internal/storage"
)

const groupColumns = `id, owner_id, name, visibility, share_token, delivery_method,
	pickup_address_id, payment_locked, created_at`

// CreateGroup persists a new group with its initial items.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	storage.PrepareNew(group)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.OwnerID, group.Name, group.Visibility, group.ShareToken,
		group.DeliveryMethod, nullString(group.PickupAddressID), group.PaymentLocked, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := saveChildren(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including items, participants and payments.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.db, "id = ?", groupID)
}

// GetGroupByShareToken retrieves a group by its share token.
func (s *SQLiteStore) GetGroupByShareToken(ctx context.Context, token string) (*models.Group, error) {
	return loadGroup(ctx, s.db, "share_token = ?", token)
}

// ListPublicGroups returns every public group, oldest first.
func (s *SQLiteStore) ListPublicGroups(ctx context.Context) ([]*models.Group, error) {
	return s.listGroups(ctx, "visibility = ?", models.VisibilityPublic)
}

// ListGroupsForUser returns the groups a user owns or has a participant record in.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.listGroups(ctx,
		`owner_id = ? OR id IN (SELECT group_id FROM group_participants WHERE user_id = ?)`,
		userID, userID,
	)
}

func (s *SQLiteStore) listGroups(ctx context.Context, where string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE `+where+` ORDER BY created_at, id`,
		args...,
	)
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
		if err := loadChildren(ctx, s.db, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// MutateGroup runs fn against the stored group inside a write transaction.
func (s *SQLiteStore) MutateGroup(ctx context.Context, groupID string, fn storage.MutateFunc) (*models.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := loadGroup(ctx, tx, "id = ?", groupID)
	if err != nil {
		return nil, err
	}

	if err := fn(group); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE groups SET name = ?, visibility = ?, delivery_method = ?, pickup_address_id = ?,
			payment_locked = ? WHERE id = ?`,
		group.Name, group.Visibility, group.DeliveryMethod, nullString(group.PickupAddressID),
		group.PaymentLocked, group.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	for _, table := range []string{"group_items", "group_participants", "group_payments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE group_id = ?", group.ID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := saveChildren(ctx, tx, group); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// DeleteGroup removes a group; items, participants and payments cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string, check storage.MutateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := loadGroup(ctx, tx, "id = ?", groupID)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(group); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	g := &models.Group{}
	var pickup sql.NullString
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Visibility, &g.ShareToken,
		&g.DeliveryMethod, &pickup, &g.PaymentLocked, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	if pickup.Valid {
		g.PickupAddressID = pickup.String
	}
	g.EnsureMaps()
	return g, nil
}

func loadGroup(ctx context.Context, q queryer, where string, arg any) (*models.Group, error) {
	g, err := scanGroup(q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
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

func loadChildren(ctx context.Context, q queryer, g *models.Group) error {
	rows, err := q.QueryContext(ctx,
		"SELECT product_id, quantity FROM group_items WHERE group_id = ?", g.ID)
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

	rows, err = q.QueryContext(ctx,
		"SELECT user_id, status, updated_at FROM group_participants WHERE group_id = ?", g.ID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.Status, &p.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		g.Participants[p.UserID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	return loadPayments(ctx, q, g)
}

func saveChildren(ctx context.Context, tx execer, g *models.Group) error {
	for _, item := range g.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_items (group_id, product_id, quantity) VALUES (?, ?, ?)",
			g.ID, item.ProductID, item.Quantity,
		); err != nil {
			return fmt.Errorf("failed to insert group item: %w", err)
		}
	}
	for _, p := range g.Participants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_participants (group_id, user_id, status, updated_at) VALUES (?, ?, ?, ?)",
			g.ID, p.UserID, p.Status, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return savePayments(ctx, tx, g)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
