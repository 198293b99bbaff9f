package coordinator

import (
	"context"

	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/models"
)

func requireOwner(op string, l *ledger.Ledger, actorID string) error {
	if actorID != l.Group().OwnerID {
		return models.NewError(op, l.Group().ID, models.ErrNotOwner)
	}
	return nil
}

// AddItem adds a product line to the group cart. Owner only.
func (c *Coordinator) AddItem(ctx context.Context, groupID, actorID, productID string, quantity int) (*models.Group, error) {
	// Resolve the product before taking the group lock.
	if _, err := c.store.GetProduct(ctx, productID); err != nil {
		return nil, classify("AddItem", models.NewError("coordinator.AddItem", groupID, err))
	}
	return c.mutate(ctx, "AddItem", groupID, func(l *ledger.Ledger, _ func(string, any)) error {
		if err := requireOwner("coordinator.AddItem", l, actorID); err != nil {
			return err
		}
		return l.AddItem(productID, quantity)
	})
}

// SetQuantity changes a line's quantity; zero or less removes it. Owner only.
func (c *Coordinator) SetQuantity(ctx context.Context, groupID, actorID, productID string, quantity int) (*models.Group, error) {
	return c.mutate(ctx, "SetQuantity", groupID, func(l *ledger.Ledger, _ func(string, any)) error {
		if err := requireOwner("coordinator.SetQuantity", l, actorID); err != nil {
			return err
		}
		return l.SetQuantity(productID, quantity)
	})
}

// RemoveItem drops a product line. Owner only.
func (c *Coordinator) RemoveItem(ctx context.Context, groupID, actorID, productID string) (*models.Group, error) {
	return c.mutate(ctx, "RemoveItem", groupID, func(l *ledger.Ledger, _ func(string, any)) error {
		if err := requireOwner("coordinator.RemoveItem", l, actorID); err != nil {
			return err
		}
		return l.RemoveItem(productID)
	})
}
