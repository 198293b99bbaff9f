package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/models"
)

// CreateParams describes a new group.
type CreateParams struct {
	Name            string
	Visibility      models.Visibility
	DeliveryMethod  models.DeliveryMethod
	PickupAddressID string
	// Items optionally pre-populates the group from the owner's cart.
	Items []models.CartLine
}

// Settings is a partial update of a group's settings; nil fields are left alone.
type Settings struct {
	Name            *string
	Visibility      *models.Visibility
	DeliveryMethod  *models.DeliveryMethod
	PickupAddressID *string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{models.ErrInvalidArgument}, args...)...)
}

func validateSettings(g *models.Group) error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid("group name is required")
	}
	if !g.Visibility.Valid() {
		return invalid("unknown visibility %q", g.Visibility)
	}
	if !g.DeliveryMethod.Valid() {
		return invalid("unknown delivery method %q", g.DeliveryMethod)
	}
	if g.DeliveryMethod == models.DeliveryPickup && g.PickupAddressID == "" {
		return invalid("pickup requires a pickup address")
	}
	if g.DeliveryMethod == models.DeliveryShipping {
		g.PickupAddressID = ""
	}
	return nil
}

// CreateGroup creates a group owned by ownerID, optionally seeded with cart lines.
func (c *Coordinator) CreateGroup(ctx context.Context, ownerID string, params CreateParams) (group *models.Group, err error) {
	ctx, end := c.begin(ctx, "CreateGroup", "")
	defer func() { end(err) }()

	if ownerID == "" {
		return nil, invalid("owner is required")
	}

	group = models.NewGroup(ownerID, strings.TrimSpace(params.Name))
	if params.Visibility != "" {
		group.Visibility = params.Visibility
	}
	if params.DeliveryMethod != "" {
		group.DeliveryMethod = params.DeliveryMethod
	}
	group.PickupAddressID = params.PickupAddressID
	if err := validateSettings(group); err != nil {
		return nil, models.NewError("coordinator.CreateGroup", "", err)
	}

	lines := calculator.NormalizeCart(params.Items)
	if len(lines) > 0 {
		ids := make([]string, len(lines))
		for i, line := range lines {
			ids[i] = line.ProductID
		}
		catalog, err := c.catalogFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		l := ledger.New(group, catalog)
		for _, line := range lines {
			if _, err := catalog.Product(line.ProductID); err != nil {
				return nil, models.NewError("coordinator.CreateGroup", "", err)
			}
			if err := l.AddItem(line.ProductID, line.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if err := c.store.CreateGroup(ctx, group); err != nil {
		return nil, classify("CreateGroup", err)
	}
	c.invalidate(ctx)

	slog.Info("Group created", "group_id", group.ID, "owner_id", ownerID, "items", len(group.Items))
	return group, nil
}

// UpdateSettings changes name, visibility or delivery. Owner only; allowed while
// payment-locked because only items freeze.
func (c *Coordinator) UpdateSettings(ctx context.Context, groupID, actorID string, s Settings) (*models.Group, error) {
	return c.mutate(ctx, "UpdateSettings", groupID, func(l *ledger.Ledger, _ func(string, any)) error {
		g := l.Group()
		if actorID != g.OwnerID {
			return models.NewError("coordinator.UpdateSettings", groupID, models.ErrNotOwner)
		}
		if s.Name != nil {
			g.Name = strings.TrimSpace(*s.Name)
		}
		if s.Visibility != nil {
			g.Visibility = *s.Visibility
		}
		if s.DeliveryMethod != nil {
			g.DeliveryMethod = *s.DeliveryMethod
		}
		if s.PickupAddressID != nil {
			g.PickupAddressID = *s.PickupAddressID
		}
		if err := validateSettings(g); err != nil {
			return models.NewError("coordinator.UpdateSettings", groupID, err)
		}
		return nil
	})
}

// canView reports whether viewerID may read g by ID. Private groups are only
// visible to their owner and users holding a participant record; everyone else
// needs the share token.
func canView(g *models.Group, viewerID string) bool {
	if g.Visibility == models.VisibilityPublic || viewerID == g.OwnerID {
		return true
	}
	_, ok := g.Participants[viewerID]
	return ok
}

// GetGroup returns the group if viewerID may see it.
func (c *Coordinator) GetGroup(ctx context.Context, groupID, viewerID string) (group *models.Group, err error) {
	ctx, end := c.begin(ctx, "GetGroup", groupID)
	defer func() { end(err) }()

	group, err = c.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, classify("GetGroup", err)
	}
	if !canView(group, viewerID) {
		return nil, models.NewError("coordinator.GetGroup", groupID, models.ErrGroupNotFound)
	}
	return group, nil
}

// GetGroupByShareToken resolves a share link, private groups included.
func (c *Coordinator) GetGroupByShareToken(ctx context.Context, token string) (group *models.Group, err error) {
	ctx, end := c.begin(ctx, "GetGroupByShareToken", "")
	defer func() { end(err) }()

	if token == "" {
		return nil, invalid("share token is required")
	}
	group, err = c.store.GetGroupByShareToken(ctx, token)
	if err != nil {
		return nil, classify("GetGroupByShareToken", err)
	}
	return group, nil
}

// ListMyGroups returns the groups userID owns or has a participant record in.
func (c *Coordinator) ListMyGroups(ctx context.Context, userID string) (groups []*models.Group, err error) {
	ctx, end := c.begin(ctx, "ListMyGroups", "")
	defer func() { end(err) }()

	groups, err = c.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, classify("ListMyGroups", err)
	}
	return groups, nil
}

// Summary computes the priced summary of a group.
func (c *Coordinator) Summary(ctx context.Context, groupID, viewerID string) (*models.Group, ledger.Summary, error) {
	group, err := c.GetGroup(ctx, groupID, viewerID)
	if err != nil {
		return nil, ledger.Summary{}, err
	}

	ids := make([]string, 0, len(group.Items))
	for id := range group.Items {
		ids = append(ids, id)
	}
	catalog, err := c.catalogFor(ctx, ids)
	if err != nil {
		return nil, ledger.Summary{}, err
	}
	summary, err := ledger.New(group, catalog).Summarize()
	if err != nil {
		return nil, ledger.Summary{}, err
	}
	return group, summary, nil
}

// DeleteGroup removes a group with its items, participants and payments.
// Only the owner may delete, and never once a payment was recorded.
func (c *Coordinator) DeleteGroup(ctx context.Context, groupID, actorID string) (err error) {
	ctx, end := c.begin(ctx, "DeleteGroup", groupID)
	defer func() { end(err) }()

	unlock := c.locks.Lock(groupID)
	defer unlock()

	var ownerID string
	err = c.store.DeleteGroup(ctx, groupID, func(g *models.Group) error {
		if actorID != g.OwnerID {
			return models.NewError("coordinator.DeleteGroup", groupID, models.ErrNotOwner)
		}
		if g.PaymentLocked {
			return models.NewError("coordinator.DeleteGroup", groupID, models.ErrGroupLocked)
		}
		ownerID = g.OwnerID
		return nil
	})
	if err != nil {
		return classify("DeleteGroup", err)
	}

	c.invalidate(ctx)
	c.publish(ctx, events.EventGroupDeleted, groupID, events.GroupDeletedPayload{GroupID: groupID, OwnerID: ownerID})
	slog.Info("Group deleted", "group_id", groupID)
	return nil
}
