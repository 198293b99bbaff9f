package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupcart/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "groupcart-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup generates ID and share token", func(t *testing.T) {
		group := models.NewGroup("owner-1", "Pantry run")
		group.Items["rice"] = models.GroupItem{ProductID: "rice", Quantity: 2}

		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.ShareToken == "" {
			t.Error("Expected share token to be generated")
		}
	})

	t.Run("GetGroup retrieves the full aggregate", func(t *testing.T) {
		original := models.NewGroup("owner-2", "Coffee club")
		original.DeliveryMethod = models.DeliveryPickup
		original.PickupAddressID = "addr-9"
		original.Items["beans"] = models.GroupItem{ProductID: "beans", Quantity: 3}
		original.Participants["alice"] = models.Participant{UserID: "alice", Status: models.StatusApproved, UpdatedAt: 10}
		original.Participants["bob"] = models.Participant{UserID: "bob", Status: models.StatusPending, UpdatedAt: 11}
		if err := store.CreateGroup(ctx, original); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		retrieved, err := store.GetGroup(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if retrieved.Name != original.Name {
			t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, original.Name)
		}
		if retrieved.DeliveryMethod != models.DeliveryPickup || retrieved.PickupAddressID != "addr-9" {
			t.Errorf("Delivery mismatch: got %s/%s", retrieved.DeliveryMethod, retrieved.PickupAddressID)
		}
		if retrieved.Items["beans"].Quantity != 3 {
			t.Errorf("Item quantity mismatch: got %d, want 3", retrieved.Items["beans"].Quantity)
		}
		if retrieved.StatusOf("alice") != models.StatusApproved || retrieved.StatusOf("bob") != models.StatusPending {
			t.Errorf("Participants mismatch: %+v", retrieved.Participants)
		}

		byToken, err := store.GetGroupByShareToken(ctx, original.ShareToken)
		if err != nil {
			t.Fatalf("GetGroupByShareToken failed: %v", err)
		}
		if byToken.ID != original.ID {
			t.Errorf("Share token lookup returned %s, want %s", byToken.ID, original.ID)
		}
	})

	t.Run("GetGroup returns ErrGroupNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		if !errors.Is(err, models.ErrGroupNotFound) {
			t.Errorf("Expected ErrGroupNotFound, got %v", err)
		}
	})
}

func TestSQLiteStore_ListGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	public := models.NewGroup("owner", "Public")
	private := models.NewGroup("owner", "Private")
	private.Visibility = models.VisibilityPrivate
	other := models.NewGroup("someone-else", "Other")
	other.Participants["member"] = models.Participant{UserID: "member", Status: models.StatusRejected}

	for _, g := range []*models.Group{public, private, other} {
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	groups, err := store.ListPublicGroups(ctx)
	if err != nil {
		t.Fatalf("ListPublicGroups failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected 2 public groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Visibility != models.VisibilityPublic {
			t.Errorf("Private group %s listed", g.ID)
		}
	}

	mine, err := store.ListGroupsForUser(ctx, "owner")
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("Expected 2 groups for owner, got %d", len(mine))
	}

	theirs, err := store.ListGroupsForUser(ctx, "member")
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(theirs) != 1 || theirs[0].ID != other.ID {
		t.Errorf("Expected only %s for member, got %d groups", other.ID, len(theirs))
	}
}

func TestSQLiteStore_MutateGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := models.NewGroup("owner", "Snacks")
	group.Items["chips"] = models.GroupItem{ProductID: "chips", Quantity: 1}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	t.Run("writes back the mutated aggregate", func(t *testing.T) {
		_, err := store.MutateGroup(ctx, group.ID, func(g *models.Group) error {
			delete(g.Items, "chips")
			g.Items["nuts"] = models.GroupItem{ProductID: "nuts", Quantity: 4}
			g.Participants["alice"] = models.Participant{UserID: "alice", Status: models.StatusApproved}
			g.Payments["alice"] = models.Payment{UserID: "alice", HasPaid: true, Amount: decimal.RequireFromString("12.34"), PaidAt: 99, Reference: "ch_1"}
			g.PaymentLocked = true
			return nil
		})
		if err != nil {
			t.Fatalf("MutateGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.HasProduct("chips") || got.Items["nuts"].Quantity != 4 {
			t.Errorf("Items not replaced: %+v", got.Items)
		}
		if !got.PaymentLocked {
			t.Error("Expected payment lock to persist")
		}
		p := got.Payments["alice"]
		if !p.HasPaid || !p.Amount.Equal(decimal.RequireFromString("12.34")) || p.Reference != "ch_1" {
			t.Errorf("Payment mismatch: %+v", p)
		}
	})

	t.Run("an error from fn writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.MutateGroup(ctx, group.ID, func(g *models.Group) error {
			g.Name = "Renamed"
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected fn error, got %v", err)
		}
		got, _ := store.GetGroup(ctx, group.ID)
		if got.Name != "Snacks" {
			t.Errorf("Name changed to %q despite aborted mutation", got.Name)
		}
	})

	t.Run("concurrent mutations are serialized", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.MutateGroup(ctx, group.ID, func(g *models.Group) error {
					item := g.Items["nuts"]
					item.Quantity++
					g.Items["nuts"] = item
					return nil
				})
				if err != nil {
					t.Errorf("MutateGroup failed: %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := store.GetGroup(ctx, group.ID)
		if got.Items["nuts"].Quantity != 14 {
			t.Errorf("Lost update: quantity %d, want 14", got.Items["nuts"].Quantity)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := store.MutateGroup(ctx, "missing", func(*models.Group) error { return nil })
		if !errors.Is(err, models.ErrGroupNotFound) {
			t.Errorf("Expected ErrGroupNotFound, got %v", err)
		}
	})
}

func TestSQLiteStore_DeleteGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := models.NewGroup("owner", "Temporary")
	group.Items["tea"] = models.GroupItem{ProductID: "tea", Quantity: 1}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	veto := errors.New("not allowed")
	if err := store.DeleteGroup(ctx, group.ID, func(*models.Group) error { return veto }); !errors.Is(err, veto) {
		t.Fatalf("Expected veto error, got %v", err)
	}
	if _, err := store.GetGroup(ctx, group.ID); err != nil {
		t.Fatalf("Group should survive a vetoed delete: %v", err)
	}

	if err := store.DeleteGroup(ctx, group.ID, nil); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, models.ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound after delete, got %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM group_items WHERE group_id = ?", group.ID).Scan(&count); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected items to cascade, %d left", count)
	}
}

func TestSQLiteStore_Catalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rice := &models.Product{
		ID:            "rice",
		Name:          "Rice 5kg",
		OriginalPrice: decimal.RequireFromString("10.00"),
		DiscountTiers: []models.DiscountTier{
			{MinQuantity: 5, FinalPrice: decimal.RequireFromString("8.00")},
			{MinQuantity: 10, FinalPrice: decimal.RequireFromString("7.50")},
		},
	}
	if err := store.UpsertProduct(ctx, rice); err != nil {
		t.Fatalf("UpsertProduct failed: %v", err)
	}

	got, err := store.GetProduct(ctx, "rice")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !got.OriginalPrice.Equal(rice.OriginalPrice) {
		t.Errorf("Price mismatch: got %s", got.OriginalPrice)
	}
	if len(got.DiscountTiers) != 2 || !got.DiscountTiers[0].FinalPrice.Equal(decimal.RequireFromString("8")) {
		t.Errorf("Tiers mismatch or out of order: %+v", got.DiscountTiers)
	}

	rice.DiscountTiers = rice.DiscountTiers[:1]
	rice.Name = "Rice 5kg (new)"
	if err := store.UpsertProduct(ctx, rice); err != nil {
		t.Fatalf("UpsertProduct (update) failed: %v", err)
	}
	got, _ = store.GetProduct(ctx, "rice")
	if got.Name != "Rice 5kg (new)" || len(got.DiscountTiers) != 1 {
		t.Errorf("Upsert did not replace product: %+v", got)
	}

	products, err := store.GetProducts(ctx, []string{"rice", "missing"})
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("Expected missing IDs to be omitted, got %d products", len(products))
	}

	if _, err := store.GetProduct(ctx, "missing"); !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestRepeatPlaceholder(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, ", ?"},
		{3, ", ?, ?, ?"},
	}
	for _, tt := range tests {
		if got := repeatPlaceholder(tt.n); got != tt.want {
			t.Errorf("repeatPlaceholder(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
