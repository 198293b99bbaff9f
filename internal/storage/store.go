// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/groupcart/internal/models"
)

// MutateFunc changes a loaded group in place. Returning an error aborts the
// mutation and nothing is written.
type MutateFunc func(group *models.Group) error

// GroupStore defines the persistence contract for group aggregates.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the coordinator.
type GroupStore interface {
	// CreateGroup persists a new group. ID, ShareToken and CreatedAt are
	// populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its items, participants and payments.
	// Returns an error wrapping models.ErrGroupNotFound if it does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByShareToken retrieves a group by its share token.
	GetGroupByShareToken(ctx context.Context, token string) (*models.Group, error)

	// ListPublicGroups returns a snapshot of every public group.
	ListPublicGroups(ctx context.Context) ([]*models.Group, error)

	// ListGroupsForUser returns groups the user owns or holds any participant record in.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// MutateGroup loads the group, applies fn and writes the result back inside
	// one transaction that excludes concurrent writers to the same group.
	MutateGroup(ctx context.Context, groupID string, fn MutateFunc) (*models.Group, error)

	// DeleteGroup removes a group and everything it owns. check runs against the
	// loaded group inside the same transaction and may veto the deletion.
	DeleteGroup(ctx context.Context, groupID string, check MutateFunc) error
}

// CatalogStore defines read access to products plus the seeding hook.
type CatalogStore interface {
	// GetProduct returns an error wrapping models.ErrProductNotFound when absent.
	GetProduct(ctx context.Context, productID string) (*models.Product, error)

	// GetProducts returns the products found for ids, keyed by ID. Missing IDs are omitted.
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)

	// UpsertProduct inserts or replaces a product and its discount tiers.
	UpsertProduct(ctx context.Context, product *models.Product) error
}

// Store is the full persistence collaborator.
type Store interface {
	GroupStore
	CatalogStore

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
