package repository

import (
	"context"

	"capsule-machine/internal/model"
)

// CatalogRepository defines the interface for prize catalog data operations.
// Read-mostly; mutated only by operator actions.
type CatalogRepository interface {
	// UpsertEntry creates or replaces a catalog entry by id.
	UpsertEntry(ctx context.Context, entry *model.CatalogEntry) error

	// GetEntry retrieves an entry by id. Returns ErrEntryNotFound if absent.
	GetEntry(ctx context.Context, id string) (*model.CatalogEntry, error)

	// GetEntries retrieves the entries for the given ids, keyed by id.
	// Missing ids are simply absent from the result.
	GetEntries(ctx context.Context, ids []string) (map[string]*model.CatalogEntry, error)

	// DeleteEntry removes an entry. Returns ErrEntryNotFound if absent.
	DeleteEntry(ctx context.Context, id string) error

	// ListEntries returns the whole catalog ordered by creation time.
	ListEntries(ctx context.Context) ([]*model.CatalogEntry, error)

	// ListEnabledByCategory returns the enabled entries of one category.
	ListEnabledByCategory(ctx context.Context, category model.Category) ([]*model.CatalogEntry, error)

	// LatestEnabledByCategory returns the most recently created enabled
	// entry of a category, or ErrEntryNotFound if there is none.
	LatestEnabledByCategory(ctx context.Context, category model.Category) (*model.CatalogEntry, error)
}

// WeightRepository defines the interface for the category weight table.
type WeightRepository interface {
	// GetWeights returns one row per declared category in declared order.
	GetWeights(ctx context.Context) ([]model.CategoryWeight, error)

	// SetWeights replaces the weights for the given categories.
	SetWeights(ctx context.Context, weights map[model.Category]int) error

	// SeedDefaults inserts the default weights for any category that has
	// no row yet. Existing rows are left untouched.
	SeedDefaults(ctx context.Context) error
}
