package items

import (
	"context"

	"github.com/larder-app/larder/internal/client/models"
)

// Repository describes CRUD and query operations for cached Item objects.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Put inserts a new item or updates an existing one by ID,
	// stamping UpdatedAt.
	Put(ctx context.Context, item *models.Item) error

	// GetByID returns an item by its identifier, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Item, error)

	// GetAll returns all cached items.
	GetAll(ctx context.Context) ([]models.Item, error)

	// GetByCategory returns items carrying the given category tag.
	GetByCategory(ctx context.Context, category string) ([]models.Item, error)

	// DeleteByID removes an item. Deleting an absent item is not an error.
	DeleteByID(ctx context.Context, id string) error

	// ReplaceID rewrites an item identifier in place, used when a
	// temporary id resolves to a permanent one.
	ReplaceID(ctx context.Context, oldID, newID string) error

	// Clear removes every item.
	Clear(ctx context.Context) error
}
