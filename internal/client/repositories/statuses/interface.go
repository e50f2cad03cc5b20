package statuses

import (
	"context"

	"github.com/larder-app/larder/internal/client/models"
)

// Repository describes CRUD and query operations for cached Status records.
// A missing record means the item is implicitly unclassified; that state is
// never stored.
type Repository interface {
	// Put inserts a new status or updates an existing one by item id,
	// stamping UpdatedAt.
	Put(ctx context.Context, status *models.Status) error

	// GetByItemID returns the status for an item, or common.ErrNotFound.
	GetByItemID(ctx context.Context, itemID string) (*models.Status, error)

	// GetAll returns all cached statuses.
	GetAll(ctx context.Context) ([]models.Status, error)

	// GetByClassification returns statuses in the given bucket.
	GetByClassification(ctx context.Context, classification string) ([]models.Status, error)

	// DeleteByItemID removes a status. Deleting an absent status is not an
	// error; the item simply stays unclassified.
	DeleteByItemID(ctx context.Context, itemID string) error

	// ReplaceItemID rewrites the owning item identifier in place, used when
	// a temporary id resolves to a permanent one.
	ReplaceItemID(ctx context.Context, oldID, newID string) error

	// Clear removes every status.
	Clear(ctx context.Context) error
}
