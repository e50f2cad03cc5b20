// Package remote talks to the remote authority, the server-side system of
// record for items and statuses.
package remote

import (
	"context"

	"github.com/larder-app/larder/internal/client/models"
)

// Client is the consumed surface of the remote authority. Status updates
// carry the optimistic-concurrency version; a get/update/delete on a
// nonexistent id yields common.ErrNotFound, which the sync engine relies on
// for create-fallback and delete-idempotence.
type Client interface {
	// Ping probes reachability.
	Ping(ctx context.Context) error

	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	// CreateItem submits a new item; the response carries the
	// server-assigned identifier.
	CreateItem(ctx context.Context, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error

	ListStatuses(ctx context.Context) ([]models.Status, error)
	GetStatus(ctx context.Context, itemID string) (*models.Status, error)
	// PutStatus creates or updates the status for an item. The submitted
	// Version must be the one the caller read, zero when no record was
	// read; the response carries the incremented version.
	PutStatus(ctx context.Context, status *models.Status) (*models.Status, error)
	DeleteStatus(ctx context.Context, itemID string) error
}
