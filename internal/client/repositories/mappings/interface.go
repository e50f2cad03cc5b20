package mappings

import (
	"context"
	"time"

	"github.com/larder-app/larder/internal/client/models"
)

// Repository describes the identifier-mapping table.
type Repository interface {
	// Create records a freshly minted temporary identifier.
	Create(ctx context.Context, mapping *models.IDMapping) error

	// GetByTempID returns a mapping, or common.ErrNotFound.
	GetByTempID(ctx context.Context, tempID string) (*models.IDMapping, error)

	// GetAll returns every mapping.
	GetAll(ctx context.Context) ([]models.IDMapping, error)

	// GetPending returns mappings that still lack a permanent identifier,
	// oldest first. These are exactly the identifiers that must resolve
	// before the replica is fully consistent.
	GetPending(ctx context.Context) ([]models.IDMapping, error)

	// Resolve records the server-assigned permanent identifier and the
	// time the mapping was synchronized.
	Resolve(ctx context.Context, tempID, permanentID string, syncedAt time.Time) error

	// Delete removes one mapping, or common.ErrNotFound.
	Delete(ctx context.Context, tempID string) error

	// Clear removes every mapping.
	Clear(ctx context.Context) error
}
