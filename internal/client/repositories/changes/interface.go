package changes

import (
	"context"

	"github.com/larder-app/larder/internal/client/models"
)

// Repository describes the pending-change queue. Entries are appended by the
// gateway on offline writes and removed by the sync engine after the
// corresponding remote call succeeds or is confirmed moot.
type Repository interface {
	// Append adds a change to the queue, assigning its sequence ID and
	// stamping CreatedAt.
	Append(ctx context.Context, change *models.PendingChange) error

	// GetAllPending returns changes in state pending, in deterministic
	// replay order (created_at, then sequence id).
	GetAllPending(ctx context.Context) ([]*models.PendingChange, error)

	// GetAll returns every queued change, including failed ones.
	GetAll(ctx context.Context) ([]*models.PendingChange, error)

	// GetByTargetID returns pending changes aimed at one entity, in
	// replay order.
	GetByTargetID(ctx context.Context, targetID string) ([]*models.PendingChange, error)

	// DeleteByID removes a single change by its sequence ID.
	DeleteByID(ctx context.Context, id int64) error

	// MarkFailed parks a change in the failed state with a reason;
	// failed changes are skipped by replay until an operator intervenes.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// RetargetID rewrites the target id of queued changes when a temporary
	// identifier resolves to a permanent one.
	RetargetID(ctx context.Context, oldID, newID string) error

	// CountPending returns the number of changes still awaiting replay.
	CountPending(ctx context.Context) (int, error)

	// Clear removes every queued change.
	Clear(ctx context.Context) error
}
