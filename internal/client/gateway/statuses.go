package gateway

import (
	"context"
	"errors"

	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/common"
)

// ListStatuses returns every status record. Online it serves the remote list
// and refreshes the local mirror.
func (g *Gateway) ListStatuses(ctx context.Context) ([]models.Status, error) {
	if g.online() {
		statuses, err := g.remote.ListStatuses(ctx)
		if err == nil {
			for i := range statuses {
				st := statuses[i]
				g.locks.Do(st.ItemID, func() {
					if perr := g.repos.Statuses.Put(ctx, &st); perr != nil {
						g.log.Warn(ctx, "failed to mirror status", "item_id", st.ItemID, "error", perr)
					}
				})
			}
			return statuses, nil
		}
		g.log.Warn(ctx, "remote list failed, serving cached statuses", "error", err)
	}
	return g.repos.Statuses.GetAll(ctx)
}

// GetStatus returns the status record for an item, or common.ErrNotFound when
// the item is unclassified.
func (g *Gateway) GetStatus(ctx context.Context, itemID string) (*models.Status, error) {
	if g.online() && !tempid.IsTemporary(itemID) {
		st, err := g.remote.GetStatus(ctx, itemID)
		if err == nil {
			g.locks.Do(st.ItemID, func() {
				if perr := g.repos.Statuses.Put(ctx, st); perr != nil {
					g.log.Warn(ctx, "failed to mirror status", "item_id", st.ItemID, "error", perr)
				}
			})
			return st, nil
		}
		if !errors.Is(err, common.ErrRemoteUnreachable) {
			return nil, err
		}
		g.log.Warn(ctx, "remote get failed, serving cached status", "item_id", itemID, "error", err)
	}
	return g.repos.Statuses.GetByItemID(ctx, itemID)
}

// PutStatus classifies an item or amends its status. Non-zero fields of
// status replace the current values. Online, the write carries the version
// read from the mirror; a conflicting concurrent write is absorbed by
// re-reading and resubmitting once, so the local change still lands last.
// Offline, the merge happens against the cached record (or the implicit
// unclassified state for a first classification) and an update change is
// queued; the version is left for the synchronization pass to settle.
func (g *Gateway) PutStatus(ctx context.Context, status *models.Status) (*models.Status, error) {
	if g.online() && !tempid.IsTemporary(status.ItemID) {
		resp, err := g.putStatusRemote(ctx, status)
		if err == nil {
			var perr error
			g.locks.Do(resp.ItemID, func() {
				perr = g.repos.Statuses.Put(ctx, resp)
			})
			if perr != nil {
				return nil, perr
			}
			g.notify(ctx, models.OpUpdate, models.KindStatus, resp.ItemID, resp)
			return resp, nil
		}
		if !g.queueable(err) {
			return nil, err
		}
		g.log.Info(ctx, "remote status write failed, queuing offline", "item_id", status.ItemID, "error", err)
	}

	var merged *models.Status
	var err error
	g.locks.Do(status.ItemID, func() {
		var base *models.Status
		base, err = g.repos.Statuses.GetByItemID(ctx, status.ItemID)
		if errors.Is(err, common.ErrNotFound) {
			// First classification: the item must at least exist in the
			// catalog cache.
			if _, err = g.repos.Items.GetByID(ctx, status.ItemID); err != nil {
				return
			}
			base = models.NewUnclassified(status.ItemID)
		} else if err != nil {
			return
		}

		mergeStatus(base, status)
		if err = g.repos.Statuses.Put(ctx, base); err != nil {
			return
		}
		if err = g.enqueue(ctx, models.OpUpdate, models.KindStatus, base.ItemID, base); err != nil {
			return
		}
		merged = base
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// putStatusRemote submits the write with the mirrored version and absorbs a
// single version conflict by re-reading the remote copy.
func (g *Gateway) putStatusRemote(ctx context.Context, status *models.Status) (*models.Status, error) {
	if status.Version == 0 {
		if cached, err := g.repos.Statuses.GetByItemID(ctx, status.ItemID); err == nil {
			status.Version = cached.Version
		}
	}

	resp, err := g.remote.PutStatus(ctx, status)
	if !errors.Is(err, common.ErrVersionConflict) {
		return resp, err
	}

	current, gerr := g.remote.GetStatus(ctx, status.ItemID)
	if gerr != nil {
		return nil, gerr
	}
	status.Version = current.Version
	return g.remote.PutStatus(ctx, status)
}

// DeleteStatus reverts an item to the unclassified state. The catalog item
// itself is untouched.
func (g *Gateway) DeleteStatus(ctx context.Context, itemID string) error {
	if g.online() && !tempid.IsTemporary(itemID) {
		err := g.remote.DeleteStatus(ctx, itemID)
		switch {
		case err == nil, errors.Is(err, common.ErrNotFound):
			var derr error
			g.locks.Do(itemID, func() {
				derr = g.repos.Statuses.DeleteByItemID(ctx, itemID)
			})
			if derr != nil {
				return derr
			}
			g.notify(ctx, models.OpDelete, models.KindStatus, itemID, nil)
			return nil
		case g.queueable(err):
			g.log.Info(ctx, "remote status delete failed, queuing offline", "item_id", itemID, "error", err)
		default:
			return err
		}
	}

	var err error
	g.locks.Do(itemID, func() {
		if err = g.repos.Statuses.DeleteByItemID(ctx, itemID); err != nil {
			return
		}
		if tempid.IsTemporary(itemID) {
			// The owning item has not synchronized yet, so no status can
			// exist remotely; drop the queued status updates instead.
			err = g.cancelPendingStatus(ctx, itemID)
			return
		}
		err = g.enqueue(ctx, models.OpDelete, models.KindStatus, itemID, nil)
	})
	return err
}

// cancelPendingStatus removes queued status changes for a temporary item id,
// leaving the item's own create change alone.
func (g *Gateway) cancelPendingStatus(ctx context.Context, tempID string) error {
	pending, err := g.repos.Changes.GetByTargetID(ctx, tempID)
	if err != nil {
		return err
	}
	for _, c := range pending {
		if c.State != models.ChangeStatePending || c.Kind != models.KindStatus {
			continue
		}
		if err := g.repos.Changes.DeleteByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func mergeStatus(dst, src *models.Status) {
	if src.Classification != "" {
		dst.Classification = src.Classification
	}
	if src.ExpiryDates != nil {
		dst.ExpiryDates = src.ExpiryDates
	}
	if src.Flags != nil {
		dst.Flags = src.Flags
	}
}
