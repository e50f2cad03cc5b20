package gateway

import (
	"context"
	"errors"

	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/common"
)

// ListItems returns the catalog. Online it serves the remote list and
// refreshes the local mirror; offline, or when the remote read fails, it
// serves the mirror.
func (g *Gateway) ListItems(ctx context.Context) ([]models.Item, error) {
	if g.online() {
		items, err := g.remote.ListItems(ctx)
		if err == nil {
			for i := range items {
				it := items[i]
				g.locks.Do(it.ID, func() {
					if perr := g.repos.Items.Put(ctx, &it); perr != nil {
						g.log.Warn(ctx, "failed to mirror item", "id", it.ID, "error", perr)
					}
				})
			}
			return items, nil
		}
		g.log.Warn(ctx, "remote list failed, serving cached items", "error", err)
	}
	return g.repos.Items.GetAll(ctx)
}

// GetItem returns one catalog item. Entities under a temporary identifier are
// always served locally.
func (g *Gateway) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if g.online() && !tempid.IsTemporary(id) {
		it, err := g.remote.GetItem(ctx, id)
		if err == nil {
			g.locks.Do(it.ID, func() {
				if perr := g.repos.Items.Put(ctx, it); perr != nil {
					g.log.Warn(ctx, "failed to mirror item", "id", it.ID, "error", perr)
				}
			})
			return it, nil
		}
		if !errors.Is(err, common.ErrRemoteUnreachable) {
			return nil, err
		}
		g.log.Warn(ctx, "remote get failed, serving cached item", "id", id, "error", err)
	}
	return g.repos.Items.GetByID(ctx, id)
}

// CreateItem adds a catalog item. Online, the server-confirmed response
// (carrying the permanent identifier) is mirrored and returned. Offline, the
// item is created under a temporary identifier and a create change is queued.
func (g *Gateway) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if g.online() {
		resp, err := g.remote.CreateItem(ctx, item)
		if err == nil {
			var perr error
			g.locks.Do(resp.ID, func() {
				perr = g.repos.Items.Put(ctx, resp)
			})
			if perr != nil {
				return nil, perr
			}
			g.notify(ctx, models.OpCreate, models.KindItem, resp.ID, resp)
			return resp, nil
		}
		if !g.queueable(err) {
			return nil, err
		}
		g.log.Info(ctx, "remote create failed, queuing offline", "error", err)
	}

	item.ID = g.alloc.Allocate(ctx, models.KindItem)

	var err error
	g.locks.Do(item.ID, func() {
		if err = g.repos.Items.Put(ctx, item); err != nil {
			return
		}
		err = g.enqueue(ctx, models.OpCreate, models.KindItem, item.ID, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem modifies a catalog item. Non-empty fields of item replace the
// cached values; zero fields are left alone. Offline the merged copy is
// cached and an update change is queued.
func (g *Gateway) UpdateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if g.online() && !tempid.IsTemporary(item.ID) {
		resp, err := g.remote.UpdateItem(ctx, item)
		if err == nil {
			var perr error
			g.locks.Do(resp.ID, func() {
				perr = g.repos.Items.Put(ctx, resp)
			})
			if perr != nil {
				return nil, perr
			}
			g.notify(ctx, models.OpUpdate, models.KindItem, resp.ID, resp)
			return resp, nil
		}
		if !g.queueable(err) {
			return nil, err
		}
		g.log.Info(ctx, "remote update failed, queuing offline", "id", item.ID, "error", err)
	}

	var merged *models.Item
	var err error
	g.locks.Do(item.ID, func() {
		merged, err = g.repos.Items.GetByID(ctx, item.ID)
		if err != nil {
			return
		}
		mergeItem(merged, item)
		if err = g.repos.Items.Put(ctx, merged); err != nil {
			return
		}
		err = g.enqueue(ctx, models.OpUpdate, models.KindItem, merged.ID, merged)
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// DeleteItem removes a catalog item and its status record. Statuses never
// outlive their item, locally or remotely.
func (g *Gateway) DeleteItem(ctx context.Context, id string) error {
	if g.online() && !tempid.IsTemporary(id) {
		err := g.remote.DeleteItem(ctx, id)
		switch {
		case err == nil, errors.Is(err, common.ErrNotFound):
			var derr error
			g.locks.Do(id, func() {
				derr = g.deleteItemLocal(ctx, id)
			})
			if derr != nil {
				return derr
			}
			g.notify(ctx, models.OpDelete, models.KindItem, id, nil)
			return nil
		case g.queueable(err):
			g.log.Info(ctx, "remote delete failed, queuing offline", "id", id, "error", err)
		default:
			return err
		}
	}

	var err error
	g.locks.Do(id, func() {
		if err = g.deleteItemLocal(ctx, id); err != nil {
			return
		}
		if tempid.IsTemporary(id) {
			// The entity never reached the server; cancel its queued
			// changes instead of replaying a create-then-delete pair.
			err = g.cancelPending(ctx, id)
			return
		}
		err = g.enqueue(ctx, models.OpDelete, models.KindItem, id, nil)
	})
	return err
}

func (g *Gateway) deleteItemLocal(ctx context.Context, id string) error {
	if err := g.repos.Items.DeleteByID(ctx, id); err != nil {
		return err
	}
	return g.repos.Statuses.DeleteByItemID(ctx, id)
}

// cancelPending removes every pending change queued against a temporary id,
// together with its mapping.
func (g *Gateway) cancelPending(ctx context.Context, tempID string) error {
	pending, err := g.repos.Changes.GetByTargetID(ctx, tempID)
	if err != nil {
		return err
	}
	for _, c := range pending {
		if c.State != models.ChangeStatePending {
			continue
		}
		if err := g.repos.Changes.DeleteByID(ctx, c.ID); err != nil {
			return err
		}
	}
	if err := g.repos.Mappings.Delete(ctx, tempID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

func mergeItem(dst, src *models.Item) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Category != "" {
		dst.Category = src.Category
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
}
