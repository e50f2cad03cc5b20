// Package syncer replays the pending-change queue against the remote
// authority, resolving temporary identifiers and write conflicts along the
// way. A successful pass leaves the queue empty and the local store mirroring
// server-confirmed state.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/larder-app/larder/internal/client/keylock"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/remote"
	"github.com/larder-app/larder/internal/client/store"
	"github.com/larder-app/larder/internal/common"
	"github.com/larder-app/larder/internal/logging"
)

// Report summarizes one synchronization pass.
type Report struct {
	// Resolved counts changes confirmed by the remote and removed.
	Resolved int

	// Failed counts changes rejected by the remote and marked failed;
	// these wait for operator intervention and are not retried.
	Failed int

	// Remaining counts changes still pending after the pass.
	Remaining int
}

// Engine drains the pending-change queue. Safe for concurrent use; a Run
// issued while another is active coalesces to a no-op.
type Engine struct {
	remote remote.Client
	repos  *store.Repositories
	locks  *keylock.KeyLock
	log    logging.Logger

	running atomic.Bool
}

// New wires an Engine. The keylock must be the same instance the gateway
// uses. A nil logger falls back to a no-op.
func New(rc remote.Client, repos *store.Repositories, locks *keylock.KeyLock, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop{}
	}
	return &Engine{remote: rc, repos: repos, locks: locks, log: log}
}

// Run replays every pending change in (created_at, id) order. Changes the
// remote confirms are removed; a validation rejection marks the change failed
// and moves on; any other remote error leaves the change pending without
// touching changes for other entities. Returns common.ErrSyncInFlight when
// another Run is already active.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Report{}, common.ErrSyncInFlight
	}
	defer e.running.Store(false)

	var report Report

	pending, err := e.repos.Changes.GetAllPending(ctx)
	if err != nil {
		return report, err
	}

	// Identifier rewrites performed during this pass. The queue snapshot
	// above still carries the old temporary ids for changes that a create
	// earlier in the pass retargets.
	renames := map[string]string{}

	// Targets whose earlier change failed transiently this pass; later
	// changes for them must wait so replay order per entity is preserved.
	blocked := map[string]bool{}

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			report.Remaining = len(pending) - report.Resolved - report.Failed
			return report, err
		}

		if newID, ok := renames[c.TargetID]; ok {
			c.TargetID = newID
		}
		if blocked[c.TargetID] {
			continue
		}

		var perr error
		e.locks.Do(c.TargetID, func() {
			perr = e.process(ctx, c, renames)
		})

		switch {
		case perr == nil:
			report.Resolved++
		case errors.Is(perr, common.ErrValidation):
			reason := perr.Error()
			if merr := e.repos.Changes.MarkFailed(ctx, c.ID, reason); merr != nil {
				report.Remaining = len(pending) - report.Resolved - report.Failed
				return report, merr
			}
			report.Failed++
			e.log.Warn(ctx, "pending change rejected by remote",
				"change_id", c.ID, "op", c.Op, "kind", c.Kind, "target_id", c.TargetID, "error", perr)
		case errors.Is(perr, common.ErrStorageUnavailable), errors.Is(perr, common.ErrStorageQuota):
			report.Remaining = len(pending) - report.Resolved - report.Failed
			return report, perr
		default:
			blocked[c.TargetID] = true
			e.log.Info(ctx, "pending change left for next pass",
				"change_id", c.ID, "op", c.Op, "kind", c.Kind, "target_id", c.TargetID, "error", perr)
		}
	}

	remaining, err := e.repos.Changes.CountPending(ctx)
	if err != nil {
		return report, err
	}
	report.Remaining = remaining

	if report.Resolved > 0 || report.Failed > 0 {
		e.log.Info(ctx, "synchronization pass finished",
			"resolved", report.Resolved, "failed", report.Failed, "remaining", report.Remaining)
	}
	return report, nil
}

func (e *Engine) process(ctx context.Context, c *models.PendingChange, renames map[string]string) error {
	switch {
	case c.Op == models.OpCreate && c.Kind == models.KindItem:
		return e.createItem(ctx, c, renames)
	case c.Op == models.OpUpdate && c.Kind == models.KindItem:
		return e.updateItem(ctx, c)
	case c.Op == models.OpDelete && c.Kind == models.KindItem:
		return e.deleteRemote(ctx, c, e.remote.DeleteItem)
	case (c.Op == models.OpUpdate || c.Op == models.OpCreate) && c.Kind == models.KindStatus:
		return e.putStatus(ctx, c)
	case c.Op == models.OpDelete && c.Kind == models.KindStatus:
		return e.deleteRemote(ctx, c, e.remote.DeleteStatus)
	default:
		return fmt.Errorf("%w: unknown pending change op %q kind %q", common.ErrValidation, c.Op, c.Kind)
	}
}

// createItem submits an offline-created item and rewrites its temporary
// identifier everywhere: the mapping, both caches, and every queued change
// still referencing it.
func (e *Engine) createItem(ctx context.Context, c *models.PendingChange, renames map[string]string) error {
	item, err := c.ItemPayload()
	if err != nil {
		return fmt.Errorf("%w: undecodable item payload: %v", common.ErrValidation, err)
	}
	tempID := c.TargetID

	// The server assigns the permanent identifier. One exception: when an
	// earlier pass already resolved the mapping but stopped before the
	// local rewrite completed, the assigned id is reused so the replay
	// does not mint a second remote entity.
	item.ID = ""
	if m, merr := e.repos.Mappings.GetByTempID(ctx, tempID); merr == nil {
		if !m.Pending() {
			item.ID = m.PermanentID
		}
	} else if !errors.Is(merr, common.ErrNotFound) {
		return merr
	}

	resp, err := e.remote.CreateItem(ctx, item)
	if err != nil {
		return err
	}

	permID := resp.ID

	if err := e.repos.Mappings.Resolve(ctx, tempID, permID, time.Now().UTC()); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		e.log.Warn(ctx, "no mapping recorded for temporary id", "temp_id", tempID)
	}
	if err := e.repos.Items.ReplaceID(ctx, tempID, permID); err != nil {
		return err
	}
	if err := e.repos.Statuses.ReplaceItemID(ctx, tempID, permID); err != nil {
		return err
	}
	if err := e.repos.Changes.RetargetID(ctx, tempID, permID); err != nil {
		return err
	}
	renames[tempID] = permID

	if err := e.repos.Items.Put(ctx, resp); err != nil {
		return err
	}
	return e.repos.Changes.DeleteByID(ctx, c.ID)
}

// updateItem replays an item update; a remotely deleted target falls back to
// a create so exactly one remote entity results.
func (e *Engine) updateItem(ctx context.Context, c *models.PendingChange) error {
	item, err := c.ItemPayload()
	if err != nil {
		return fmt.Errorf("%w: undecodable item payload: %v", common.ErrValidation, err)
	}
	// The queued payload may predate an identifier rewrite; the target id
	// is authoritative.
	item.ID = c.TargetID

	resp, rerr := e.remote.UpdateItem(ctx, item)
	if errors.Is(rerr, common.ErrNotFound) {
		resp, rerr = e.remote.CreateItem(ctx, item)
	}
	if rerr != nil {
		return rerr
	}

	if err := e.repos.Items.Put(ctx, resp); err != nil {
		return err
	}
	return e.repos.Changes.DeleteByID(ctx, c.ID)
}

// putStatus replays a status write under the last-local-write-wins policy:
// whatever version the remote currently holds, the local payload is applied
// on top of it. A missing remote record becomes a create with version 1.
func (e *Engine) putStatus(ctx context.Context, c *models.PendingChange) error {
	st, err := c.StatusPayload()
	if err != nil {
		return fmt.Errorf("%w: undecodable status payload: %v", common.ErrValidation, err)
	}
	st.ItemID = c.TargetID

	current, rerr := e.remote.GetStatus(ctx, st.ItemID)
	switch {
	case errors.Is(rerr, common.ErrNotFound):
		st.Version = 0
	case rerr != nil:
		return rerr
	default:
		st.Version = current.Version
	}

	resp, rerr := e.remote.PutStatus(ctx, st)
	if rerr != nil {
		// A conflict here means a writer raced between the read above
		// and the write; the change stays pending for the next pass.
		return rerr
	}

	if err := e.repos.Statuses.Put(ctx, resp); err != nil {
		return err
	}
	return e.repos.Changes.DeleteByID(ctx, c.ID)
}

// deleteRemote replays a delete; a target already absent remotely counts as
// satisfied.
func (e *Engine) deleteRemote(ctx context.Context, c *models.PendingChange, del func(context.Context, string) error) error {
	if err := del(ctx, c.TargetID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return e.repos.Changes.DeleteByID(ctx, c.ID)
}
