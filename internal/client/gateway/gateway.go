// Package gateway is the single entry point the application uses for every
// read and write of items and statuses. Per call it decides whether to talk
// to the remote authority or to the local store, keeps both in agreement
// when online, and queues pending changes when offline.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/larder-app/larder/internal/client/connectivity"
	"github.com/larder-app/larder/internal/client/keylock"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/push"
	"github.com/larder-app/larder/internal/client/remote"
	"github.com/larder-app/larder/internal/client/store"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/common"
	"github.com/larder-app/larder/internal/logging"
)

// Config carries gateway policy knobs.
type Config struct {
	// QueueOnRemoteError, when set, turns a transient remote failure on an
	// online mutation into an offline-queued one instead of surfacing it.
	// Off by default: silently queuing can duplicate user intent when the
	// remote call actually landed.
	QueueOnRemoteError bool
}

// Gateway routes operations between the remote authority and the local store.
type Gateway struct {
	remote    remote.Client
	repos     *store.Repositories
	alloc     *tempid.Allocator
	conn      connectivity.Provider
	broadcast push.Broadcaster
	locks     *keylock.KeyLock
	log       logging.Logger
	cfg       Config

	forcedOffline atomic.Bool
}

// New wires a Gateway. The keylock must be shared with the sync engine so
// writes to one entity's queue state serialize across both components.
// A nil broadcaster or logger falls back to a no-op.
func New(rc remote.Client, repos *store.Repositories, alloc *tempid.Allocator,
	conn connectivity.Provider, locks *keylock.KeyLock,
	broadcast push.Broadcaster, log logging.Logger, cfg Config) *Gateway {

	if broadcast == nil {
		broadcast = push.NopBroadcaster{}
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Gateway{
		remote:    rc,
		repos:     repos,
		alloc:     alloc,
		conn:      conn,
		broadcast: broadcast,
		locks:     locks,
		log:       log,
		cfg:       cfg,
	}
}

// SetForcedOffline forces every subsequent call onto the offline path,
// regardless of reachability.
func (g *Gateway) SetForcedOffline(forced bool) {
	g.forcedOffline.Store(forced)
}

// ForcedOffline reports whether offline mode is currently forced.
func (g *Gateway) ForcedOffline() bool {
	return g.forcedOffline.Load()
}

// online is evaluated fresh on every call; there is no cached mode flag.
func (g *Gateway) online() bool {
	return g.conn.IsOnline() && !g.forcedOffline.Load()
}

// queueable reports whether a failed online mutation should fall back to the
// offline queue under the configured policy.
func (g *Gateway) queueable(err error) bool {
	return g.cfg.QueueOnRemoteError && errors.Is(err, common.ErrRemoteUnreachable)
}

func (g *Gateway) notify(ctx context.Context, kind models.Op, entity models.Kind, id string, payload any) {
	n := push.Notification{Kind: kind, Entity: entity, ID: id}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			g.log.Error(ctx, "failed to encode notification payload", "error", err)
			return
		}
		n.Payload = b
	}
	if err := g.broadcast.Broadcast(ctx, n); err != nil {
		g.log.Warn(ctx, "failed to broadcast change notification",
			"kind", kind, "entity", entity, "id", id, "error", err)
	}
}

// enqueue appends one pending change. The preceding store upsert and this
// append are deliberately not atomic: a crash between them leaves the cache
// ahead of the queue for a single scheduling tick, an accepted, bounded
// inconsistency.
func (g *Gateway) enqueue(ctx context.Context, op models.Op, kind models.Kind, targetID string, payload any) error {
	c := &models.PendingChange{Op: op, Kind: kind, TargetID: targetID}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode pending payload: %w", err)
		}
		c.Payload = b
	}
	return g.repos.Changes.Append(ctx, c)
}

// ApplyNotification applies an inbound push notification to the local store
// as if it were a remote-read result. It never enters the pending-change
// path.
func (g *Gateway) ApplyNotification(ctx context.Context, n push.Notification) error {
	switch n.Entity {
	case models.KindItem:
		return g.applyItemNotification(ctx, n)
	case models.KindStatus:
		return g.applyStatusNotification(ctx, n)
	default:
		return fmt.Errorf("unknown notification entity %q", n.Entity)
	}
}

func (g *Gateway) applyItemNotification(ctx context.Context, n push.Notification) error {
	if n.Kind == models.OpDelete {
		var err error
		g.locks.Do(n.ID, func() {
			if err = g.repos.Items.DeleteByID(ctx, n.ID); err != nil {
				return
			}
			err = g.repos.Statuses.DeleteByItemID(ctx, n.ID)
		})
		return err
	}

	var it models.Item
	if err := json.Unmarshal(n.Payload, &it); err != nil {
		return fmt.Errorf("failed to decode item notification: %w", err)
	}
	var err error
	g.locks.Do(it.ID, func() {
		err = g.repos.Items.Put(ctx, &it)
	})
	return err
}

func (g *Gateway) applyStatusNotification(ctx context.Context, n push.Notification) error {
	if n.Kind == models.OpDelete {
		var err error
		g.locks.Do(n.ID, func() {
			err = g.repos.Statuses.DeleteByItemID(ctx, n.ID)
		})
		return err
	}

	var st models.Status
	if err := json.Unmarshal(n.Payload, &st); err != nil {
		return fmt.Errorf("failed to decode status notification: %w", err)
	}
	var err error
	g.locks.Do(st.ItemID, func() {
		err = g.repos.Statuses.Put(ctx, &st)
	})
	return err
}
