package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larder-app/larder/internal/client/connectivity"
	"github.com/larder-app/larder/internal/client/gateway"
	"github.com/larder-app/larder/internal/client/keylock"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/store"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/common"
)

// memRemote is an in-memory remote authority enforcing the real version
// protocol: a status write must carry the version currently stored (zero for
// a create) and comes back incremented.
type memRemote struct {
	mu       sync.Mutex
	items    map[string]models.Item
	statuses map[string]models.Status
	nextID   int

	// failWith, when set, fails every call.
	failWith error
	// failTargets fails calls touching these ids.
	failTargets map[string]error
	// onCreateItem runs at CreateItem entry, outside the lock.
	onCreateItem func()

	putStatusCalls int
}

func newMemRemote() *memRemote {
	return &memRemote{
		items:    map[string]models.Item{},
		statuses: map[string]models.Status{},
	}
}

func (m *memRemote) check(id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if err, ok := m.failTargets[id]; ok {
		return err
	}
	return nil
}

func (m *memRemote) Ping(ctx context.Context) error { return m.failWith }

func (m *memRemote) ListItems(ctx context.Context) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(""); err != nil {
		return nil, err
	}
	out := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memRemote) GetItem(ctx context.Context, id string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return nil, err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	return &it, nil
}

func (m *memRemote) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if m.onCreateItem != nil {
		m.onCreateItem()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(item.ID); err != nil {
		return nil, err
	}
	out := *item
	if out.ID == "" {
		m.nextID++
		out.ID = fmt.Sprintf("P%d", m.nextID)
	}
	out.UpdatedAt = time.Now().UTC()
	m.items[out.ID] = out
	return &out, nil
}

func (m *memRemote) UpdateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(item.ID); err != nil {
		return nil, err
	}
	if _, ok := m.items[item.ID]; !ok {
		return nil, fmt.Errorf("item %s: %w", item.ID, common.ErrNotFound)
	}
	out := *item
	out.UpdatedAt = time.Now().UTC()
	m.items[out.ID] = out
	return &out, nil
}

func (m *memRemote) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return err
	}
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	delete(m.items, id)
	delete(m.statuses, id)
	return nil
}

func (m *memRemote) ListStatuses(ctx context.Context) ([]models.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(""); err != nil {
		return nil, err
	}
	out := make([]models.Status, 0, len(m.statuses))
	for _, st := range m.statuses {
		out = append(out, st)
	}
	return out, nil
}

func (m *memRemote) GetStatus(ctx context.Context, itemID string) (*models.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(itemID); err != nil {
		return nil, err
	}
	st, ok := m.statuses[itemID]
	if !ok {
		return nil, fmt.Errorf("status %s: %w", itemID, common.ErrNotFound)
	}
	return &st, nil
}

func (m *memRemote) PutStatus(ctx context.Context, status *models.Status) (*models.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putStatusCalls++
	if err := m.check(status.ItemID); err != nil {
		return nil, err
	}
	out := *status
	cur, ok := m.statuses[status.ItemID]
	if !ok {
		out.Version = 1
	} else {
		if status.Version != cur.Version {
			return nil, fmt.Errorf("status %s: %w", status.ItemID, common.ErrVersionConflict)
		}
		out.Version = cur.Version + 1
	}
	out.UpdatedAt = time.Now().UTC()
	m.statuses[out.ItemID] = out
	return &out, nil
}

func (m *memRemote) DeleteStatus(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(itemID); err != nil {
		return err
	}
	if _, ok := m.statuses[itemID]; !ok {
		return fmt.Errorf("status %s: %w", itemID, common.ErrNotFound)
	}
	delete(m.statuses, itemID)
	return nil
}

type fixture struct {
	repos  *store.Repositories
	remote *memRemote
	engine *Engine
	gw     *gateway.Gateway
	conn   *connectivity.Manual
}

// setup opens a real store and wires an engine and an offline gateway
// sharing one keylock, the way the application assembles them.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repos, err := store.Open(ctx, filepath.Join(t.TempDir(), "larder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	rc := newMemRemote()
	locks := keylock.New()
	conn := connectivity.NewManual(false)
	alloc := tempid.NewAllocator(repos.Mappings, nil)
	gw := gateway.New(rc, repos, alloc, conn, locks, nil, nil, gateway.Config{})

	return &fixture{
		repos:  repos,
		remote: rc,
		engine: New(rc, repos, locks, nil),
		gw:     gw,
		conn:   conn,
	}
}

func (f *fixture) enqueue(t *testing.T, c *models.PendingChange) {
	t.Helper()
	require.NoError(t, f.repos.Changes.Append(context.Background(), c))
}

func TestRun_OfflineCreateAndClassify(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk", Category: "dairy"})
	require.NoError(t, err)
	tempID := created.ID
	_, err = f.gw.PutStatus(ctx, &models.Status{ItemID: tempID, Classification: "fresh"})
	require.NoError(t, err)

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 2, Failed: 0, Remaining: 0}, report)

	require.Len(t, f.remote.items, 1)
	remoteItem := f.remote.items["P1"]
	assert.Equal(t, "milk", remoteItem.Name)

	remoteStatus, ok := f.remote.statuses["P1"]
	require.True(t, ok)
	assert.Equal(t, "fresh", remoteStatus.Classification)
	assert.Equal(t, int64(1), remoteStatus.Version)

	// Nothing local may still reference the temporary id.
	_, err = f.repos.Items.GetByID(ctx, tempID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	localItem, err := f.repos.Items.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "milk", localItem.Name)

	localStatus, err := f.repos.Statuses.GetByItemID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), localStatus.Version)

	m, err := f.repos.Mappings.GetByTempID(ctx, tempID)
	require.NoError(t, err)
	assert.Equal(t, "P1", m.PermanentID)
	assert.False(t, m.Pending())
	assert.NotNil(t, m.SyncedAt)
}

func TestRun_CreateReplayReusesResolvedMapping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk", Category: "dairy"})
	require.NoError(t, err)
	tempID := created.ID

	// An earlier pass resolved the mapping but stopped before rewriting
	// the local caches and queue; the replay must reuse the assigned id
	// instead of minting a second remote entity.
	require.NoError(t, f.repos.Mappings.Resolve(ctx, tempID, "P9", time.Now().UTC()))
	f.remote.items["P9"] = models.Item{ID: "P9", Name: "milk", Category: "dairy"}

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 1, Failed: 0, Remaining: 0}, report)

	require.Len(t, f.remote.items, 1)
	remoteItem, ok := f.remote.items["P9"]
	require.True(t, ok)
	assert.Equal(t, "milk", remoteItem.Name)

	localItem, err := f.repos.Items.GetByID(ctx, "P9")
	require.NoError(t, err)
	assert.Equal(t, "milk", localItem.Name)

	_, err = f.repos.Items.GetByID(ctx, tempID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRun_TwoQueuedUpdates_VersionIncrementsTwice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.remote.items["P1"] = models.Item{ID: "P1", Name: "milk"}
	require.NoError(t, f.repos.Items.Put(ctx, &models.Item{ID: "P1", Name: "milk"}))

	_, err := f.gw.PutStatus(ctx, &models.Status{ItemID: "P1", Classification: "open"})
	require.NoError(t, err)
	_, err = f.gw.PutStatus(ctx, &models.Status{ItemID: "P1", Classification: "expired"})
	require.NoError(t, err)

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 2, Failed: 0, Remaining: 0}, report)

	st := f.remote.statuses["P1"]
	assert.Equal(t, "expired", st.Classification, "later local write lands last")
	assert.Equal(t, int64(2), st.Version)
}

func TestRun_UpdateCreateFallback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The remote has no status for P1: a queued update becomes a create.
	f.remote.items["P1"] = models.Item{ID: "P1", Name: "milk"}
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindStatus, TargetID: "P1",
		Payload: mustJSON(t, models.Status{ItemID: "P1", Classification: "fresh", Version: 4}),
	})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 1, Failed: 0, Remaining: 0}, report)

	require.Len(t, f.remote.statuses, 1)
	st := f.remote.statuses["P1"]
	assert.Equal(t, int64(1), st.Version, "create-fallback resets the version")
	assert.Equal(t, "fresh", st.Classification)
}

func TestRun_ItemUpdateCreateFallback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// P1 was deleted remotely while the update sat in the queue.
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindItem, TargetID: "P1",
		Payload: mustJSON(t, models.Item{ID: "P1", Name: "milk", Location: "freezer"}),
	})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)

	require.Len(t, f.remote.items, 1)
	assert.Equal(t, "freezer", f.remote.items["P1"].Location)
}

func TestRun_ConflictLastLocalWriteWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The remote moved to version 5 while the queued payload was computed
	// against version 2.
	f.remote.items["P1"] = models.Item{ID: "P1", Name: "milk"}
	f.remote.statuses["P1"] = models.Status{ItemID: "P1", Classification: "fresh", Version: 5}
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindStatus, TargetID: "P1",
		Payload: mustJSON(t, models.Status{ItemID: "P1", Classification: "expired", Version: 2}),
	})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)

	st := f.remote.statuses["P1"]
	assert.Equal(t, "expired", st.Classification, "local payload overwrites the conflicting remote copy")
	assert.Equal(t, int64(6), st.Version)

	local, err := f.repos.Statuses.GetByItemID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), local.Version)
}

func TestRun_DeleteIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.enqueue(t, &models.PendingChange{Op: models.OpDelete, Kind: models.KindItem, TargetID: "gone"})
	f.enqueue(t, &models.PendingChange{Op: models.OpDelete, Kind: models.KindStatus, TargetID: "gone"})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 2, Failed: 0, Remaining: 0}, report)
}

func TestRun_ValidationMarksFailed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.remote.failTargets = map[string]error{"P1": common.ErrValidation}
	f.remote.items["P2"] = models.Item{ID: "P2", Name: "eggs"}
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindStatus, TargetID: "P1",
		Payload: mustJSON(t, models.Status{ItemID: "P1", Classification: "fresh"}),
	})
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindStatus, TargetID: "P2",
		Payload: mustJSON(t, models.Status{ItemID: "P2", Classification: "fresh"}),
	})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 1, Failed: 1, Remaining: 0}, report)

	all, err := f.repos.Changes.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.ChangeStateFailed, all[0].State)
	assert.NotEmpty(t, all[0].LastError)

	// Failed changes are not picked up again.
	calls := f.remote.putStatusCalls
	report, err = f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, calls, f.remote.putStatusCalls)
}

func TestRun_TransientErrorLeavesPendingAndDrainsLater(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)

	f.remote.failWith = common.ErrRemoteUnreachable
	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 0, Failed: 0, Remaining: 1}, report)

	// Connectivity returns; the same queue drains to a fixpoint.
	f.remote.failWith = nil
	report, err = f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 1, Failed: 0, Remaining: 0}, report)

	_, err = f.repos.Items.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRun_PerTargetIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.remote.items["A"] = models.Item{ID: "A", Name: "milk"}
	f.remote.items["B"] = models.Item{ID: "B", Name: "eggs"}
	f.remote.failTargets = map[string]error{"A": common.ErrRemoteUnreachable}

	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindItem, TargetID: "A",
		Payload: mustJSON(t, models.Item{ID: "A", Name: "milk", Location: "fridge"}),
	})
	f.enqueue(t, &models.PendingChange{
		Op: models.OpUpdate, Kind: models.KindItem, TargetID: "B",
		Payload: mustJSON(t, models.Item{ID: "B", Name: "eggs", Location: "pantry"}),
	})

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 1, Failed: 0, Remaining: 1}, report)
	assert.Equal(t, "pantry", f.remote.items["B"].Location)
	assert.Empty(t, f.remote.items["A"].Location, "blocked target is untouched")
}

func TestRun_LaterChangeWaitsForBlockedTarget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The create fails this pass; the dependent status update for the same
	// target must not run out of order.
	created, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)
	_, err = f.gw.PutStatus(ctx, &models.Status{ItemID: created.ID, Classification: "fresh"})
	require.NoError(t, err)

	f.remote.failTargets = map[string]error{"": common.ErrRemoteUnreachable}
	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 0, Failed: 0, Remaining: 2}, report)
	assert.Zero(t, f.remote.putStatusCalls)
}

func TestRun_ReplayedPayloadUsesRetargetedID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)
	_, err = f.gw.UpdateItem(ctx, &models.Item{ID: created.ID, Location: "freezer"})
	require.NoError(t, err)

	report, err := f.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Resolved: 2, Failed: 0, Remaining: 0}, report)

	require.Len(t, f.remote.items, 1)
	it := f.remote.items["P1"]
	assert.Equal(t, "freezer", it.Location,
		"queued update must replay under the permanent id even though its payload was recorded against the temporary one")
}

func TestRun_Reentrancy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.onCreateItem = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Run(ctx)
		done <- err
	}()

	<-entered
	_, err = f.engine.Run(ctx)
	assert.ErrorIs(t, err, common.ErrSyncInFlight)

	close(release)
	require.NoError(t, <-done)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
