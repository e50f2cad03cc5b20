package cli

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larder-app/larder/internal/client/config"
	"github.com/larder-app/larder/internal/client/connectivity"
	"github.com/larder-app/larder/internal/client/gateway"
	"github.com/larder-app/larder/internal/client/keylock"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/remote"
	"github.com/larder-app/larder/internal/client/store"
	"github.com/larder-app/larder/internal/client/syncer"
	"github.com/larder-app/larder/internal/client/tempid"
)

// newTestApp wires an offline App over a real store, with scripted stdin and
// captured output. The remote points nowhere; offline commands never dial it.
func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	repos, err := store.Open(ctx, filepath.Join(t.TempDir(), "larder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	rc := remote.NewHTTPClient("http://127.0.0.1:0", nil)
	conn := connectivity.NewManual(false)
	locks := keylock.New()
	alloc := tempid.NewAllocator(repos.Mappings, nil)
	gw := gateway.New(rc, repos, alloc, conn, locks, nil, nil, gateway.Config{})
	engine := syncer.New(rc, repos, locks, nil)

	out := &bytes.Buffer{}
	return &App{
		config:    cfg,
		repos:     repos,
		gw:        gw,
		engine:    engine,
		scheduler: syncer.NewScheduler(engine, conn, time.Hour, nil),
		conn:      conn,
		reader:    bufio.NewReader(strings.NewReader(input)),
		out:       out,
	}, out
}

func TestAdd_And_List(t *testing.T) {
	a, out := newTestApp(t, "milk\ndairy\nfridge\n")
	ctx := context.Background()

	a.add(ctx)
	assert.Contains(t, out.String(), "Added tmp:item:")

	out.Reset()
	a.list(ctx)
	assert.Contains(t, out.String(), "milk [dairy] @ fridge")
	assert.Contains(t, out.String(), models.Unclassified)
	assert.Contains(t, out.String(), "(not synced)")
}

func TestAdd_RequiresName(t *testing.T) {
	a, out := newTestApp(t, "\n")

	a.add(context.Background())
	assert.Contains(t, out.String(), "Item name is required")
}

func TestClassify_And_Show(t *testing.T) {
	a, out := newTestApp(t, "2026-09-07\n")
	ctx := context.Background()

	created, err := a.gw.CreateItem(ctx, &models.Item{Name: "milk", Category: "dairy"})
	require.NoError(t, err)

	a.classify(ctx, []string{created.ID, "fresh", "opened"})
	assert.Contains(t, out.String(), "Classified "+created.ID+" as fresh")

	out.Reset()
	a.show(ctx, []string{created.ID})
	s := out.String()
	assert.Contains(t, s, "Name:      milk")
	assert.Contains(t, s, "Status:    fresh")
	assert.Contains(t, s, "Expires:   2026-09-07")
	assert.Contains(t, s, "[opened]")
}

func TestShow_UnclassifiedItem(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	created, err := a.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)

	a.show(ctx, []string{created.ID})
	assert.Contains(t, out.String(), "Status:    "+models.Unclassified)
}

func TestDeclassify(t *testing.T) {
	a, out := newTestApp(t, "\n")
	ctx := context.Background()

	created, err := a.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)
	a.classify(ctx, []string{created.ID, "fresh"})

	out.Reset()
	a.declassify(ctx, []string{created.ID})
	assert.Contains(t, out.String(), "Reverted "+created.ID)
}

func TestPending_ShowsQueuedChanges(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	_, err := a.gw.CreateItem(ctx, &models.Item{Name: "milk"})
	require.NoError(t, err)

	a.pending(ctx)
	assert.Contains(t, out.String(), "create item tmp:item:")
	assert.Contains(t, out.String(), "queued")
}

func TestPending_EmptyQueue(t *testing.T) {
	a, out := newTestApp(t, "")

	a.pending(context.Background())
	assert.Contains(t, out.String(), "Queue is empty")
}

func TestMode_ForcesOffline(t *testing.T) {
	a, out := newTestApp(t, "")

	a.mode([]string{"offline"})
	assert.Contains(t, out.String(), "Switched to forced-offline mode")
	assert.True(t, a.gw.ForcedOffline())

	out.Reset()
	a.mode([]string{"online"})
	assert.False(t, a.gw.ForcedOffline())

	out.Reset()
	a.mode(nil)
	assert.Contains(t, out.String(), "offline")
}
