package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/larder-app/larder/internal/client/config"
	"github.com/larder-app/larder/internal/client/connectivity"
	"github.com/larder-app/larder/internal/client/gateway"
	"github.com/larder-app/larder/internal/client/keylock"
	"github.com/larder-app/larder/internal/client/push"
	"github.com/larder-app/larder/internal/client/remote"
	"github.com/larder-app/larder/internal/client/store"
	"github.com/larder-app/larder/internal/client/syncer"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/logging"
)

// App wires the store, the remote client, the gateway and the sync engine
// into the interactive client.
type App struct {
	config    *config.Config
	repos     *store.Repositories
	gw        *gateway.Gateway
	engine    *syncer.Engine
	scheduler *syncer.Scheduler
	conn      connectivity.Provider
	prober    *connectivity.Prober
	channel   *push.WSChannel
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

// NewApp assembles the application from configuration. The database is
// opened (and migrated) here; everything downstream shares one keylock so
// interactive writes and synchronization passes serialize per entity.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	repos, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	rc := remote.NewHTTPClient(cfg.ServerEndpointAddr, nil)
	prober := connectivity.NewProber(rc, cfg.OnlineCheckInterval, log)
	locks := keylock.New()
	alloc := tempid.NewAllocator(repos.Mappings, log)

	var broadcast push.Broadcaster
	var channel *push.WSChannel
	if cfg.PushEndpoint != "" {
		channel = push.NewWSChannel(cfg.PushEndpoint, log)
		broadcast = channel
	}

	gw := gateway.New(rc, repos, alloc, prober, locks, broadcast, log, gateway.Config{
		QueueOnRemoteError: cfg.QueueOnRemoteError,
	})
	gw.SetForcedOffline(cfg.ForcedOffline)

	engine := syncer.New(rc, repos, locks, log)

	return &App{
		config:    cfg,
		repos:     repos,
		gw:        gw,
		engine:    engine,
		scheduler: syncer.NewScheduler(engine, prober, cfg.SyncInterval, log),
		conn:      prober,
		prober:    prober,
		channel:   channel,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}, nil
}

// Run starts the background workers and blocks in the REPL until the user
// exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.repos.Close()

	if a.prober != nil {
		go a.prober.Run(ctx)
	}
	go func() { _ = a.scheduler.Run(ctx) }()
	if a.channel != nil {
		go a.channel.Listen(ctx, a.gw)
		defer a.channel.Close()
	}

	a.Root(ctx)
}
