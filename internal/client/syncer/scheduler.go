package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/larder-app/larder/internal/client/connectivity"
	"github.com/larder-app/larder/internal/common"
	"github.com/larder-app/larder/internal/logging"
)

// Scheduler triggers synchronization passes on became-reachable transitions
// and on a fixed interval. Overlapping triggers coalesce through the
// engine's reentrancy guard.
type Scheduler struct {
	engine   *Engine
	conn     connectivity.Provider
	interval time.Duration
	log      logging.Logger
}

// NewScheduler wires a Scheduler. A nil logger falls back to a no-op.
func NewScheduler(engine *Engine, conn connectivity.Provider, interval time.Duration, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop{}
	}
	return &Scheduler{engine: engine, conn: conn, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, driving the engine whenever the remote
// is reachable. Ticks that land while offline are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	kick := make(chan struct{}, 1)
	cancel := s.conn.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-kick:
		case <-ticker.C:
		}

		if !s.conn.IsOnline() {
			continue
		}

		if _, err := s.engine.Run(ctx); err != nil && !errors.Is(err, common.ErrSyncInFlight) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error(ctx, "synchronization pass failed", "error", err)
		}
	}
}
