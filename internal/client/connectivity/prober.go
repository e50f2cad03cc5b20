package connectivity

import (
	"context"
	"time"

	"github.com/larder-app/larder/internal/logging"
)

// Pinger is the slice of the remote client the prober needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is a Provider that derives reachability by pinging the remote
// authority on an interval.
type Prober struct {
	notifier

	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger
}

// NewProber returns a Prober that starts offline until the first successful
// probe. A nil logger falls back to a no-op.
func NewProber(pinger Pinger, interval time.Duration, log logging.Logger) *Prober {
	if log == nil {
		log = logging.Nop{}
	}
	return &Prober{
		pinger:       pinger,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		log:          log,
	}
}

// Run probes immediately and then on every tick until ctx is cancelled.
// Call it from a goroutine.
func (p *Prober) Run(ctx context.Context) {
	p.probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	err := p.pinger.Ping(probeCtx)
	cancel()

	online := err == nil
	if p.set(online) {
		if online {
			p.log.Info(ctx, "remote authority became reachable")
		} else {
			p.log.Warn(ctx, "remote authority became unreachable", "error", err)
		}
	}
}
