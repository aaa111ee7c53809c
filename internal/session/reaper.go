package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReapInterval is how often idle sessions are evaluated
const DefaultReapInterval = time.Minute

// Reaper periodically evicts idle sessions. The scan interval is independent
// of the idle threshold; it only bounds detection latency.
type Reaper struct {
	registry *Registry
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewReaper creates a reaper for registry
func NewReaper(registry *Registry, interval time.Duration, log zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		registry: registry,
		interval: interval,
		log:      log.With().Str("component", "reaper").Logger(),
	}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (p *Reaper) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(ctx, p.done)
	p.log.Info().Dur("interval", p.interval).Msg("Idle reaper started")
}

// Stop ends the loop and waits for an in-progress scan to finish
func (p *Reaper) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
	p.log.Info().Msg("Idle reaper stopped")
}

func (p *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.registry.ReapIdle(ctx, p.registry.Now()); n > 0 {
				p.log.Info().Int("reaped", n).Int("live", p.registry.Len()).Msg("Idle sessions reaped")
			}
		}
	}
}
