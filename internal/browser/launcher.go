package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/chromium"
)

// Launcher implements engine.Launcher with one container per session. The
// container's browser is driven through a chromium attachment.
type Launcher struct {
	pool     *Pool
	chromium *chromium.Launcher
	log      zerolog.Logger
}

func NewLauncher(pool *Pool, chromium *chromium.Launcher, log zerolog.Logger) *Launcher {
	return &Launcher{pool: pool, chromium: chromium, log: log.With().Str("engine", "docker").Logger()}
}

// Launch starts a container and attaches to it. The container is removed
// when the handle is torn down.
func (l *Launcher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	inst, err := l.pool.Start(ctx, opts.Name)
	if err != nil {
		return nil, err
	}

	stop := func(ctx context.Context) error {
		return l.pool.Stop(ctx, inst.ContainerID)
	}

	h, err := l.chromium.Attach(ctx, inst.ConnectURL, opts, stop)
	if err != nil {
		if stopErr := stop(context.WithoutCancel(ctx)); stopErr != nil {
			l.log.Warn().Err(stopErr).Str("session", opts.Name).Msg("Failed to stop container after attach error")
		}
		return nil, fmt.Errorf("failed to attach to container browser: %w", err)
	}
	return h, nil
}

// Close releases the chromium driver and the docker client
func (l *Launcher) Close() error {
	return errors.Join(l.chromium.Close(), l.pool.Close())
}
