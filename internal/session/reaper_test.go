package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/enginetest"
)

func TestReaper_EvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	launcher := enginetest.NewLauncher()
	r := NewRegistry(launcher, Options{
		MaxConcurrent: 2,
		IdleTimeout:   20 * time.Millisecond,
		Viewport:      engine.Viewport{Width: 800, Height: 600},
	}, zerolog.Nop())

	_, err := r.Resolve(ctx, "s1")
	require.NoError(t, err)

	reaper := NewReaper(r, 10*time.Millisecond, zerolog.Nop())
	reaper.Start(ctx)
	reaper.Start(ctx)
	defer reaper.Stop()

	assert.Eventually(t, func() bool { return !r.Has("s1") }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, launcher.Teardowns("s1"))
}

func TestReaper_StopIsIdempotent(t *testing.T) {
	r := NewRegistry(enginetest.NewLauncher(), Options{MaxConcurrent: 1}, zerolog.Nop())
	reaper := NewReaper(r, 0, zerolog.Nop())
	assert.Equal(t, DefaultReapInterval, reaper.interval)

	reaper.Stop()
	reaper.Start(context.Background())
	reaper.Stop()
	reaper.Stop()
}
