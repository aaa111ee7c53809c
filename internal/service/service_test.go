package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/enginetest"
	"github.com/shehryarbajwa/agent-browser/internal/session"
)

// closingLauncher adds io.Closer to the fake engine
type closingLauncher struct {
	*enginetest.Launcher
	closed int
	err    error
}

func (l *closingLauncher) Close() error {
	l.closed++
	return l.err
}

func newService(t *testing.T, launcher engine.Launcher) (*Service, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry(launcher, session.Options{
		MaxConcurrent: 3,
		IdleTimeout:   time.Minute,
		Viewport:      engine.Viewport{Width: 800, Height: 600},
	}, zerolog.Nop())
	reaper := session.NewReaper(registry, time.Hour, zerolog.Nop())
	return New(registry, reaper, launcher, zerolog.Nop()), registry
}

func TestService_StopDrainsAndCloses(t *testing.T) {
	launcher := &closingLauncher{Launcher: enginetest.NewLauncher()}
	svc, registry := newService(t, launcher)
	ctx := context.Background()

	svc.Start(ctx)
	for _, name := range []string{"a", "b"} {
		_, err := registry.Resolve(ctx, name)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Stop(ctx))

	assert.Zero(t, registry.Len())
	assert.Equal(t, 1, launcher.Teardowns("a"))
	assert.Equal(t, 1, launcher.Teardowns("b"))
	assert.Equal(t, 1, launcher.closed)

	_, err := registry.Resolve(ctx, "c")
	assert.ErrorIs(t, err, session.ErrShuttingDown)
}

func TestService_StopWithCancelledContext(t *testing.T) {
	launcher := &closingLauncher{Launcher: enginetest.NewLauncher()}
	svc, registry := newService(t, launcher)

	_, err := registry.Resolve(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, 1, launcher.Teardowns("a"))
}

func TestService_CloseError(t *testing.T) {
	launcher := &closingLauncher{Launcher: enginetest.NewLauncher(), err: errors.New("driver stuck")}
	svc, _ := newService(t, launcher)

	err := svc.Stop(context.Background())
	assert.ErrorContains(t, err, "driver stuck")
}

func TestService_LauncherWithoutClose(t *testing.T) {
	svc, _ := newService(t, enginetest.NewLauncher())
	svc.Start(context.Background())
	svc.Start(context.Background())
	assert.NoError(t, svc.Stop(context.Background()))
}
