package recording

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/enginetest"
	"github.com/shehryarbajwa/agent-browser/internal/media"
	"github.com/shehryarbajwa/agent-browser/internal/session"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

type fakeProcessor struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeProcessor) Recording(_ context.Context, path string) media.Artifact {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return media.Artifact{Path: path, URL: "https://cdn/recordings/" + filepath.Base(path)}
}

type transcodeErr struct{}

func (transcodeErr) ToGIF(context.Context, string, string) error {
	return errors.New("exit status 1")
}

func setup(t *testing.T, processor PostProcessor) (*Coordinator, *enginetest.Launcher) {
	t.Helper()
	launcher := enginetest.NewLauncher()
	now := time.UnixMilli(1700000000000)
	registry := session.NewRegistry(launcher, session.Options{
		MaxConcurrent: 3,
		IdleTimeout:   time.Minute,
		Viewport:      engine.Viewport{Width: 1280, Height: 720},
		Now:           func() time.Time { return now },
	}, zerolog.Nop())
	t.Cleanup(func() { registry.DrainAll(context.Background()) })
	return NewCoordinator(registry, processor, "artifacts", zerolog.Nop()), launcher
}

func count(actions []command.Action, want command.Action) int {
	n := 0
	for _, a := range actions {
		if a == want {
			n++
		}
	}
	return n
}

func TestCoordinator_StartTwice(t *testing.T) {
	ctx := context.Background()
	c, launcher := setup(t, &fakeProcessor{})

	first, err := c.Start(ctx, "s1", "demo")
	require.NoError(t, err)
	assert.True(t, first.Success())
	assert.Equal(t, filepath.Join("artifacts", "s1-demo.webm"), first["path"])

	second, err := c.Start(ctx, "s1", "demo")
	require.NoError(t, err)
	assert.Equal(t, models.MsgAlreadyRecording, second.Err())

	assert.Equal(t, 1, count(launcher.Handle("s1").Actions(), command.ActionRecordingStart))
}

func TestCoordinator_StopWithoutStart(t *testing.T) {
	ctx := context.Background()
	c, launcher := setup(t, &fakeProcessor{})

	out, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MsgNotRecording, out.Err())
	assert.Zero(t, count(launcher.Handle("s1").Actions(), command.ActionRecordingStop))
}

func TestCoordinator_StartStop(t *testing.T) {
	ctx := context.Background()
	proc := &fakeProcessor{}
	c, launcher := setup(t, proc)

	_, err := c.Start(ctx, "s1", "")
	require.NoError(t, err)

	out, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, out.Success())
	assert.Equal(t, filepath.Join("artifacts", "s1-1700000000000.webm"), out["path"])
	assert.Equal(t, "https://cdn/recordings/s1-1700000000000.webm", out["url"])

	actions := launcher.Handle("s1").Actions()
	assert.Equal(t, 1, count(actions, command.ActionRecordingStart))
	assert.Equal(t, 1, count(actions, command.ActionRecordingStop))
	assert.Len(t, proc.paths, 1)

	again, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MsgNotRecording, again.Err())
}

func TestCoordinator_EngineRefusesStart(t *testing.T) {
	ctx := context.Background()
	c, launcher := setup(t, &fakeProcessor{})
	launcher.Respond = func(env command.Envelope) command.Result {
		if env.Action() == command.ActionRecordingStart {
			return command.Failed("video unsupported")
		}
		return command.OK(nil)
	}

	out, err := c.Start(ctx, "s1", "x")
	require.NoError(t, err)
	assert.False(t, out.Success())
	assert.Equal(t, "video unsupported", out.Err())

	stop, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MsgNotRecording, stop.Err())
}

func TestCoordinator_EngineFailsStop(t *testing.T) {
	ctx := context.Background()
	proc := &fakeProcessor{}
	c, launcher := setup(t, proc)
	launcher.Respond = func(env command.Envelope) command.Result {
		if env.Action() == command.ActionRecordingStop {
			return command.Failed("save failed")
		}
		return command.OK(nil)
	}

	_, err := c.Start(ctx, "s1", "x")
	require.NoError(t, err)

	out, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, out.Success())
	assert.Equal(t, models.RecordingIdle, out["recording"])
	assert.Empty(t, proc.paths)

	// the session is idle again, so a new recording can start
	restart, err := c.Start(ctx, "s1", "y")
	require.NoError(t, err)
	assert.True(t, restart.Success())
}

func TestCoordinator_GIFFailureKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	proc := media.NewProcessor(nil, transcodeErr{}, true, zerolog.Nop())
	c, _ := setup(t, proc)

	_, err := c.Start(ctx, "s1", "clip")
	require.NoError(t, err)

	out, err := c.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, out.Success())
	assert.Equal(t, false, out["transcoded"])
	path, _ := out["path"].(string)
	assert.True(t, strings.HasSuffix(path, "s1-clip.webm"), path)
	assert.NotContains(t, out, "url")
}

func TestCoordinator_CapacityIsHardError(t *testing.T) {
	ctx := context.Background()
	c, _ := setup(t, &fakeProcessor{})

	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Start(ctx, name, "")
		require.NoError(t, err)
	}

	_, err := c.Start(ctx, "d", "")
	assert.ErrorIs(t, err, session.ErrCapacityExceeded)
}
