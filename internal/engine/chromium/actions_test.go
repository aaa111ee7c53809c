package chromium

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

func TestScrollDelta(t *testing.T) {
	tests := []struct {
		direction string
		dx, dy    float64
	}{
		{"down", 0, 300},
		{"", 0, 300},
		{"up", 0, -300},
		{"right", 300, 0},
		{"left", -300, 0},
	}
	for _, tt := range tests {
		dx, dy, err := scrollDelta(tt.direction, 300)
		require.NoError(t, err, tt.direction)
		assert.Equal(t, tt.dx, dx, tt.direction)
		assert.Equal(t, tt.dy, dy, tt.direction)
	}

	_, _, err := scrollDelta("sideways", 1)
	assert.Error(t, err)
}

func TestTabIndex(t *testing.T) {
	idx, err := tabIndex(nil, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	one := 1
	idx, err = tabIndex(&one, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	five := 5
	_, err = tabIndex(&five, 0, 3)
	assert.ErrorContains(t, err, "out of range")

	_, err = tabIndex(nil, 0, 0)
	assert.ErrorContains(t, err, "no open tab")
}

func TestActiveAfterClose(t *testing.T) {
	tests := []struct {
		name                      string
		active, closed, remaining int
		want                      int
	}{
		{"earlier tab keeps active tab", 2, 0, 2, 1},
		{"later tab leaves index", 0, 2, 2, 0},
		{"active tab selects right neighbour", 1, 1, 2, 1},
		{"active last tab selects new last", 2, 2, 2, 1},
		{"only tab", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activeAfterClose(tt.active, tt.closed, tt.remaining))
		})
	}
}

func TestContextOptions(t *testing.T) {
	viewport := engine.Viewport{Width: 1280, Height: 720}

	opts := contextOptions(viewport, nil, nil)
	require.NotNil(t, opts.Viewport)
	assert.Equal(t, 1280, opts.Viewport.Width)
	assert.Nil(t, opts.UserAgent)
	assert.Nil(t, opts.IsMobile)
	assert.Nil(t, opts.HasTouch)
	assert.Nil(t, opts.DeviceScaleFactor)

	phone := &playwright.DeviceDescriptor{
		UserAgent:         "Mozilla/5.0 (iPhone)",
		Viewport:          &playwright.Size{Width: 390, Height: 844},
		DeviceScaleFactor: 3,
		IsMobile:          true,
		HasTouch:          true,
	}
	video := &playwright.RecordVideo{Dir: t.TempDir()}
	opts = contextOptions(engine.Viewport{Width: 390, Height: 844}, phone, video)

	assert.Equal(t, 390, opts.Viewport.Width)
	assert.Equal(t, 844, opts.Viewport.Height)
	require.NotNil(t, opts.UserAgent)
	assert.Equal(t, "Mozilla/5.0 (iPhone)", *opts.UserAgent)
	require.NotNil(t, opts.DeviceScaleFactor)
	assert.Equal(t, 3.0, *opts.DeviceScaleFactor)
	require.NotNil(t, opts.IsMobile)
	assert.True(t, *opts.IsMobile)
	require.NotNil(t, opts.HasTouch)
	assert.True(t, *opts.HasTouch)
	assert.Same(t, video, opts.RecordVideo)
}

func TestExecute_NilCommand(t *testing.T) {
	h := &Handle{}
	_, err := h.execute(nil)
	assert.Error(t, err)
}

// TestLauncher_Chromium drives a real browser and needs the Playwright
// driver installed.
func TestLauncher_Chromium(t *testing.T) {
	if testing.Short() || os.Getenv("AGENT_BROWSER_PLAYWRIGHT") != "1" {
		t.Skip("set AGENT_BROWSER_PLAYWRIGHT=1 to run against a real browser")
	}

	ctx := context.Background()
	l := NewLauncher(false, zerolog.Nop())
	defer l.Close()

	h, err := l.Launch(ctx, engine.LaunchOptions{Name: "it", Headless: true, Viewport: engine.Viewport{Width: 800, Height: 600}})
	require.NoError(t, err)
	defer h.Teardown(ctx)

	res, err := h.Dispatch(ctx, command.New(command.Navigate{URL: "data:text/html,<title>t</title><button>Go</button>"}))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	res, err = h.Dispatch(ctx, command.New(command.Query{Kind: command.ActionTitle}))
	require.NoError(t, err)
	assert.Equal(t, "t", res.String("result"))

	shot := filepath.Join(t.TempDir(), "shot.png")
	res, err = h.Dispatch(ctx, command.New(command.Screenshot{Path: shot}))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.FileExists(t, shot)

	res, err = h.Dispatch(ctx, command.New(command.Raw{Tag: "nope"}))
	require.NoError(t, err)
	assert.False(t, res.Success)
}
