package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

// TestHelperDaemon is not a real test. It is re-executed as the engine
// process by the tests below.
func TestHelperDaemon(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_DAEMON") != "1" {
		return
	}

	fmt.Println("daemon booting")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var msg map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		id, _ := msg["id"].(string)
		action, _ := msg["action"].(string)

		reply := map[string]interface{}{"id": id, "success": true, "data": map[string]interface{}{
			"action":  action,
			"session": os.Getenv("AGENT_BROWSER_SESSION"),
		}}
		switch action {
		case "launch":
			if os.Getenv("HELPER_REFUSE_LAUNCH") == "1" {
				reply = map[string]interface{}{"id": id, "success": false, "error": "no chrome"}
			}
		case "boom":
			reply = map[string]interface{}{"id": id, "success": false, "error": "boom"}
		case "hang":
			continue
		}

		out, _ := json.Marshal(reply)
		fmt.Println(string(out))
		if action == "close" {
			os.Exit(0)
		}
	}
	os.Exit(0)
}

func helperLauncher(extraEnv ...string) *Launcher {
	return NewLauncher(Config{
		Command:        []string{os.Args[0], "-test.run=TestHelperDaemon"},
		Env:            append([]string{"GO_WANT_HELPER_DAEMON=1"}, extraEnv...),
		ReadyTimeout:   10 * time.Second,
		CommandTimeout: 2 * time.Second,
	}, zerolog.Nop())
}

func launchOpts(name string) engine.LaunchOptions {
	return engine.LaunchOptions{Name: name, Headless: true, Viewport: engine.Viewport{Width: 1280, Height: 720}}
}

func TestLauncher_DispatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, err := helperLauncher().Launch(ctx, launchOpts("alpha"))
	require.NoError(t, err)
	defer h.Teardown(ctx)

	env := command.New(command.Navigate{URL: "https://example.com", WaitUntil: "load"})
	res, err := h.Dispatch(ctx, env)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, env.ID, res.ID)
	assert.Equal(t, "navigate", res.String("action"))
	assert.Equal(t, "alpha", res.String("session"))
}

func TestLauncher_AdvancedPassthrough(t *testing.T) {
	ctx := context.Background()
	h, err := helperLauncher().Launch(ctx, launchOpts("beta"))
	require.NoError(t, err)
	defer h.Teardown(ctx)

	res, err := h.Dispatch(ctx, command.New(command.Raw{Tag: "boom"}))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
}

func TestLauncher_CommandTimeout(t *testing.T) {
	ctx := context.Background()
	h, err := helperLauncher().Launch(ctx, launchOpts("gamma"))
	require.NoError(t, err)
	defer h.Teardown(ctx)

	_, err = h.Dispatch(ctx, command.New(command.Raw{Tag: "hang"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestLauncher_RefusedLaunch(t *testing.T) {
	_, err := helperLauncher("HELPER_REFUSE_LAUNCH=1").Launch(context.Background(), launchOpts("delta"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chrome")
}

func TestLauncher_TeardownThenDispatch(t *testing.T) {
	ctx := context.Background()
	h, err := helperLauncher().Launch(ctx, launchOpts("epsilon"))
	require.NoError(t, err)

	require.NoError(t, h.Teardown(ctx))

	_, err = h.Dispatch(ctx, command.New(command.Click{Selector: "#a"}))
	assert.Error(t, err)
}

func TestLauncher_Validation(t *testing.T) {
	_, err := NewLauncher(Config{}, zerolog.Nop()).Launch(context.Background(), launchOpts("x"))
	assert.ErrorContains(t, err, "not configured")

	_, err = helperLauncher().Launch(context.Background(), engine.LaunchOptions{Name: "x"})
	assert.ErrorContains(t, err, "invalid viewport")
}
