// Package engine defines the boundary to the browser automation engine.
//
// A Launcher starts one engine instance per session and returns a Handle
// owned exclusively by that session. Handles are not safe for concurrent
// use; the session registry serializes access.
package engine

import (
	"context"
	"fmt"

	"github.com/shehryarbajwa/agent-browser/internal/command"
)

// Viewport is the initial browser window size
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures a new engine instance
type LaunchOptions struct {
	Name     string
	Headless bool
	Viewport Viewport
}

// Launcher starts engine instances
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Handle, error)
}

// Handle is a running engine instance
type Handle interface {
	// Dispatch executes one envelope. A non-nil error means the engine could
	// not be reached; command failures are reported via Result.Success.
	Dispatch(ctx context.Context, env command.Envelope) (command.Result, error)

	// Teardown releases the instance. Callers treat it as best-effort.
	Teardown(ctx context.Context) error
}

// DebugEndpoint is implemented by handles that expose a CDP websocket
type DebugEndpoint interface {
	DebugURL() string
}

// Validate checks launch options before a backend sees them
func (o LaunchOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("session name is required")
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", o.Viewport.Width, o.Viewport.Height)
	}
	return nil
}
