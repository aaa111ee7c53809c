// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"errors"
	"sync"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

// Launcher records every launch and hands out fake handles
type Launcher struct {
	// LaunchErr, when set, fails every launch
	LaunchErr error

	// Gate, when set, blocks each launch until it receives or is closed
	Gate chan struct{}

	// Respond computes results; the default replies success with the action name
	Respond func(env command.Envelope) command.Result

	// TeardownErr is returned from every teardown
	TeardownErr error

	// DebugURL is reported by handles when non-empty
	DebugURL string

	mu       sync.Mutex
	launches map[string]int
	handles  []*Handle
	started  chan string
}

// NewLauncher creates an empty fake launcher
func NewLauncher() *Launcher {
	return &Launcher{
		launches: make(map[string]int),
		started:  make(chan string, 64),
	}
}

// Launch implements engine.Launcher
func (l *Launcher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Handle, error) {
	l.mu.Lock()
	l.launches[opts.Name]++
	l.mu.Unlock()

	select {
	case l.started <- opts.Name:
	default:
	}

	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	h := &Handle{Name: opts.Name, Options: opts, launcher: l}
	l.mu.Lock()
	l.handles = append(l.handles, h)
	l.mu.Unlock()
	return h, nil
}

// Started delivers the name of each launch as it begins
func (l *Launcher) Started() <-chan string {
	return l.started
}

// Launches returns how many launches were attempted for name
func (l *Launcher) Launches(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches[name]
}

// TotalLaunches returns the launch count across all names
func (l *Launcher) TotalLaunches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.launches {
		total += n
	}
	return total
}

// Handles returns every handle created so far, oldest first
func (l *Launcher) Handles() []*Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Handle(nil), l.handles...)
}

// Handle returns the latest handle launched for name
func (l *Launcher) Handle(name string) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.handles) - 1; i >= 0; i-- {
		if l.handles[i].Name == name {
			return l.handles[i]
		}
	}
	return nil
}

// Teardowns returns the teardown count across handles for name
func (l *Launcher) Teardowns(name string) int {
	total := 0
	for _, h := range l.Handles() {
		if h.Name == name {
			total += h.Teardowns()
		}
	}
	return total
}

// Handle is a fake engine instance
type Handle struct {
	Name    string
	Options engine.LaunchOptions

	launcher  *Launcher
	mu        sync.Mutex
	envelopes []command.Envelope
	teardowns int
}

// ErrTornDown is returned when dispatching to a destroyed handle
var ErrTornDown = errors.New("handle torn down")

// Dispatch implements engine.Handle
func (h *Handle) Dispatch(ctx context.Context, env command.Envelope) (command.Result, error) {
	h.mu.Lock()
	if h.teardowns > 0 {
		h.mu.Unlock()
		return command.Result{}, ErrTornDown
	}
	h.envelopes = append(h.envelopes, env)
	h.mu.Unlock()

	var res command.Result
	if h.launcher.Respond != nil {
		res = h.launcher.Respond(env)
	} else {
		res = command.OK(map[string]interface{}{"action": string(env.Action())})
	}
	res.ID = env.ID
	return res, nil
}

// Teardown implements engine.Handle
func (h *Handle) Teardown(ctx context.Context) error {
	h.mu.Lock()
	h.teardowns++
	h.mu.Unlock()
	return h.launcher.TeardownErr
}

// DebugURL implements engine.DebugEndpoint
func (h *Handle) DebugURL() string {
	return h.launcher.DebugURL
}

// Envelopes returns every envelope dispatched to this handle
func (h *Handle) Envelopes() []command.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]command.Envelope(nil), h.envelopes...)
}

// Actions returns the dispatched action tags in order
func (h *Handle) Actions() []command.Action {
	var out []command.Action
	for _, env := range h.Envelopes() {
		out = append(out, env.Action())
	}
	return out
}

// Teardowns returns how many times Teardown was called
func (h *Handle) Teardowns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.teardowns
}
