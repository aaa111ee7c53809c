// Package chromium drives Chromium through Playwright. One Playwright driver
// is shared by every handle; each handle owns its own browser, context and
// tab list.
package chromium

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

// Launcher starts local Chromium instances, or attaches to remote ones
type Launcher struct {
	install bool
	log     zerolog.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewLauncher creates a launcher. When install is true the Playwright
// driver and browsers are downloaded on first use.
func NewLauncher(install bool, log zerolog.Logger) *Launcher {
	return &Launcher{install: install, log: log.With().Str("engine", "chromium").Logger()}
}

// driver starts the shared Playwright driver once
func (l *Launcher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw != nil {
		return l.pw, nil
	}

	// driver output would corrupt the MCP stdio stream
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if l.install {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	l.pw = pw
	l.log.Info().Msg("Playwright driver started")
	return pw, nil
}

// Launch starts a new local Chromium for one session
func (l *Launcher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	h, err := newHandle(pw, browser, opts, l.log)
	if err != nil {
		_ = browser.Close()
		return nil, err
	}
	return h, nil
}

// Attach connects to a browser already listening on a CDP websocket.
// onTeardown runs after the browser connection is closed.
func (l *Launcher) Attach(ctx context.Context, cdpURL string, opts engine.LaunchOptions, onTeardown func(context.Context) error) (*Handle, error) {
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.ConnectOverCDP(cdpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to attach over CDP: %w", err)
	}

	h, err := newHandle(pw, browser, opts, l.log)
	if err != nil {
		_ = browser.Close()
		return nil, err
	}
	h.debugURL = cdpURL
	h.onTeardown = onTeardown
	return h, nil
}

// Close stops the shared driver. Handles must be torn down first.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
