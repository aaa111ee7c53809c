package chromium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

// Handle is one Chromium instance. It is not safe for concurrent use.
type Handle struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	pages    []playwright.Page
	active   int
	viewport engine.Viewport
	log      zerolog.Logger

	// emulation is the device applied to every new context, if any
	emulation *playwright.DeviceDescriptor

	recording *recording

	debugURL   string
	onTeardown func(context.Context) error
}

// recording holds the state replaced while a video context is active
type recording struct {
	path       string
	prevCtx    playwright.BrowserContext
	prevPages  []playwright.Page
	prevActive int
}

func newHandle(pw *playwright.Playwright, browser playwright.Browser, opts engine.LaunchOptions, log zerolog.Logger) (*Handle, error) {
	h := &Handle{
		pw:       pw,
		browser:  browser,
		viewport: opts.Viewport,
		log:      log.With().Str("session", opts.Name).Logger(),
	}

	bctx, page, err := h.newContext(nil)
	if err != nil {
		return nil, err
	}
	h.context = bctx
	h.pages = []playwright.Page{page}
	return h, nil
}

func (h *Handle) newContext(video *playwright.RecordVideo) (playwright.BrowserContext, playwright.Page, error) {
	bctx, err := h.browser.NewContext(contextOptions(h.viewport, h.emulation, video))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, nil, fmt.Errorf("failed to create page: %w", err)
	}
	return bctx, page, nil
}

// contextOptions builds context options for viewport, layering the device
// descriptor's user agent, scale and input traits when one is set
func contextOptions(viewport engine.Viewport, device *playwright.DeviceDescriptor, video *playwright.RecordVideo) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		Viewport:    &playwright.Size{Width: viewport.Width, Height: viewport.Height},
		RecordVideo: video,
	}
	if device == nil {
		return opts
	}
	if device.UserAgent != "" {
		opts.UserAgent = playwright.String(device.UserAgent)
	}
	if device.DeviceScaleFactor > 0 {
		opts.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
	}
	opts.IsMobile = playwright.Bool(device.IsMobile)
	opts.HasTouch = playwright.Bool(device.HasTouch)
	return opts
}

// DebugURL implements engine.DebugEndpoint
func (h *Handle) DebugURL() string {
	return h.debugURL
}

func (h *Handle) page() (playwright.Page, error) {
	if len(h.pages) == 0 {
		return nil, errors.New("no open tab")
	}
	return h.pages[h.active], nil
}

// Dispatch implements engine.Handle
func (h *Handle) Dispatch(ctx context.Context, env command.Envelope) (command.Result, error) {
	if err := ctx.Err(); err != nil {
		return command.Result{}, err
	}

	data, err := h.execute(env.Command)
	if err != nil {
		return command.Failed("%s", err.Error()), nil
	}
	return command.OK(data), nil
}

// Teardown implements engine.Handle
func (h *Handle) Teardown(ctx context.Context) error {
	var errs []error

	if h.recording != nil {
		if err := h.recording.prevCtx.Close(); err != nil {
			errs = append(errs, err)
		}
		h.recording = nil
	}
	if h.context != nil {
		if err := h.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if h.onTeardown != nil {
		if err := h.onTeardown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	h.pages = nil
	return errors.Join(errs...)
}

func (h *Handle) startRecording(path string) (map[string]interface{}, error) {
	if h.recording != nil {
		return nil, errors.New("recording already in progress")
	}
	if path == "" {
		return nil, errors.New("recording path is required")
	}

	dir, err := os.MkdirTemp("", "agent-browser-video-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}

	current := "about:blank"
	if page, err := h.page(); err == nil {
		current = page.URL()
	}

	bctx, page, err := h.newContext(&playwright.RecordVideo{
		Dir:  dir,
		Size: &playwright.Size{Width: h.viewport.Width, Height: h.viewport.Height},
	})
	if err != nil {
		return nil, err
	}

	if current != "about:blank" && current != "" {
		if _, err := page.Goto(current); err != nil {
			h.log.Warn().Err(err).Str("url", current).Msg("Recording context could not reopen current page")
		}
	}

	h.recording = &recording{
		path:       path,
		prevCtx:    h.context,
		prevPages:  h.pages,
		prevActive: h.active,
	}
	h.context = bctx
	h.pages = []playwright.Page{page}
	h.active = 0

	return map[string]interface{}{"path": path, "url": page.URL()}, nil
}

func (h *Handle) stopRecording() (map[string]interface{}, error) {
	rec := h.recording
	if rec == nil {
		return nil, errors.New("no recording in progress")
	}

	var video playwright.Video
	if page, err := h.page(); err == nil {
		video = page.Video()
	}

	// the video is only finalized once its context closes
	closeErr := h.context.Close()

	h.context = rec.prevCtx
	h.pages = rec.prevPages
	h.active = rec.prevActive
	h.recording = nil

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close recording context: %w", closeErr)
	}
	if video == nil {
		return nil, errors.New("recording produced no video")
	}

	if err := os.MkdirAll(filepath.Dir(rec.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := video.SaveAs(rec.path); err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}
	_ = video.Delete()

	return map[string]interface{}{"path": rec.path}, nil
}
