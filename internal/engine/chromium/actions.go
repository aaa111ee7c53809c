package chromium

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

// execute maps one command onto Playwright calls
func (h *Handle) execute(cmd command.Command) (map[string]interface{}, error) {
	switch c := cmd.(type) {
	case command.Navigate:
		return h.navigate(c)
	case command.History:
		return h.history(c)
	case command.Snapshot:
		return h.snapshot(c)
	case command.Click:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Click() })
	case command.Fill:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Fill(c.Value) })
	case command.Interact:
		return h.interact(c)
	case command.Query:
		return h.query(c)
	case command.Screenshot:
		return h.screenshot(c)
	case command.Tab:
		return h.tab(c)
	case command.SetViewport:
		return h.setViewport(c.Width, c.Height)
	case command.Device:
		return h.device(c.Device)
	case command.RecordingStart:
		return h.startRecording(c.Path)
	case command.RecordingStop:
		return h.stopRecording()
	case command.Close:
		return map[string]interface{}{"closed": true}, nil
	case command.Raw:
		return h.raw(c)
	case nil:
		return nil, errors.New("empty command")
	default:
		return nil, fmt.Errorf("unsupported action: %s", cmd.Action())
	}
}

func (h *Handle) navigate(c command.Navigate) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	opts := playwright.PageGotoOptions{}
	if c.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(c.WaitUntil)
		opts.WaitUntil = &waitUntil
	}
	if _, err := page.Goto(c.URL, opts); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	return h.location(page), nil
}

func (h *Handle) history(c command.History) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case command.ActionBack:
		_, err = page.GoBack()
	case command.ActionForward:
		_, err = page.GoForward()
	case command.ActionReload:
		_, err = page.Reload()
	default:
		return nil, fmt.Errorf("unsupported history action: %s", c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", c.Kind, err)
	}
	return h.location(page), nil
}

func (h *Handle) location(page playwright.Page) map[string]interface{} {
	title, _ := page.Title()
	return map[string]interface{}{"url": page.URL(), "title": title}
}

func (h *Handle) snapshot(c command.Snapshot) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	out, err := page.Evaluate(snapshotScript, map[string]interface{}{
		"interactive": c.Filter == "interactive",
		"selector":    c.Selector,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	data := h.location(page)
	data["snapshot"] = out
	return data, nil
}

func (h *Handle) onLocator(selector string, fn func(playwright.Locator) error) (map[string]interface{}, error) {
	if selector == "" {
		return nil, errors.New("selector is required")
	}
	page, err := h.page()
	if err != nil {
		return nil, err
	}
	if err := fn(page.Locator(selector)); err != nil {
		return nil, err
	}
	return map[string]interface{}{"selector": selector}, nil
}

func (h *Handle) interact(c command.Interact) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case command.ActionHover:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Hover() })
	case command.ActionFocus:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Focus() })
	case command.ActionDblClick:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Dblclick() })
	case command.ActionCheck:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Check() })
	case command.ActionUncheck:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Uncheck() })
	case command.ActionType:
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.PressSequentially(c.Text) })
	case command.ActionSelect:
		return h.onLocator(c.Selector, func(l playwright.Locator) error {
			_, err := l.SelectOption(playwright.SelectOptionValues{Values: &[]string{c.Value}})
			return err
		})
	case command.ActionDrag:
		if c.Target == "" {
			return nil, errors.New("drag target is required")
		}
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.DragTo(page.Locator(c.Target)) })
	case command.ActionPress:
		if c.Selector == "" {
			if err := page.Keyboard().Press(c.Key); err != nil {
				return nil, err
			}
			return map[string]interface{}{"key": c.Key}, nil
		}
		return h.onLocator(c.Selector, func(l playwright.Locator) error { return l.Press(c.Key) })
	case command.ActionScroll:
		if c.Selector != "" {
			if err := page.Locator(c.Selector).ScrollIntoViewIfNeeded(); err != nil {
				return nil, err
			}
		}
		amount := defaultScrollAmount
		if c.Amount != nil {
			amount = *c.Amount
		}
		dx, dy, err := scrollDelta(c.Direction, amount)
		if err != nil {
			return nil, err
		}
		if err := page.Mouse().Wheel(dx, dy); err != nil {
			return nil, err
		}
		return map[string]interface{}{"direction": c.Direction, "amount": amount}, nil
	default:
		return nil, fmt.Errorf("unsupported interaction: %s", c.Kind)
	}
}

// defaultScrollAmount applies when a scroll arrives without an amount
const defaultScrollAmount = 300

func scrollDelta(direction string, amount int) (float64, float64, error) {
	a := float64(amount)
	switch direction {
	case "down", "":
		return 0, a, nil
	case "up":
		return 0, -a, nil
	case "right":
		return a, 0, nil
	case "left":
		return -a, 0, nil
	default:
		return 0, 0, fmt.Errorf("invalid scroll direction: %s", direction)
	}
}

func (h *Handle) query(c command.Query) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	var value interface{}
	switch c.Kind {
	case command.ActionTitle:
		value, err = page.Title()
	case command.ActionURL:
		value = page.URL()
	case command.ActionGetText:
		value, err = h.locator(page, c.Selector).TextContent()
	case command.ActionIsVisible:
		value, err = h.locator(page, c.Selector).IsVisible()
	case command.ActionIsEnabled:
		value, err = h.locator(page, c.Selector).IsEnabled()
	case command.ActionIsChecked:
		value, err = h.locator(page, c.Selector).IsChecked()
	case command.ActionCount:
		value, err = h.locator(page, c.Selector).Count()
	case command.ActionGetAttribute:
		value, err = h.locator(page, c.Selector).GetAttribute(c.Attribute)
	default:
		return nil, fmt.Errorf("unsupported query: %s", c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", c.Kind, err)
	}
	return map[string]interface{}{"result": value}, nil
}

func (h *Handle) locator(page playwright.Page, selector string) playwright.Locator {
	if selector == "" {
		selector = "html"
	}
	return page.Locator(selector)
}

func (h *Handle) screenshot(c command.Screenshot) (map[string]interface{}, error) {
	if c.Path == "" {
		return nil, errors.New("screenshot path is required")
	}
	page, err := h.page()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if c.Selector != "" {
		_, err = page.Locator(c.Selector).Screenshot(playwright.LocatorScreenshotOptions{
			Path: playwright.String(c.Path),
		})
	} else {
		_, err = page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(c.Path),
			FullPage: playwright.Bool(c.FullPage),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return map[string]interface{}{"path": c.Path}, nil
}

func (h *Handle) tab(c command.Tab) (map[string]interface{}, error) {
	switch c.Kind {
	case command.ActionTabList:
		return h.tabList(), nil

	case command.ActionTabNew:
		page, err := h.context.NewPage()
		if err != nil {
			return nil, fmt.Errorf("failed to open tab: %w", err)
		}
		h.pages = append(h.pages, page)
		h.active = len(h.pages) - 1
		if c.URL != "" {
			if _, err := page.Goto(c.URL); err != nil {
				return nil, fmt.Errorf("navigation failed: %w", err)
			}
		}
		return h.tabList(), nil

	case command.ActionTabSwitch:
		idx, err := tabIndex(c.Index, h.active, len(h.pages))
		if err != nil {
			return nil, err
		}
		h.active = idx
		if err := h.pages[idx].BringToFront(); err != nil {
			return nil, err
		}
		return h.tabList(), nil

	case command.ActionTabClose:
		idx, err := tabIndex(c.Index, h.active, len(h.pages))
		if err != nil {
			return nil, err
		}
		if err := h.pages[idx].Close(); err != nil {
			return nil, fmt.Errorf("failed to close tab: %w", err)
		}
		h.pages = append(h.pages[:idx], h.pages[idx+1:]...)
		h.active = activeAfterClose(h.active, idx, len(h.pages))
		return h.tabList(), nil

	default:
		return nil, fmt.Errorf("unsupported tab action: %s", c.Kind)
	}
}

// tabIndex resolves an optional index against the open tabs
func tabIndex(index *int, active, count int) (int, error) {
	if count == 0 {
		return 0, errors.New("no open tab")
	}
	if index == nil {
		return active, nil
	}
	if *index < 0 || *index >= count {
		return 0, fmt.Errorf("tab index %d out of range (0-%d)", *index, count-1)
	}
	return *index, nil
}

// activeAfterClose keeps the same tab active when an earlier one closes.
// Closing the active tab selects its right neighbour, or the new last tab.
func activeAfterClose(active, closed, remaining int) int {
	if closed < active {
		active--
	}
	if active >= remaining {
		active = remaining - 1
	}
	if active < 0 {
		active = 0
	}
	return active
}

func (h *Handle) tabList() map[string]interface{} {
	tabs := make([]map[string]interface{}, 0, len(h.pages))
	for i, page := range h.pages {
		title, _ := page.Title()
		tabs = append(tabs, map[string]interface{}{
			"index":  i,
			"url":    page.URL(),
			"title":  title,
			"active": i == h.active,
		})
	}
	return map[string]interface{}{"tabs": tabs, "active": h.active}
}

func (h *Handle) setViewport(width, height int) (map[string]interface{}, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	page, err := h.page()
	if err != nil {
		return nil, err
	}
	if err := page.SetViewportSize(width, height); err != nil {
		return nil, err
	}
	h.viewport.Width, h.viewport.Height = width, height
	return map[string]interface{}{"width": width, "height": height}, nil
}

func (h *Handle) device(name string) (map[string]interface{}, error) {
	desc, ok := h.pw.Devices[name]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", name)
	}

	emulation := "full"
	if h.recording != nil {
		// swapping contexts would cut the video short
		if err := h.resizeForDevice(desc); err != nil {
			return nil, err
		}
		emulation = "viewport"
	} else if err := h.emulate(desc); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"device":    name,
		"width":     h.viewport.Width,
		"height":    h.viewport.Height,
		"isMobile":  desc.IsMobile,
		"emulation": emulation,
	}, nil
}

// emulate replaces the browser context with one built from desc and
// reopens every tab at its current URL
func (h *Handle) emulate(desc *playwright.DeviceDescriptor) error {
	urls := make([]string, 0, len(h.pages))
	for _, page := range h.pages {
		urls = append(urls, page.URL())
	}
	if len(urls) == 0 {
		urls = append(urls, "")
	}

	viewport := h.viewport
	if desc.Viewport != nil {
		viewport = engine.Viewport{Width: desc.Viewport.Width, Height: desc.Viewport.Height}
	}
	bctx, err := h.browser.NewContext(contextOptions(viewport, desc, nil))
	if err != nil {
		return fmt.Errorf("failed to create device context: %w", err)
	}

	pages := make([]playwright.Page, 0, len(urls))
	for _, u := range urls {
		page, err := bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			return fmt.Errorf("failed to create page: %w", err)
		}
		if u != "" && u != "about:blank" {
			if _, err := page.Goto(u); err != nil {
				h.log.Warn().Err(err).Str("url", u).Msg("Device context could not reopen tab")
			}
		}
		pages = append(pages, page)
	}

	prev := h.context
	h.context = bctx
	h.pages = pages
	h.viewport = viewport
	h.emulation = desc
	if h.active >= len(pages) {
		h.active = 0
	}
	if prev != nil {
		if err := prev.Close(); err != nil {
			h.log.Warn().Err(err).Msg("Failed to close previous context")
		}
	}
	return nil
}

// resizeForDevice applies only the viewport and user agent header of desc
func (h *Handle) resizeForDevice(desc *playwright.DeviceDescriptor) error {
	page, err := h.page()
	if err != nil {
		return err
	}
	if desc.Viewport != nil {
		if _, err := h.setViewport(desc.Viewport.Width, desc.Viewport.Height); err != nil {
			return err
		}
	}
	if desc.UserAgent != "" {
		if err := page.SetExtraHTTPHeaders(map[string]string{"User-Agent": desc.UserAgent}); err != nil {
			return err
		}
	}
	return nil
}

// raw handles the few advanced tags this engine implements natively
func (h *Handle) raw(c command.Raw) (map[string]interface{}, error) {
	page, err := h.page()
	if err != nil {
		return nil, err
	}

	switch c.Tag {
	case "evaluate":
		script, _ := c.Params["script"].(string)
		if script == "" {
			return nil, errors.New("script is required")
		}
		out, err := page.Evaluate(script)
		if err != nil {
			return nil, fmt.Errorf("evaluate failed: %w", err)
		}
		return map[string]interface{}{"result": out}, nil

	case "content":
		html, err := page.Content()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"html": html}, nil

	case "wait":
		if selector, _ := c.Params["selector"].(string); selector != "" {
			if err := page.Locator(selector).WaitFor(); err != nil {
				return nil, fmt.Errorf("wait failed: %w", err)
			}
			return map[string]interface{}{"selector": selector}, nil
		}
		ms, _ := c.Params["timeout"].(float64)
		page.WaitForTimeout(ms)
		return map[string]interface{}{"waited": ms}, nil

	case "bringtofront":
		return map[string]interface{}{}, page.BringToFront()

	case "scrollintoview":
		selector, _ := c.Params["selector"].(string)
		return h.onLocator(selector, func(l playwright.Locator) error { return l.ScrollIntoViewIfNeeded() })

	default:
		return nil, fmt.Errorf("unsupported action: %s", c.Tag)
	}
}
