// Package tools maps each externally exposed tool onto command envelopes.
// Every tool except close, sessions and catalog-mode advanced resolves its
// session first, creating it when needed. Capacity, launch and argument
// failures come back as errors; engine failures come back inside the
// payload with success=false.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/media"
	"github.com/shehryarbajwa/agent-browser/internal/recording"
	"github.com/shehryarbajwa/agent-browser/internal/session"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

const (
	defaultWaitUntil       = "load"
	defaultScrollDirection = "down"
	defaultScrollAmount    = 300
)

// reservedActions are driven by dedicated tools and may not be sent raw
var reservedActions = []command.Action{
	command.ActionLaunch,
	command.ActionRecordingStart,
	command.ActionRecordingStop,
	command.ActionClose,
}

// ScreenshotProcessor uploads a captured screenshot
type ScreenshotProcessor interface {
	Screenshot(ctx context.Context, path string) media.Artifact
}

type handler func(context.Context, Args) (models.Result, error)

// Router dispatches tool calls
type Router struct {
	registry    *session.Registry
	recorder    *recording.Coordinator
	processor   ScreenshotProcessor
	artifactDir string
	log         zerolog.Logger

	handlers map[string]handler
}

func NewRouter(registry *session.Registry, recorder *recording.Coordinator, processor ScreenshotProcessor, artifactDir string, log zerolog.Logger) *Router {
	r := &Router{
		registry:    registry,
		recorder:    recorder,
		processor:   processor,
		artifactDir: artifactDir,
		log:         log.With().Str("component", "tools").Logger(),
	}
	r.handlers = map[string]handler{
		Open:        r.Open,
		Navigate:    r.Navigate,
		Snapshot:    r.Snapshot,
		Click:       r.Click,
		Fill:        r.Fill,
		Interact:    r.Interact,
		Query:       r.Query,
		Screenshot:  r.Screenshot,
		Tabs:        r.Tabs,
		Settings:    r.Settings,
		Advanced:    r.Advanced,
		RecordStart: r.RecordStart,
		RecordStop:  r.RecordStop,
		Close:       r.Close,
		Sessions:    r.Sessions,
	}
	return r
}

// Call runs the named tool
func (r *Router) Call(ctx context.Context, name string, args map[string]interface{}) (models.Result, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	res, err := h(ctx, Args(args))
	if err != nil {
		r.log.Debug().Err(err).Str("tool", name).Msg("Tool call rejected")
		return nil, err
	}
	return res, nil
}

// dispatch resolves the session and sends a single command
func (r *Router) dispatch(ctx context.Context, name string, cmd command.Command) (models.Result, error) {
	var out models.Result
	err := r.registry.With(ctx, name, func(conn *session.Conn) error {
		out = conn.Dispatch(ctx, cmd).Payload()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Router) Open(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	url, err := args.requireStr("url")
	if err != nil {
		return nil, err
	}
	waitUntil, err := args.str("waitUntil")
	if err != nil {
		return nil, err
	}
	if waitUntil == "" {
		waitUntil = defaultWaitUntil
	}
	return r.dispatch(ctx, name, command.Navigate{URL: url, WaitUntil: waitUntil})
}

func (r *Router) Navigate(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	action, err := args.action(command.HistoryActions)
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, command.History{Kind: action})
}

func (r *Router) Snapshot(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	interactive, err := args.boolOr("interactive", true)
	if err != nil {
		return nil, err
	}
	selector, err := args.str("selector")
	if err != nil {
		return nil, err
	}

	cmd := command.Snapshot{Selector: selector}
	if interactive {
		cmd.Filter = "interactive"
	}
	return r.dispatch(ctx, name, cmd)
}

func (r *Router) Click(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	selector, err := args.requireStr("selector")
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, command.Click{Selector: selector})
}

func (r *Router) Fill(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	selector, err := args.requireStr("selector")
	if err != nil {
		return nil, err
	}
	if !args.has("value") {
		return nil, invalid("missing required parameter: value")
	}
	value, err := args.str("value")
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, command.Fill{Selector: selector, Value: value})
}

func (r *Router) Interact(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	cmd, err := interactCommand(args)
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, cmd)
}

func interactCommand(args Args) (command.Interact, error) {
	action, err := args.action(command.InteractActions)
	if err != nil {
		return command.Interact{}, err
	}
	cmd := command.Interact{Kind: action}
	if cmd.Selector, err = args.str("selector"); err != nil {
		return cmd, err
	}

	switch action {
	case command.ActionType:
		cmd.Text, err = args.str("text")
	case command.ActionPress:
		cmd.Key, err = args.str("key")
	case command.ActionSelect:
		cmd.Value, err = args.str("value")
	case command.ActionDrag:
		cmd.Target, err = args.str("target")
	case command.ActionScroll:
		if cmd.Direction, err = args.str("direction"); err != nil {
			return cmd, err
		}
		if cmd.Direction == "" {
			cmd.Direction = defaultScrollDirection
		}
		var amount int
		if amount, err = args.numOr("amount", defaultScrollAmount); err == nil {
			cmd.Amount = &amount
		}
	}
	return cmd, err
}

func (r *Router) Query(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	action, err := args.action(command.QueryActions)
	if err != nil {
		return nil, err
	}

	cmd := command.Query{Kind: action}
	if cmd.Selector, err = args.str("selector"); err != nil {
		return nil, err
	}
	if action == command.ActionGetAttribute {
		if cmd.Attribute, err = args.requireStr("attribute"); err != nil {
			return nil, err
		}
	}
	return r.dispatch(ctx, name, cmd)
}

// Screenshot emulates the requested device first, in the same exclusive
// section, then captures and uploads once the session is released.
func (r *Router) Screenshot(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	label, err := args.str("label")
	if err != nil {
		return nil, err
	}
	device, err := args.str("device")
	if err != nil {
		return nil, err
	}
	fullPage, err := args.boolOr("fullPage", false)
	if err != nil {
		return nil, err
	}
	selector, err := args.str("selector")
	if err != nil {
		return nil, err
	}

	path := media.ArtifactPath(r.artifactDir, name, label, "png", r.registry.Now())

	var out models.Result
	err = r.registry.With(ctx, name, func(conn *session.Conn) error {
		if device != "" {
			if res := conn.Dispatch(ctx, command.Device{Device: device}); !res.Success {
				out = res.Payload()
				return nil
			}
		}
		out = conn.Dispatch(ctx, command.Screenshot{Path: path, FullPage: fullPage, Selector: selector}).Payload()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return out, nil
	}

	art := r.processor.Screenshot(ctx, path)
	out["path"] = art.Path
	if art.URL != "" {
		out["url"] = art.URL
	}
	return out, nil
}

func (r *Router) Tabs(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	verb, err := args.action(tabVerbs())
	if err != nil {
		return nil, err
	}

	cmd := command.Tab{Kind: command.TabActions[string(verb)]}
	index, ok, err := args.num("index")
	if err != nil {
		return nil, err
	}
	if ok {
		cmd.Index = &index
	}
	if cmd.URL, err = args.str("url"); err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, cmd)
}

func (r *Router) Settings(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	action, err := args.action(command.SettingsActions)
	if err != nil {
		return nil, err
	}

	var cmd command.Command
	switch action {
	case command.ActionViewport:
		width, err := args.requireNum("width")
		if err != nil {
			return nil, err
		}
		height, err := args.requireNum("height")
		if err != nil {
			return nil, err
		}
		cmd = command.SetViewport{Width: width, Height: height}
	case command.ActionDevice:
		device, err := args.requireStr("device")
		if err != nil {
			return nil, err
		}
		cmd = command.Device{Device: device}
	}
	return r.dispatch(ctx, name, cmd)
}

// Advanced passes an arbitrary action through. Without one it lists the
// catalog and touches no session.
func (r *Router) Advanced(ctx context.Context, args Args) (models.Result, error) {
	tag, err := args.str("action")
	if err != nil {
		return nil, err
	}
	if tag == "" {
		catalog := command.Catalog()
		actions := make([]string, len(catalog))
		for i, a := range catalog {
			actions[i] = string(a)
		}
		return models.Result{"actions": actions, "count": len(actions)}, nil
	}

	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	action := command.Action(strings.ToLower(tag))
	if action.In(reservedActions) {
		return nil, invalid("action %q has a dedicated tool", tag)
	}
	params, err := args.object("params")
	if err != nil {
		return nil, err
	}
	return r.dispatch(ctx, name, command.Raw{Tag: action, Params: params})
}

func (r *Router) RecordStart(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	label, err := args.str("label")
	if err != nil {
		return nil, err
	}
	return r.recorder.Start(ctx, name, label)
}

func (r *Router) RecordStop(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	return r.recorder.Stop(ctx, name)
}

// Close checks membership before touching the engine, so probing an
// unknown name never launches a browser. The close envelope and the
// teardown share one exclusive section.
func (r *Router) Close(ctx context.Context, args Args) (models.Result, error) {
	name, err := args.requireStr("session")
	if err != nil {
		return nil, err
	}
	if !r.registry.Has(name) {
		return models.ErrorResult(models.MsgSessionNotFound), nil
	}

	var out models.Result
	err = r.registry.CloseWith(ctx, name, func(conn *session.Conn) error {
		out = conn.Dispatch(ctx, command.Close{}).Payload()
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return models.ErrorResult(models.MsgSessionNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	out["closed"] = name
	return out, nil
}

func (r *Router) Sessions(ctx context.Context, args Args) (models.Result, error) {
	sessions := r.registry.List()
	return models.Result{
		"sessions":      sessions,
		"count":         len(sessions),
		"maxConcurrent": r.registry.MaxConcurrent(),
	}, nil
}
