package tools

import "github.com/shehryarbajwa/agent-browser/internal/command"

// Tool names
const (
	Open        = "browser_open"
	Navigate    = "browser_navigate"
	Snapshot    = "browser_snapshot"
	Click       = "browser_click"
	Fill        = "browser_fill"
	Interact    = "browser_interact"
	Query       = "browser_query"
	Screenshot  = "browser_screenshot"
	Tabs        = "browser_tabs"
	Settings    = "browser_settings"
	Advanced    = "browser_advanced"
	RecordStart = "browser_record_start"
	RecordStop  = "browser_record_stop"
	Close       = "browser_close"
	Sessions    = "browser_sessions"
)

// Param describes one tool argument
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     interface{}
}

// Definition describes one tool for host registration
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

var sessionParam = Param{
	Name:        "session",
	Type:        "string",
	Description: "Session name. Created on first use.",
	Required:    true,
}

func actionParam(description string, actions []command.Action) Param {
	enum := make([]string, len(actions))
	for i, a := range actions {
		enum[i] = string(a)
	}
	return Param{Name: "action", Type: "string", Description: description, Required: true, Enum: enum}
}

func tabVerbs() []command.Action {
	return []command.Action{"list", "new", "switch", "close"}
}

// Definitions returns the tool catalog in registration order
func Definitions() []Definition {
	return []Definition{
		{
			Name:        Open,
			Description: "Open a URL in the session's active tab",
			Params: []Param{
				sessionParam,
				{Name: "url", Type: "string", Description: "URL to open", Required: true},
				{Name: "waitUntil", Type: "string", Description: "Load state to wait for", Enum: []string{"load", "domcontentloaded", "networkidle", "commit"}, Default: "load"},
			},
		},
		{
			Name:        Navigate,
			Description: "Go back, go forward or reload",
			Params:      []Param{sessionParam, actionParam("History action", command.HistoryActions)},
		},
		{
			Name:        Snapshot,
			Description: "Outline the page, listing the elements that can be acted on",
			Params: []Param{
				sessionParam,
				{Name: "interactive", Type: "boolean", Description: "Only list interactive elements", Default: true},
				{Name: "selector", Type: "string", Description: "Limit the snapshot to this element"},
			},
		},
		{
			Name:        Click,
			Description: "Click an element",
			Params: []Param{
				sessionParam,
				{Name: "selector", Type: "string", Description: "Element selector", Required: true},
			},
		},
		{
			Name:        Fill,
			Description: "Fill an input",
			Params: []Param{
				sessionParam,
				{Name: "selector", Type: "string", Description: "Input selector", Required: true},
				{Name: "value", Type: "string", Description: "Value to fill", Required: true},
			},
		},
		{
			Name:        Interact,
			Description: "Hover, focus, drag, scroll, type, press, select, check, uncheck or double-click",
			Params: []Param{
				sessionParam,
				actionParam("Interaction", command.InteractActions),
				{Name: "selector", Type: "string", Description: "Element selector"},
				{Name: "text", Type: "string", Description: "Text to type"},
				{Name: "key", Type: "string", Description: "Key to press, e.g. Enter"},
				{Name: "value", Type: "string", Description: "Option to select"},
				{Name: "target", Type: "string", Description: "Drop target selector"},
				{Name: "direction", Type: "string", Description: "Scroll direction", Enum: []string{"up", "down", "left", "right"}, Default: defaultScrollDirection},
				{Name: "amount", Type: "number", Description: "Scroll distance in pixels", Default: defaultScrollAmount},
			},
		},
		{
			Name:        Query,
			Description: "Read element or page state",
			Params: []Param{
				sessionParam,
				actionParam("Query", command.QueryActions),
				{Name: "selector", Type: "string", Description: "Element selector"},
				{Name: "attribute", Type: "string", Description: "Attribute name, for getattribute"},
			},
		},
		{
			Name:        Screenshot,
			Description: "Capture a PNG screenshot, optionally emulating a device first",
			Params: []Param{
				sessionParam,
				{Name: "label", Type: "string", Description: "File label; defaults to a timestamp"},
				{Name: "fullPage", Type: "boolean", Description: "Capture the full scrollable page"},
				{Name: "selector", Type: "string", Description: "Capture only this element"},
				{Name: "device", Type: "string", Description: "Device to emulate, e.g. iPhone 14"},
			},
		},
		{
			Name:        Tabs,
			Description: "List, open, switch or close tabs",
			Params: []Param{
				sessionParam,
				actionParam("Tab action", tabVerbs()),
				{Name: "index", Type: "number", Description: "Tab index"},
				{Name: "url", Type: "string", Description: "URL for a new tab"},
			},
		},
		{
			Name:        Settings,
			Description: "Resize the viewport or emulate a device",
			Params: []Param{
				sessionParam,
				actionParam("Setting", command.SettingsActions),
				{Name: "width", Type: "number", Description: "Viewport width"},
				{Name: "height", Type: "number", Description: "Viewport height"},
				{Name: "device", Type: "string", Description: "Device name"},
			},
		},
		{
			Name:        Advanced,
			Description: "Send any engine action. Without an action, returns the list of supported actions.",
			Params: []Param{
				sessionParam,
				{Name: "action", Type: "string", Description: "Engine action tag"},
				{Name: "params", Type: "object", Description: "Action parameters"},
			},
		},
		{
			Name:        RecordStart,
			Description: "Start recording the session to video",
			Params: []Param{
				sessionParam,
				{Name: "label", Type: "string", Description: "File label; defaults to a timestamp"},
			},
		},
		{
			Name:        RecordStop,
			Description: "Stop recording and save the video",
			Params:      []Param{sessionParam},
		},
		{
			Name:        Close,
			Description: "Close the session and its browser",
			Params:      []Param{sessionParam},
		},
		{
			Name:        Sessions,
			Description: "List live sessions",
		},
	}
}
