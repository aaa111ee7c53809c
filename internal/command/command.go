package command

// Command is one variant of the engine vocabulary. Each variant carries its
// own parameter schema; the wire form is the struct's JSON fields flattened
// next to "id" and "action".
type Command interface {
	Action() Action
}

// Viewport is a width/height pair in CSS pixels
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Launch asks a subprocess engine to start its browser
type Launch struct {
	Headless bool     `json:"headless"`
	Viewport Viewport `json:"viewport"`
}

func (Launch) Action() Action { return ActionLaunch }

// Navigate loads a URL in the active tab
type Navigate struct {
	URL       string `json:"url"`
	WaitUntil string `json:"waitUntil,omitempty"`
}

func (Navigate) Action() Action { return ActionNavigate }

// History is back, forward or reload
type History struct {
	Kind Action `json:"-"`
}

func (h History) Action() Action { return h.Kind }

// Snapshot captures the page structure
type Snapshot struct {
	Filter   string `json:"filter,omitempty"`
	Selector string `json:"selector,omitempty"`
}

func (Snapshot) Action() Action { return ActionSnapshot }

// Click clicks the element matching Selector
type Click struct {
	Selector string `json:"selector"`
}

func (Click) Action() Action { return ActionClick }

// Fill replaces the value of an input
type Fill struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

func (Fill) Action() Action { return ActionFill }

// Interact covers the element interaction verbs. Only the fields relevant
// to Kind are populated.
type Interact struct {
	Kind      Action `json:"-"`
	Selector  string `json:"selector,omitempty"`
	Text      string `json:"text,omitempty"`
	Key       string `json:"key,omitempty"`
	Value     string `json:"value,omitempty"`
	Target    string `json:"target,omitempty"`
	Direction string `json:"direction,omitempty"`
	Amount    *int   `json:"amount,omitempty"`
}

func (i Interact) Action() Action { return i.Kind }

// Query reads element or page state
type Query struct {
	Kind      Action `json:"-"`
	Selector  string `json:"selector,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

func (q Query) Action() Action { return q.Kind }

// Screenshot writes a PNG to Path
type Screenshot struct {
	Path     string `json:"path"`
	FullPage bool   `json:"fullPage,omitempty"`
	Selector string `json:"selector,omitempty"`
}

func (Screenshot) Action() Action { return ActionScreenshot }

// Tab manages browser tabs
type Tab struct {
	Kind  Action `json:"-"`
	Index *int   `json:"index,omitempty"`
	URL   string `json:"url,omitempty"`
}

func (t Tab) Action() Action { return t.Kind }

// SetViewport resizes the active page
type SetViewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (SetViewport) Action() Action { return ActionViewport }

// Device emulates a named device profile
type Device struct {
	Device string `json:"device"`
}

func (Device) Action() Action { return ActionDevice }

// RecordingStart begins capturing video to Path
type RecordingStart struct {
	Path string `json:"path"`
}

func (RecordingStart) Action() Action { return ActionRecordingStart }

// RecordingStop finishes the capture started by RecordingStart
type RecordingStop struct{}

func (RecordingStop) Action() Action { return ActionRecordingStop }

// Close asks the engine to close its browser
type Close struct{}

func (Close) Action() Action { return ActionClose }

// Raw is an uninterpreted passthrough command
type Raw struct {
	Tag    Action
	Params map[string]interface{}
}

func (r Raw) Action() Action { return r.Tag }
