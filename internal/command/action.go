package command

// Action is a tag from the fixed engine vocabulary
type Action string

const (
	ActionLaunch   Action = "launch"
	ActionNavigate Action = "navigate"
	ActionBack     Action = "back"
	ActionForward  Action = "forward"
	ActionReload   Action = "reload"
	ActionSnapshot Action = "snapshot"
	ActionClick    Action = "click"
	ActionFill     Action = "fill"

	ActionHover    Action = "hover"
	ActionFocus    Action = "focus"
	ActionDrag     Action = "drag"
	ActionScroll   Action = "scroll"
	ActionType     Action = "type"
	ActionPress    Action = "press"
	ActionSelect   Action = "select"
	ActionCheck    Action = "check"
	ActionUncheck  Action = "uncheck"
	ActionDblClick Action = "dblclick"

	ActionGetText      Action = "gettext"
	ActionIsVisible    Action = "isvisible"
	ActionIsEnabled    Action = "isenabled"
	ActionIsChecked    Action = "ischecked"
	ActionTitle        Action = "title"
	ActionURL          Action = "url"
	ActionCount        Action = "count"
	ActionGetAttribute Action = "getattribute"

	ActionScreenshot Action = "screenshot"

	ActionTabList   Action = "tab_list"
	ActionTabNew    Action = "tab_new"
	ActionTabSwitch Action = "tab_switch"
	ActionTabClose  Action = "tab_close"

	ActionViewport Action = "viewport"
	ActionDevice   Action = "device"

	ActionRecordingStart Action = "recording_start"
	ActionRecordingStop  Action = "recording_stop"

	ActionClose Action = "close"
)

// HistoryActions are accepted by the history navigation tool.
var HistoryActions = []Action{ActionBack, ActionForward, ActionReload}

// InteractActions are accepted by the interact tool.
var InteractActions = []Action{
	ActionHover, ActionFocus, ActionDrag, ActionScroll, ActionType,
	ActionPress, ActionSelect, ActionCheck, ActionUncheck, ActionDblClick,
}

// QueryActions are accepted by the query tool.
var QueryActions = []Action{
	ActionGetText, ActionIsVisible, ActionIsEnabled, ActionIsChecked,
	ActionTitle, ActionURL, ActionCount, ActionGetAttribute,
}

// TabActions maps the tabs tool verbs to their envelope tags.
var TabActions = map[string]Action{
	"list":   ActionTabList,
	"new":    ActionTabNew,
	"switch": ActionTabSwitch,
	"close":  ActionTabClose,
}

// SettingsActions are accepted by the settings tool.
var SettingsActions = []Action{ActionViewport, ActionDevice}

// advancedActions are passed through to the engine untouched.
var advancedActions = []Action{
	"evaluate", "wait", "waitforurl", "waitforloadstate", "content", "setcontent",
	"cookies_get", "cookies_set", "cookies_clear",
	"storage_get", "storage_set", "storage_clear",
	"dialog", "upload", "download", "pdf", "frame", "mainframe",
	"geolocation", "permissions", "offline", "headers", "credentials",
	"emulatemedia", "useragent", "timezone", "locale",
	"keyboard", "mousemove", "mousedown", "mouseup", "wheel", "tap",
	"highlight", "clear", "selectall", "scrollintoview",
	"innertext", "innerhtml", "inputvalue", "setvalue", "boundingbox", "styles",
	"console", "errors", "requests", "route", "unroute",
	"trace_start", "trace_stop", "har_start", "har_stop",
	"bringtofront", "addscript", "addstyle", "addinitscript",
	"getbyrole", "getbytext", "getbylabel", "getbyplaceholder", "getbytestid", "nth",
}

// Catalog returns every action tag the engine understands, core tags first.
func Catalog() []Action {
	core := []Action{
		ActionNavigate, ActionBack, ActionForward, ActionReload,
		ActionSnapshot, ActionClick, ActionFill,
	}
	core = append(core, InteractActions...)
	core = append(core, QueryActions...)
	core = append(core,
		ActionScreenshot,
		ActionTabList, ActionTabNew, ActionTabSwitch, ActionTabClose,
		ActionViewport, ActionDevice,
		ActionRecordingStart, ActionRecordingStop,
		ActionClose,
	)
	return append(core, advancedActions...)
}

// In reports whether a is one of set.
func (a Action) In(set []Action) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}
