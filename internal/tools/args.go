package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shehryarbajwa/agent-browser/internal/command"
)

var (
	// ErrInvalidArgument marks a missing or malformed tool argument
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownTool is returned for names outside the catalog
	ErrUnknownTool = errors.New("unknown tool")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Args is a decoded tool argument object
type Args map[string]interface{}

func (a Args) has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Args) str(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("%s must be a string", key)
	}
	return s, nil
}

func (a Args) requireStr(key string) (string, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", invalid("missing required parameter: %s", key)
	}
	return s, nil
}

func (a Args) boolOr(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalid("%s must be a boolean", key)
	}
	return b, nil
}

// num accepts any JSON-decoded number and rejects fractions
func (a Args) num(key string) (int, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false, invalid("%s must be a number", key)
		}
		f = parsed
	default:
		return 0, false, invalid("%s must be a number", key)
	}
	if f != math.Trunc(f) {
		return 0, false, invalid("%s must be an integer", key)
	}
	return int(f), true, nil
}

func (a Args) numOr(key string, def int) (int, error) {
	n, ok, err := a.num(key)
	if err != nil || !ok {
		return def, err
	}
	return n, nil
}

func (a Args) requireNum(key string) (int, error) {
	n, ok, err := a.num(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalid("missing required parameter: %s", key)
	}
	return n, nil
}

func (a Args) object(key string) (map[string]interface{}, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, invalid("%s must be an object", key)
	}
	return m, nil
}

// action reads the action argument and checks it against allowed
func (a Args) action(allowed []command.Action) (command.Action, error) {
	s, err := a.requireStr("action")
	if err != nil {
		return "", err
	}
	act := command.Action(s)
	if !act.In(allowed) {
		return "", invalid("unsupported action %q, expected one of %v", s, allowed)
	}
	return act, nil
}
