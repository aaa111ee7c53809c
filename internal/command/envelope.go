package command

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

// Envelope is a single dispatch to the engine
type Envelope struct {
	ID      string
	Command Command
}

// New wraps cmd with a fresh correlation id
func New(cmd Command) Envelope {
	return Envelope{ID: uuid.New().String(), Command: cmd}
}

// Action returns the envelope's tag
func (e Envelope) Action() Action {
	if e.Command == nil {
		return ""
	}
	return e.Command.Action()
}

// Fields returns the flattened parameter bag, without id and action
func (e Envelope) Fields() (map[string]interface{}, error) {
	if raw, ok := e.Command.(Raw); ok {
		out := make(map[string]interface{}, len(raw.Params))
		for k, v := range raw.Params {
			out[k] = v
		}
		return out, nil
	}

	data, err := json.Marshal(e.Command)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s params: %w", e.Action(), err)
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s params: %w", e.Action(), err)
	}
	return fields, nil
}

// MarshalJSON produces {"id": ..., "action": ..., <params>...}
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Command == nil {
		return nil, fmt.Errorf("envelope %s has no command", e.ID)
	}

	fields, err := e.Fields()
	if err != nil {
		return nil, err
	}
	fields["id"] = e.ID
	fields["action"] = string(e.Action())

	return json.Marshal(fields)
}

// Result is the engine's reply to one envelope
type Result struct {
	ID      string                 `json:"id"`
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// OK builds a successful result
func OK(data map[string]interface{}) Result {
	return Result{Success: true, Data: data}
}

// Failed builds an unsuccessful result
func Failed(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// DecodeResult parses one result line from an engine
func DecodeResult(line []byte) (Result, error) {
	var res Result
	if err := json.Unmarshal(line, &res); err != nil {
		return Result{}, fmt.Errorf("invalid result envelope: %w", err)
	}
	if res.ID == "" {
		return Result{}, fmt.Errorf("result envelope missing id")
	}
	return res, nil
}

// String returns a string field from Data
func (r Result) String(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// Payload flattens the result into a tool payload. Data fields are kept
// as-is; success and error always reflect the envelope.
func (r Result) Payload() models.Result {
	out := make(models.Result, len(r.Data)+2)
	for k, v := range r.Data {
		out[k] = v
	}
	out["success"] = r.Success
	if r.Error != "" {
		out["error"] = r.Error
	} else {
		delete(out, "error")
	}
	return out
}
