package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEnvelope_MarshalFlattensParams(t *testing.T) {
	env := New(Navigate{URL: "https://example.com", WaitUntil: "load"})
	out := decode(t, env)

	assert.Equal(t, env.ID, out["id"])
	assert.Equal(t, "navigate", out["action"])
	assert.Equal(t, "https://example.com", out["url"])
	assert.Equal(t, "load", out["waitUntil"])
}

func TestEnvelope_NewAssignsDistinctIDs(t *testing.T) {
	a := New(Close{})
	b := New(Close{})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEnvelope_KindTaggedVariants(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		action string
		want   map[string]interface{}
		absent []string
	}{
		{
			name:   "history",
			cmd:    History{Kind: ActionReload},
			action: "reload",
			absent: []string{"Kind"},
		},
		{
			name:   "type uses text",
			cmd:    Interact{Kind: ActionType, Selector: "#q", Text: "hello"},
			action: "type",
			want:   map[string]interface{}{"selector": "#q", "text": "hello"},
			absent: []string{"key", "value", "target"},
		},
		{
			name:   "scroll",
			cmd:    Interact{Kind: ActionScroll, Direction: "down", Amount: intPtr(300)},
			action: "scroll",
			want:   map[string]interface{}{"direction": "down", "amount": float64(300)},
			absent: []string{"selector"},
		},
		{
			name:   "scroll amount zero is kept",
			cmd:    Interact{Kind: ActionScroll, Direction: "up", Amount: intPtr(0)},
			action: "scroll",
			want:   map[string]interface{}{"direction": "up", "amount": float64(0)},
		},
		{
			name:   "non-scroll interaction has no amount",
			cmd:    Interact{Kind: ActionHover, Selector: "#m"},
			action: "hover",
			want:   map[string]interface{}{"selector": "#m"},
			absent: []string{"amount"},
		},
		{
			name:   "tab index zero is kept",
			cmd:    Tab{Kind: ActionTabSwitch, Index: intPtr(0)},
			action: "tab_switch",
			want:   map[string]interface{}{"index": float64(0)},
			absent: []string{"url"},
		},
		{
			name:   "snapshot without filter",
			cmd:    Snapshot{},
			action: "snapshot",
			absent: []string{"filter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := decode(t, New(tt.cmd))
			assert.Equal(t, tt.action, out["action"])
			for k, v := range tt.want {
				assert.Equal(t, v, out[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, out, k)
			}
		})
	}
}

func TestEnvelope_RawPassthrough(t *testing.T) {
	params := map[string]interface{}{"script": "1+1", "nested": map[string]interface{}{"a": "b"}}
	env := New(Raw{Tag: "evaluate", Params: params})
	out := decode(t, env)

	assert.Equal(t, "evaluate", out["action"])
	assert.Equal(t, "1+1", out["script"])
	assert.Equal(t, map[string]interface{}{"a": "b"}, out["nested"])
	assert.NotContains(t, params, "id", "raw params must not be mutated")
}

func TestEnvelope_MarshalWithoutCommand(t *testing.T) {
	_, err := json.Marshal(Envelope{ID: "x"})
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	res, err := DecodeResult([]byte(`{"id":"abc","success":true,"data":{"url":"https://a.test","extra":1}}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://a.test", res.String("url"))
	assert.Equal(t, float64(1), res.Data["extra"])

	_, err = DecodeResult([]byte(`{"success":true}`))
	assert.Error(t, err)

	_, err = DecodeResult([]byte(`not json`))
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	assert.Greater(t, len(catalog), 50)
	assert.Equal(t, ActionNavigate, catalog[0])
	assert.True(t, ActionRecordingStop.In(catalog))
	assert.True(t, Action("evaluate").In(catalog))

	seen := make(map[Action]bool)
	for _, a := range catalog {
		assert.False(t, seen[a], "duplicate action %s", a)
		seen[a] = true
	}
}

func intPtr(i int) *int { return &i }

func TestResult_Payload(t *testing.T) {
	ok := OK(map[string]interface{}{"url": "https://example.com", "error": "stale"}).Payload()
	assert.Equal(t, true, ok["success"])
	assert.Equal(t, "https://example.com", ok["url"])
	assert.NotContains(t, ok, "error")

	failed := Failed("no element %q", "#x").Payload()
	assert.Equal(t, false, failed["success"])
	assert.Equal(t, `no element "#x"`, failed.Err())
}
