package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/session"
	"github.com/shehryarbajwa/agent-browser/internal/tools"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

const maxBodyBytes = 1 << 20

// Caller runs a named tool
type Caller interface {
	Call(ctx context.Context, name string, args map[string]interface{}) (models.Result, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	caller   Caller
	registry *session.Registry
	log      zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(caller Caller, registry *session.Registry, log zerolog.Logger) *Handler {
	return &Handler{
		caller:   caller,
		registry: registry,
		log:      log.With().Str("component", "api").Logger(),
	}
}

type paramView struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

type toolView struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []paramView `json:"params"`
}

// ListTools handles GET /v1/tools
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	defs := tools.Definitions()
	views := make([]toolView, 0, len(defs))
	for _, d := range defs {
		params := make([]paramView, 0, len(d.Params))
		for _, p := range d.Params {
			params = append(params, paramView(p))
		}
		views = append(views, toolView{Name: d.Name, Description: d.Description, Params: params})
	}
	writeJSON(w, http.StatusOK, views)
}

// CallTool handles POST /v1/tools/{name}. The body is the argument object.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	args := map[string]interface{}{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.caller.Call(r.Context(), name, args)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("tool", name).Msg("Tool call failed")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListSessions handles GET /v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// DeleteSession handles DELETE /v1/sessions/{name}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.registry.Close(r.Context(), name); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, models.MsgSessionNotFound)
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDebugURL handles GET /v1/sessions/{name}/debug
func (h *Handler) GetDebugURL(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	sess, err := h.registry.Lookup(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, models.MsgSessionNotFound)
		return
	}
	if sess.DebugURL() == "" {
		writeError(w, http.StatusConflict, "Session does not expose a debug endpoint")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"debuggerUrl": fmt.Sprintf("ws://%s/v1/sessions/%s/ws", r.Host, name),
		"session":     name,
	})
}

// statusFor maps hard tool failures to HTTP codes
func statusFor(err error) int {
	var launchErr *session.LaunchError
	switch {
	case errors.Is(err, tools.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, tools.ErrUnknownTool), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrCapacityExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.As(err, &launchErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
