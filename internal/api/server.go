package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/agent-browser/internal/proxy"
	"github.com/shehryarbajwa/agent-browser/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes. A nil limiter disables rate
// limiting.
func (h *Handler) SetupRoutes(proxyServer *proxy.Server, rateLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(h.log))

	api := r.PathPrefix("/v1").Subrouter()

	// Tool calls launch browsers, so only they are rate limited
	toolAPI := api.PathPrefix("/tools").Subrouter()
	if rateLimiter != nil {
		toolAPI.Use(RateLimitMiddleware(rateLimiter))
	}
	toolAPI.HandleFunc("", h.ListTools).Methods("GET")
	toolAPI.HandleFunc("/{name}", h.CallTool).Methods("POST", "OPTIONS")

	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{name}", h.DeleteSession).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/sessions/{name}/debug", h.GetDebugURL).Methods("GET")
	api.HandleFunc("/sessions/{name}/ws", func(w http.ResponseWriter, r *http.Request) {
		proxyServer.HandleDebugConnection(w, r, mux.Vars(r)["name"])
	}).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": h.registry.Len(),
		})
	}).Methods("GET")

	return r
}
