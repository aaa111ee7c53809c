package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/enginetest"
	"github.com/shehryarbajwa/agent-browser/internal/session"
)

func echoServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func setup(t *testing.T, debugURL string) (*session.Registry, string) {
	t.Helper()
	launcher := enginetest.NewLauncher()
	launcher.DebugURL = debugURL
	registry := session.NewRegistry(launcher, session.Options{MaxConcurrent: 2, Viewport: engine.Viewport{Width: 800, Height: 600}}, zerolog.Nop())
	t.Cleanup(func() { registry.DrainAll(context.Background()) })

	p := NewServer(registry, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.HandleDebugConnection(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(srv.Close)
	return registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestProxy_RelaysFrames(t *testing.T) {
	registry, proxyURL := setup(t, echoServer(t))
	_, err := registry.Resolve(context.Background(), "s1")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(proxyURL+"/s1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"method":"Browser.getVersion"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `echo:{"id":1,"method":"Browser.getVersion"}`, string(msg))
}

func TestProxy_UnknownSession(t *testing.T) {
	_, proxyURL := setup(t, echoServer(t))

	_, resp, err := websocket.DefaultDialer.Dial(proxyURL+"/nobody", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxy_NoDebugEndpoint(t *testing.T) {
	registry, proxyURL := setup(t, "")
	_, err := registry.Resolve(context.Background(), "s1")
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(proxyURL+"/s1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
