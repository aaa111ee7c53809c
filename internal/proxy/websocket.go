// Package proxy relays a client websocket to a session's CDP endpoint.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const dialTimeout = 10 * time.Second

// Sessions finds live sessions without creating them
type Sessions interface {
	Lookup(ctx context.Context, name string) (*session.Session, error)
}

type Server struct {
	sessions Sessions
	log      zerolog.Logger
}

func NewServer(sessions Sessions, log zerolog.Logger) *Server {
	return &Server{
		sessions: sessions,
		log:      log.With().Str("component", "proxy").Logger(),
	}
}

// HandleDebugConnection upgrades the request and pipes frames both ways
// until either side closes.
func (s *Server) HandleDebugConnection(w http.ResponseWriter, r *http.Request, name string) {
	sess, err := s.sessions.Lookup(r.Context(), name)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	targetURL := sess.DebugURL()
	if targetURL == "" {
		http.Error(w, "Session does not expose a debug endpoint", http.StatusConflict)
		return
	}

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer clientConn.Close()

	log := s.log.With().Str("session", name).Logger()
	log.Info().Msg("Debug client connected")

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	targetConn, _, err := websocket.DefaultDialer.DialContext(ctx, targetURL, nil)
	if err != nil {
		log.Error().Err(err).Str("target", targetURL).Msg("Failed to connect to browser")
		clientConn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("Error connecting: %v", err)))
		return
	}
	defer targetConn.Close()

	errChan := make(chan error, 2)
	go func() {
		errChan <- relay(clientConn, targetConn)
	}()
	go func() {
		errChan <- relay(targetConn, clientConn)
	}()

	err = <-errChan
	if err != nil && !errors.Is(err, io.EOF) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Debug().Err(err).Msg("Proxy closed with error")
	}
	log.Info().Msg("Debug client disconnected")
}

func relay(src, dst *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return err
		}
	}
}
