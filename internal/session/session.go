package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

// Session is one live engine instance bound to a caller-chosen name
type Session struct {
	name      string
	handle    engine.Handle
	createdAt time.Time
	clock     *clock
	log       zerolog.Logger

	// mu is the mutation right. Every engine dispatch and the final
	// teardown happen while it is held.
	mu     sync.Mutex
	closed bool

	closing atomic.Bool
	last    atomic.Int64 // nanoseconds since clock.epoch

	stateMu       sync.Mutex
	recording     models.RecordingState
	recordingPath string
}

func newSession(name string, handle engine.Handle, c *clock, log zerolog.Logger) *Session {
	now := c.now()
	s := &Session{
		name:      name,
		handle:    handle,
		createdAt: now,
		clock:     c,
		log:       log.With().Str("session", name).Logger(),
		recording: models.RecordingIdle,
	}
	s.last.Store(c.offset(now))
	return s
}

// Name returns the session name
func (s *Session) Name() string {
	return s.name
}

// LastActivity returns the latest activity timestamp
func (s *Session) LastActivity() time.Time {
	return s.clock.at(s.last.Load())
}

// touch advances the activity timestamp; it never moves backwards
func (s *Session) touch() {
	now := s.clock.offset(s.clock.now())
	for {
		prev := s.last.Load()
		if now <= prev || s.last.CompareAndSwap(prev, now) {
			return
		}
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(s.LastActivity())
}

// DebugURL returns the CDP endpoint of the engine, if it exposes one
func (s *Session) DebugURL() string {
	if d, ok := s.handle.(engine.DebugEndpoint); ok {
		return d.DebugURL()
	}
	return ""
}

// Info returns a snapshot of the session's public state
func (s *Session) Info() models.SessionInfo {
	s.stateMu.Lock()
	rec, path := s.recording, s.recordingPath
	s.stateMu.Unlock()

	return models.SessionInfo{
		Name:          s.name,
		CreatedAt:     s.createdAt,
		LastActivity:  s.LastActivity(),
		Recording:     rec,
		RecordingPath: path,
		DebugURL:      s.DebugURL(),
	}
}

// Do runs fn with exclusive access to the engine. It returns
// ErrSessionClosed if the session was torn down before fn could run.
func (s *Session) Do(ctx context.Context, fn func(*Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.touch()
	defer s.touch()
	return fn(&Conn{s: s})
}

// Conn is the exclusive view of a session handed to Do callbacks. It must
// not be retained after the callback returns.
type Conn struct {
	s *Session
}

// Name returns the session name
func (c *Conn) Name() string {
	return c.s.name
}

// Dispatch sends cmd to the engine. Transport failures are folded into an
// unsuccessful result so callers see a single failure shape.
func (c *Conn) Dispatch(ctx context.Context, cmd command.Command) command.Result {
	env := command.New(cmd)
	c.s.touch()

	res, err := c.s.handle.Dispatch(ctx, env)
	c.s.touch()
	if err != nil {
		c.s.log.Error().Err(err).Str("action", string(env.Action())).Msg("Engine dispatch failed")
		res = command.Failed("%s failed: %v", env.Action(), err)
	}
	res.ID = env.ID
	return res
}

// Recording reports the current recording state and artifact path
func (c *Conn) Recording() (models.RecordingState, string) {
	c.s.stateMu.Lock()
	defer c.s.stateMu.Unlock()
	return c.s.recording, c.s.recordingPath
}

// StartRecording marks the session as recording to path
func (c *Conn) StartRecording(path string) {
	c.s.stateMu.Lock()
	defer c.s.stateMu.Unlock()
	c.s.recording = models.RecordingActive
	c.s.recordingPath = path
}

// StopRecording returns the session to idle and reports the artifact path
func (c *Conn) StopRecording() string {
	c.s.stateMu.Lock()
	defer c.s.stateMu.Unlock()
	path := c.s.recordingPath
	c.s.recording = models.RecordingIdle
	c.s.recordingPath = ""
	return path
}

// clock converts wall readings to monotonic offsets from a fixed epoch so
// activity timestamps can live in an atomic.
type clock struct {
	now   func() time.Time
	epoch time.Time
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now, epoch: now()}
}

func (c *clock) offset(t time.Time) int64 {
	return int64(t.Sub(c.epoch))
}

func (c *clock) at(offset int64) time.Time {
	return c.epoch.Add(time.Duration(offset))
}
