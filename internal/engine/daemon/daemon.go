// Package daemon runs the engine as a child process that exchanges
// newline-delimited JSON envelopes over stdin and stdout. Every action tag,
// including the advanced set, is passed through untouched.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
)

const (
	defaultReadyTimeout   = 30 * time.Second
	defaultCommandTimeout = 60 * time.Second
	closeTimeout          = 5 * time.Second

	// screenshots come back inline, so lines can be large
	maxLineSize = 10 * 1024 * 1024
)

// Config configures the child process
type Config struct {
	Command        []string
	Env            []string
	ReadyTimeout   time.Duration
	CommandTimeout time.Duration
}

// Launcher starts one child process per session
type Launcher struct {
	cfg Config
	log zerolog.Logger
}

// NewLauncher creates a daemon launcher
func NewLauncher(cfg Config, log zerolog.Logger) *Launcher {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	return &Launcher{cfg: cfg, log: log.With().Str("engine", "daemon").Logger()}
}

// Launch starts the process and sends it a launch envelope
func (l *Launcher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(l.cfg.Command) == 0 {
		return nil, fmt.Errorf("daemon command is not configured")
	}

	cmd := exec.Command(l.cfg.Command[0], l.cfg.Command[1:]...)
	cmd.Env = append(os.Environ(), l.cfg.Env...)
	cmd.Env = append(cmd.Env, "AGENT_BROWSER_SESSION="+opts.Name)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe failed: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe failed: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe failed: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine process: %w", err)
	}

	conn := &Conn{
		name:           opts.Name,
		cmd:            cmd,
		stdin:          stdin,
		pending:        make(map[string]chan command.Result),
		exited:         make(chan struct{}),
		commandTimeout: l.cfg.CommandTimeout,
		log:            l.log.With().Str("session", opts.Name).Int("pid", cmd.Process.Pid).Logger(),
	}

	readDone := make(chan struct{})
	go conn.readResults(stdout, readDone)
	go conn.readLogs(stderr)
	go conn.wait(readDone)

	lctx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	res, err := conn.Dispatch(lctx, command.New(command.Launch{
		Headless: opts.Headless,
		Viewport: command.Viewport{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	}))
	if err == nil && !res.Success {
		err = fmt.Errorf("engine refused launch: %s", res.Error)
	}
	if err != nil {
		conn.kill()
		return nil, err
	}

	conn.log.Info().Msg("Engine process ready")
	return conn, nil
}

// Conn is a running engine process
type Conn struct {
	name           string
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	commandTimeout time.Duration
	log            zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan command.Result

	exited  chan struct{}
	exitErr error
}

// Dispatch writes env and waits for the result carrying the same id
func (c *Conn) Dispatch(ctx context.Context, env command.Envelope) (command.Result, error) {
	line, err := json.Marshal(env)
	if err != nil {
		return command.Result{}, fmt.Errorf("failed to marshal command: %w", err)
	}

	ch := make(chan command.Result, 1)
	c.mu.Lock()
	c.pending[env.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, env.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	_, err = c.stdin.Write(append(line, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return command.Result{}, fmt.Errorf("failed to send command: %w", err)
	}

	timer := time.NewTimer(c.commandTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-c.exited:
		return command.Result{}, fmt.Errorf("engine process exited: %v", c.exitErr)
	case <-ctx.Done():
		return command.Result{}, ctx.Err()
	case <-timer.C:
		return command.Result{}, fmt.Errorf("%s timed out after %s", env.Action(), c.commandTimeout)
	}
}

// Teardown asks the process to close, then kills it if it lingers
func (c *Conn) Teardown(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	if _, err := c.Dispatch(cctx, command.New(command.Close{})); err != nil {
		c.log.Debug().Err(err).Msg("Close command failed")
	}
	_ = c.stdin.Close()

	select {
	case <-c.exited:
		return nil
	case <-cctx.Done():
		c.kill()
		return fmt.Errorf("engine process did not exit, killed")
	}
}

func (c *Conn) kill() {
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	<-c.exited
}

func (c *Conn) readResults(stdout io.Reader, done chan<- struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		res, err := command.DecodeResult(scanner.Bytes())
		if err != nil {
			c.log.Debug().Str("line", truncate(scanner.Text(), 200)).Msg("Engine output")
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[res.ID]
		c.mu.Unlock()
		if !ok {
			c.log.Warn().Str("id", res.ID).Msg("Result for unknown command")
			continue
		}
		select {
		case ch <- res:
		default:
			c.log.Warn().Str("id", res.ID).Msg("Duplicate result dropped")
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Error().Err(err).Msg("Engine stdout read failed")
	}
}

func (c *Conn) readLogs(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.log.Debug().Str("stderr", scanner.Text()).Msg("Engine log")
	}
}

// wait reaps the process once stdout is drained
func (c *Conn) wait(readDone <-chan struct{}) {
	<-readDone
	c.exitErr = c.cmd.Wait()
	close(c.exited)
	c.log.Info().AnErr("exit", c.exitErr).Msg("Engine process exited")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
