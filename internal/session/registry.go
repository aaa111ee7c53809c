package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

const teardownTimeout = 30 * time.Second

// Options configures a Registry
type Options struct {
	MaxConcurrent int
	IdleTimeout   time.Duration
	Headless      bool
	Viewport      engine.Viewport

	// Now overrides the clock, for tests
	Now func() time.Time
}

// Registry owns every live session. It is the single admission point: the
// name claim and the capacity slot are taken together under mu, while the
// engine launch itself runs outside the lock.
type Registry struct {
	launcher engine.Launcher
	opts     Options
	slots    *semaphore.Weighted
	clock    *clock
	log      zerolog.Logger

	mu       sync.Mutex
	entries  map[string]*entry
	draining bool
}

// entry is a name reservation. ready closes when the launch finishes
// (sess or err is set); gone closes once the name is free again.
type entry struct {
	ready chan struct{}
	gone  chan struct{}
	sess  *Session
	err   error
}

func (e *entry) settled() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// NewRegistry creates a registry that launches sessions with launcher
func NewRegistry(launcher engine.Launcher, opts Options, log zerolog.Logger) *Registry {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Registry{
		launcher: launcher,
		opts:     opts,
		slots:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		clock:    newClock(opts.Now),
		log:      log.With().Str("component", "registry").Logger(),
		entries:  make(map[string]*entry),
	}
}

// Now returns the registry's clock reading
func (r *Registry) Now() time.Time {
	return r.clock.now()
}

// MaxConcurrent returns the admission cap
func (r *Registry) MaxConcurrent() int {
	return r.opts.MaxConcurrent
}

// Resolve returns the live session called name, launching one if needed.
// Concurrent callers for the same new name share a single launch.
func (r *Registry) Resolve(ctx context.Context, name string) (*Session, error) {
	for {
		r.mu.Lock()
		if r.draining {
			r.mu.Unlock()
			return nil, ErrShuttingDown
		}

		e, exists := r.entries[name]
		if !exists {
			if !r.slots.TryAcquire(1) {
				r.mu.Unlock()
				return nil, &CapacityError{Max: r.opts.MaxConcurrent}
			}
			e = &entry{ready: make(chan struct{}), gone: make(chan struct{})}
			r.entries[name] = e
			r.mu.Unlock()
			return r.launch(ctx, name, e)
		}
		r.mu.Unlock()

		if err := wait(ctx, e.ready); err != nil {
			return nil, err
		}
		if e.err != nil {
			return nil, e.err
		}
		if e.sess.closing.Load() {
			// Torn down under us; wait for the name to free up and create afresh.
			if err := wait(ctx, e.gone); err != nil {
				return nil, err
			}
			continue
		}

		e.sess.touch()
		return e.sess, nil
	}
}

func (r *Registry) launch(ctx context.Context, name string, e *entry) (*Session, error) {
	started := time.Now()
	handle, err := r.launcher.Launch(ctx, engine.LaunchOptions{
		Name:     name,
		Headless: r.opts.Headless,
		Viewport: r.opts.Viewport,
	})
	if err != nil {
		e.err = &LaunchError{Name: name, Err: err}
		r.remove(name, e)
		close(e.ready)
		close(e.gone)
		r.log.Error().Err(err).Str("session", name).Msg("Browser launch failed")
		return nil, e.err
	}

	e.sess = newSession(name, handle, r.clock, r.log)
	close(e.ready)

	r.log.Info().
		Str("session", name).
		Dur("launch", time.Since(started)).
		Msg("Session created")
	return e.sess, nil
}

// With resolves name and runs fn with exclusive access to it. A session
// torn down between resolve and dispatch is recreated once.
func (r *Registry) With(ctx context.Context, name string, fn func(*Conn) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var sess *Session
		sess, err = r.Resolve(ctx, name)
		if err != nil {
			return err
		}
		err = sess.Do(ctx, fn)
		if err != ErrSessionClosed {
			return err
		}
	}
	return err
}

// Lookup returns the live session called name without creating one
func (r *Registry) Lookup(ctx context.Context, name string) (*Session, error) {
	_, sess, err := r.lookup(ctx, name)
	return sess, err
}

func (r *Registry) lookup(ctx context.Context, name string) (*entry, *Session, error) {
	r.mu.Lock()
	e, exists := r.entries[name]
	r.mu.Unlock()
	if !exists {
		return nil, nil, ErrNotFound
	}

	if err := wait(ctx, e.ready); err != nil {
		return nil, nil, err
	}
	if e.err != nil || e.sess.closing.Load() {
		return nil, nil, ErrNotFound
	}
	return e, e.sess, nil
}

// Has reports whether name is registered, including pending launches
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[name]
	return exists
}

// Len returns the number of occupied slots
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// List returns every live session, sorted by name
func (r *Registry) List() []models.SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.entries))
	for _, e := range r.entries {
		if e.settled() && e.err == nil && !e.sess.closing.Load() {
			sessions = append(sessions, e.sess)
		}
	}
	r.mu.Unlock()

	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Close tears down the session called name and frees its slot. Teardown
// failures are logged; the entry is removed regardless.
func (r *Registry) Close(ctx context.Context, name string) error {
	return r.CloseWith(ctx, name, nil)
}

// CloseWith is Close with a final callback. fn runs under the same
// mutation right as the teardown, so no other operation can reach the
// engine after it. fn's error is returned once the session is gone.
func (r *Registry) CloseWith(ctx context.Context, name string, fn func(*Conn) error) error {
	e, sess, err := r.lookup(ctx, name)
	if err != nil {
		return err
	}

	if !sess.closing.CompareAndSwap(false, true) {
		_ = wait(ctx, e.gone)
		return ErrNotFound
	}

	sess.mu.Lock()
	var fnErr error
	if fn != nil {
		sess.touch()
		fnErr = fn(&Conn{s: sess})
	}
	r.destroy(ctx, name, e, "closed")
	return fnErr
}

// ReapIdle tears down every session idle for longer than the configured
// timeout at now. Sessions with an operation in flight are skipped.
func (r *Registry) ReapIdle(ctx context.Context, now time.Time) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}

	type candidate struct {
		name string
		e    *entry
	}

	r.mu.Lock()
	var candidates []candidate
	for name, e := range r.entries {
		if !e.settled() || e.err != nil {
			continue
		}
		if e.sess.idleSince(now) > r.opts.IdleTimeout {
			candidates = append(candidates, candidate{name, e})
		}
	}
	r.mu.Unlock()

	reaped := 0
	for _, c := range candidates {
		sess := c.e.sess
		if !sess.mu.TryLock() {
			continue
		}
		// Recheck under the mutation right; an operation may have just finished.
		if sess.closed || sess.idleSince(now) <= r.opts.IdleTimeout || !sess.closing.CompareAndSwap(false, true) {
			sess.mu.Unlock()
			continue
		}

		r.log.Info().
			Str("session", c.name).
			Dur("idle", sess.idleSince(now)).
			Msg("Reaping idle session")
		r.destroy(ctx, c.name, c.e, "reaped")
		reaped++
	}
	return reaped
}

// DrainAll tears down every session and refuses further creation. One
// failing teardown does not stop the others.
func (r *Registry) DrainAll(ctx context.Context) int {
	r.mu.Lock()
	r.draining = true
	pending := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		pending[name] = e
	}
	r.mu.Unlock()

	var (
		g       errgroup.Group
		mu      sync.Mutex
		drained int
	)
	for name, e := range pending {
		name, e := name, e
		g.Go(func() error {
			<-e.ready
			if e.err != nil {
				return nil
			}
			sess := e.sess
			if !sess.closing.CompareAndSwap(false, true) {
				<-e.gone
				return nil
			}
			sess.mu.Lock()
			r.destroy(ctx, name, e, "drained")

			mu.Lock()
			drained++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.log.Info().Int("sessions", drained).Msg("Registry drained")
	return drained
}

// destroy tears down e's session and frees the name. The caller must hold
// the session's mutation right and have set closing; destroy releases it.
func (r *Registry) destroy(ctx context.Context, name string, e *entry, reason string) {
	sess := e.sess
	sess.closed = true
	r.teardown(ctx, sess, reason)
	sess.mu.Unlock()

	r.remove(name, e)
	close(e.gone)
}

// teardown is best-effort: its error is logged and never propagated.
func (r *Registry) teardown(ctx context.Context, sess *Session, reason string) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if err := sess.handle.Teardown(tctx); err != nil {
		sess.log.Warn().Err(err).Str("reason", reason).Msg("Teardown failed, removing session anyway")
		return
	}
	sess.log.Info().Str("reason", reason).Msg("Session torn down")
}

// remove frees the name and its slot together, so admission never sees a
// free name whose slot is still held.
func (r *Registry) remove(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[name] == e {
		delete(r.entries, name)
	}
	r.slots.Release(1)
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
