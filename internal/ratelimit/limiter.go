package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an unused client limiter is kept
const idleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client
type Limiter struct {
	clients   map[string]*client
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	perMinute int
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter creates a limiter allowing requestsPerMinute per client with
// bursts of up to burst requests.
func NewLimiter(requestsPerMinute int, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		clients:   make(map[string]*client),
		rate:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		perMinute: requestsPerMinute,
		now:       time.Now,
	}
}

// PerMinute returns the configured sustained rate
func (l *Limiter) PerMinute() int {
	return l.perMinute
}

// get returns the limiter for key and drops clients idle past idleTTL
func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, exists := l.clients[key]
	if !exists {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Allow reports whether key may make a request now
func (l *Limiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Tokens returns the tokens currently available to key
func (l *Limiter) Tokens(key string) float64 {
	return l.get(key).TokensAt(l.now())
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
