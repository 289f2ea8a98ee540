package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// idleAfter is how long an unused client limiter is kept.
const idleAfter = 10 * time.Minute

// Memory is a per-process token bucket per client. Counts are not shared
// between instances.
type Memory struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	clients  map[string]*client
	rejected prometheus.Counter
	now      func() time.Time
	lastGC   time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewMemory creates a limiter refilling limit tokens per window with a burst of limit.
func NewMemory(limit int, window time.Duration, rejected prometheus.Counter) *Memory {
	if window <= 0 {
		window = time.Minute
	}
	m := &Memory{
		burst:    limit,
		clients:  make(map[string]*client),
		rejected: rejected,
		now:      time.Now,
	}
	if limit > 0 {
		m.limit = rate.Every(window / time.Duration(limit))
	}
	return m
}

// Allow takes one token from key's bucket. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	if m.burst <= 0 {
		return true, nil
	}

	m.mu.Lock()
	now := m.now()
	c, ok := m.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(m.limit, m.burst)}
		m.clients[key] = c
	}
	c.seen = now
	m.sweep(now)
	allowed := c.lim.AllowN(now, 1)
	m.mu.Unlock()

	if !allowed && m.rejected != nil {
		m.rejected.Inc()
	}
	return allowed, nil
}

// Len returns the number of tracked clients.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// sweep drops idle clients at most once per idleAfter. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastGC) < idleAfter {
		return
	}
	m.lastGC = now
	for k, c := range m.clients {
		if now.Sub(c.seen) > idleAfter {
			delete(m.clients, k)
		}
	}
}
