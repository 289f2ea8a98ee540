// Package ratelimit counts requests per client and rejects those over the limit.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/postfilter/internal/domain"
)

// store is the consumer interface for window counters (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Window is a fixed-window counter kept in the shared store, so every
// instance behind a balancer sees the same counts.
type Window struct {
	store    store
	limit    int64
	window   time.Duration
	rejected prometheus.Counter
	now      func() time.Time
}

// NewWindow creates a fixed-window limiter allowing limit requests per window.
// rejected counts denials; nil disables it.
func NewWindow(s store, limit int, window time.Duration, rejected prometheus.Counter) *Window {
	if window <= 0 {
		window = time.Minute
	}
	return &Window{
		store:    s,
		limit:    int64(limit),
		window:   window,
		rejected: rejected,
		now:      time.Now,
	}
}

// Allow counts one request for key and reports whether it fits the current window.
func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	if w.limit <= 0 {
		return true, nil
	}

	k := w.key(key)
	n, err := w.store.IncrBy(ctx, k, 1)
	if err != nil {
		return false, fmt.Errorf("ratelimit INCRBY %s: %w", k, err)
	}

	// TTL is set once per window; later increments must not extend it.
	if err := w.store.Expire(ctx, k, w.window, true); err != nil {
		return false, fmt.Errorf("ratelimit EXPIRE %s: %w", k, err)
	}

	if n > w.limit {
		if w.rejected != nil {
			w.rejected.Inc()
		}
		return false, nil
	}
	return true, nil
}

func (w *Window) key(client string) string {
	slot := w.now().UnixNano() / int64(w.window)
	return domain.KeyPrefix + "ratelimit:" + client + ":" + strconv.FormatInt(slot, 10)
}
