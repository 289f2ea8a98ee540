// Package querycache is the single-slot store for the last compiled filter query.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/db"
	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// DefaultKey is the slot key used when none is configured.
const DefaultKey = domain.KeyPrefix + "filter_query"

// DefaultTTL is how long a slot survives without being overwritten.
const DefaultTTL = 24 * time.Hour

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache keeps one compiled query under a fixed key. Last writer wins.
type Cache struct {
	store  store
	key    string
	ttl    time.Duration
	total  *prometheus.CounterVec
	logger *zap.Logger
}

// New creates a cache over s. An empty key or non-positive ttl selects the defaults.
// total is a counter vec with labels "op" and "result", passed explicitly; nil disables it.
func New(s store, key string, ttl time.Duration, total *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, key: key, ttl: ttl, total: total, logger: logger}
}

// Key returns the slot key.
func (c *Cache) Key() string { return c.key }

// Put overwrites the slot and refreshes its TTL. Empty queries are never stored.
func (c *Cache) Put(ctx context.Context, q query.Compiled) error {
	if q.IsEmpty() {
		return nil
	}

	data, err := json.Marshal(q)
	if err != nil {
		c.inc("put", "error")
		return fmt.Errorf("marshal compiled query: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, c.key, data, c.ttl); err != nil {
		c.inc("put", "error")
		return fmt.Errorf("store compiled query: %w", err)
	}

	c.inc("put", "ok")
	return nil
}

// Get returns the cached query, or ok=false when the slot is absent, expired or unreadable.
func (c *Cache) Get(ctx context.Context) (query.Compiled, bool) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.inc("get", "miss")
		} else {
			c.inc("get", "error")
			c.logger.Warn("Failed to read query cache", zap.String("key", c.key), zap.Error(err))
		}
		return query.Compiled{}, false
	}

	var q query.Compiled
	if err := json.Unmarshal(data, &q); err != nil {
		c.inc("get", "error")
		c.logger.Warn("Failed to parse query cache", zap.String("key", c.key), zap.Error(err))
		return query.Compiled{}, false
	}
	if q.IsEmpty() {
		c.inc("get", "miss")
		return query.Compiled{}, false
	}

	c.inc("get", "hit")
	return q, true
}

// Clear removes the slot. Clearing an absent slot is not an error.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Del(ctx, c.key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.inc("clear", "error")
		return fmt.Errorf("clear compiled query: %w", err)
	}
	c.inc("clear", "ok")
	return nil
}

func (c *Cache) inc(op, result string) {
	if c.total != nil {
		c.total.WithLabelValues(op, result).Inc()
	}
}
