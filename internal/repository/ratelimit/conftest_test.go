package ratelimit

import (
	"context"
	"sync"
	"time"
)

// mockStore is an in-memory counter store with optional hooks.
type mockStore struct {
	mu       sync.Mutex
	counts   map[string]int64
	ttls     map[string]time.Duration
	incrFn   func(ctx context.Context, key string, val int64) (int64, error)
	expireFn func(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

func newMockStore() *mockStore {
	return &mockStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, val)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] += val
	return m.counts[key], nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if m.expireFn != nil {
		return m.expireFn(ctx, key, ttl, nx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ttls[key]; ok && nx {
		return nil
	}
	m.ttls[key] = ttl
	return nil
}
