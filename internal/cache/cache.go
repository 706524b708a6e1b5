// Package cache provides an explicit TTL cache for embedding vectors. The
// cache is an instance handed to whichever stage needs it; eviction is an
// explicit call made by the persist stage rather than a hidden background
// sweep.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// EmbeddingCache stores embedding vectors keyed by their source text.
type EmbeddingCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time
}

type entry struct {
	vec       []float32
	expiresAt time.Time
}

// New creates a cache whose entries expire after ttl. A non-positive ttl
// means entries never expire (until an explicit eviction pass).
func New(ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached vector for key, or nil if absent or expired.
func (c *EmbeddingCache) Get(key string) []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		return nil
	}
	return e.vec
}

// Put stores a vector under key.
func (c *EmbeddingCache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	c.entries[key] = entry{vec: vec, expiresAt: exp}
}

// GetOrFill returns the cached vector for key, filling it via fn on a
// miss. Concurrent fills for the same key are coalesced.
func (c *EmbeddingCache) GetOrFill(ctx context.Context, key string, fn func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	if vec := c.Get(key); vec != nil {
		return vec, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if vec := c.Get(key); vec != nil {
			return vec, nil
		}
		vec, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EvictExpired removes expired entries and returns how many were dropped.
func (c *EmbeddingCache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of entries, expired or not.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
