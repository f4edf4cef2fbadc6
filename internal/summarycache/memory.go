package summarycache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded LRU with optional per-entry TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, Entry]
}

// NewMemoryCache returns a cache holding at most maxEntries; maxEntries <= 0
// yields a cache that never stores anything.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		return &MemoryCache{}
	}
	return &MemoryCache{lru: expirable.NewLRU[string, Entry](maxEntries, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	if c == nil || c.lru == nil {
		return Entry{}, false
	}
	return c.lru.Get(key)
}

func (c *MemoryCache) Put(_ context.Context, key string, entry Entry) {
	if c == nil || c.lru == nil {
		return
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	c.lru.Add(key, entry)
}

func (c *MemoryCache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
