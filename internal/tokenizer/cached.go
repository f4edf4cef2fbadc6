package tokenizer

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes another counter by content hash.
type Cached struct {
	inner   Counter
	entries *lru.Cache[uint64, int]

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCached(inner Counter, size int) *Cached {
	if size <= 0 {
		size = 4096
	}
	entries, _ := lru.New[uint64, int](size)
	return &Cached{inner: inner, entries: entries}
}

func (c *Cached) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	key := xxhash.Sum64String(text)
	if n, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return n
	}
	c.misses.Add(1)
	n := c.inner.CountTokens(text)
	c.entries.Add(key, n)
	return n
}

// Stats returns hit and miss counts since construction.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
