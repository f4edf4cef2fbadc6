package summarycache

import (
	"context"
	"log/slog"

	"disclosure-api/internal/metrics"
)

// InstrumentedCache counts hits and misses of another Store.
type InstrumentedCache struct {
	cache   Store
	stats   *Stats
	logging bool
}

func NewInstrumentedCache(cache Store, stats *Stats) *InstrumentedCache {
	if cache == nil {
		return nil
	}
	return &InstrumentedCache{
		cache: cache,
		stats: stats,
	}
}

// SetLogging turns per-lookup debug logs on or off.
func (c *InstrumentedCache) SetLogging(on bool) *InstrumentedCache {
	if c != nil {
		c.logging = on
	}
	return c
}

func (c *InstrumentedCache) Get(ctx context.Context, key string) (Entry, bool) {
	if c == nil || c.cache == nil {
		return Entry{}, false
	}
	entry, ok := c.cache.Get(ctx, key)
	if ok {
		c.stats.Hit()
		metrics.CacheOperations.WithLabelValues("summary", "hit").Inc()
		if c.logging {
			slog.Debug("summary cache hit", "key", key)
		}
		return entry, true
	}
	c.stats.Miss()
	metrics.CacheOperations.WithLabelValues("summary", "miss").Inc()
	if c.logging {
		slog.Debug("summary cache miss", "key", key)
	}
	return Entry{}, false
}

func (c *InstrumentedCache) Put(ctx context.Context, key string, entry Entry) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Put(ctx, key, entry)
}
