package summarycache

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ShardedMemoryCache spreads keys over independent LRUs to cut lock contention.
type ShardedMemoryCache struct {
	shards []*MemoryCache
}

func NewShardedMemoryCache(maxEntries int, ttl time.Duration, shardCount int) *ShardedMemoryCache {
	if shardCount <= 0 {
		shardCount = 16
	}
	if maxEntries < 0 {
		maxEntries = 0
	}

	perShard := maxEntries / shardCount
	if perShard == 0 && maxEntries > 0 {
		perShard = 1
	}

	shards := make([]*MemoryCache, shardCount)
	for i := range shards {
		shards[i] = NewMemoryCache(perShard, ttl)
	}
	return &ShardedMemoryCache{shards: shards}
}

func (c *ShardedMemoryCache) shard(key string) *MemoryCache {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

func (c *ShardedMemoryCache) Get(ctx context.Context, key string) (Entry, bool) {
	return c.shard(key).Get(ctx, key)
}

func (c *ShardedMemoryCache) Put(ctx context.Context, key string, entry Entry) {
	c.shard(key).Put(ctx, key, entry)
}

func (c *ShardedMemoryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}
