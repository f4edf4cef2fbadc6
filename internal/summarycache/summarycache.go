// Package summarycache stores computed summaries keyed by document content so
// a summary is only computed once per distinct text.
package summarycache

import (
	"context"
	"time"
)

// Entry is one memoized summary.
type Entry struct {
	DocRef    string    `json:"doc_ref"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a summary memo. Implementations are safe for concurrent use and
// treat backend failures as misses.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Put(ctx context.Context, key string, entry Entry)
}

// Cache modes accepted by New.
const (
	ModeOff     = "off"
	ModeMemory  = "memory"
	ModeSharded = "sharded"
	ModeRedis   = "redis"
)

// Options selects and sizes a Store.
type Options struct {
	Mode          string
	Size          int
	TTL           time.Duration
	Shards        int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// New returns the Store for opts.Mode, or nil when memoization is off.
func New(opts Options) Store {
	switch opts.Mode {
	case ModeOff:
		return nil
	case ModeSharded:
		return NewShardedMemoryCache(opts.Size, opts.TTL, opts.Shards)
	case ModeRedis:
		if c := NewRedisCache(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL, opts.RedisPrefix); c != nil {
			return c
		}
		return nil
	default:
		if opts.Size <= 0 {
			return nil
		}
		return NewMemoryCache(opts.Size, opts.TTL)
	}
}
