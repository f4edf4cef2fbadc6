// Package store keeps a reporting journal of disclosure outcomes. It never
// holds document contents, so nothing here can rebuild the cache.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"disclosure-api/internal/disclosure"
)

// Record is one journaled outcome together with the context totals after it.
type Record struct {
	ID           int64     `json:"id"`
	ContextID    string    `json:"context_id"`
	DocRef       string    `json:"doc_ref"`
	Hit          bool      `json:"hit"`
	PayloadType  string    `json:"payload_type"`
	PayloadBytes int       `json:"payload_bytes"`
	TokensBefore int       `json:"tokens_before"`
	TokensAfter  int       `json:"tokens_after"`
	Requests     int       `json:"requests"`
	Hits         int       `json:"hits"`
	TotalBefore  int       `json:"total_tokens_before"`
	TotalAfter   int       `json:"total_tokens_after"`
	HitRate      float64   `json:"hit_rate"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewRecord flattens an outcome and its snapshot.
func NewRecord(out disclosure.Outcome, snap disclosure.Snapshot) Record {
	return Record{
		ContextID:    out.ContextID,
		DocRef:       out.DocRef,
		Hit:          out.Hit,
		PayloadType:  out.PayloadType.String(),
		PayloadBytes: len(out.Payload),
		TokensBefore: out.TokensBefore,
		TokensAfter:  out.TokensAfter,
		Requests:     snap.Requests,
		Hits:         snap.Hits,
		TotalBefore:  snap.TokensBefore,
		TotalAfter:   snap.TokensAfter,
		HitRate:      snap.HitRate,
		CreatedAt:    time.Now().UTC(),
	}
}

type Journal interface {
	Append(ctx context.Context, rec Record) error
	// List returns up to limit most recent records of a context, oldest first.
	List(ctx context.Context, contextID string, limit int) ([]Record, error)
	Delete(ctx context.Context, contextID string) error
	Close() error
}

// Journal modes accepted by New.
const (
	ModeOff    = "off"
	ModeSQLite = "sqlite"
	ModeRedis  = "redis"
)

type Options struct {
	Mode          string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	MaxPerContext int
}

// New opens the journal for opts.Mode; it returns nil, nil when journaling
// is off.
func New(opts Options) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeOff:
		return nil, nil
	case ModeSQLite:
		j, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return j, nil
	case ModeRedis:
		j, err := dialRedisJournal(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix, opts.MaxPerContext)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("unknown journal mode %q", opts.Mode)
}
