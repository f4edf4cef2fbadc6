package disclosure

import (
	"context"
	"log/slog"
	"sort"
)

// Observer is notified after an outcome has been recorded. Observers must not
// block; they run on the caller's goroutine.
type Observer interface {
	Observe(ctx context.Context, outcome Outcome, snap Snapshot)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, outcome Outcome, snap Snapshot)

func (f ObserverFunc) Observe(ctx context.Context, outcome Outcome, snap Snapshot) {
	f(ctx, outcome, snap)
}

// Engine pairs a Cache with an Accumulator so one call both discloses and
// accounts for an access.
type Engine struct {
	cache     *Cache
	stats     *Accumulator
	observers []Observer
}

func NewEngine(cache *Cache, stats *Accumulator, observers ...Observer) *Engine {
	if stats == nil {
		stats = NewAccumulator()
	}
	return &Engine{cache: cache, stats: stats, observers: observers}
}

func (e *Engine) Cache() *Cache             { return e.cache }
func (e *Engine) Accumulator() *Accumulator { return e.stats }

// Disclose submits excerpt and records the outcome under contextID.
func (e *Engine) Disclose(ctx context.Context, contextID string, excerpt Excerpt) (Outcome, Snapshot, error) {
	out, err := e.cache.Submit(ctx, contextID, excerpt)
	if err != nil {
		return Outcome{}, Snapshot{}, err
	}
	snap, err := e.stats.Record(contextID, out)
	if err != nil {
		return Outcome{}, Snapshot{}, err
	}
	for _, o := range e.observers {
		o.Observe(ctx, out, snap)
	}
	return out, snap, nil
}

func (e *Engine) Lookup(contextID, docRef string) (CachedExcerpt, bool, error) {
	return e.cache.Lookup(contextID, docRef)
}

func (e *Engine) Snapshot(contextID string) (Snapshot, error) {
	return e.stats.Snapshot(contextID)
}

// DropContext discards the entries and counters of contextID.
func (e *Engine) DropContext(contextID string) bool {
	droppedEntries := e.cache.Drop(contextID)
	droppedStats := e.stats.Drop(contextID)
	if droppedEntries || droppedStats {
		slog.Info("disclosure context dropped", "context", contextID)
	}
	return droppedEntries || droppedStats
}

// Contexts lists every context known to the cache or the accumulator.
func (e *Engine) Contexts() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, list := range [][]string{e.cache.Contexts(), e.stats.Contexts()} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
