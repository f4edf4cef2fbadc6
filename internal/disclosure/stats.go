package disclosure

import (
	"fmt"
	"sort"
	"sync"
)

// Accumulator keeps running per-context totals of recorded outcomes.
type Accumulator struct {
	mu       sync.RWMutex
	counters map[string]*counters
}

type counters struct {
	mu           sync.Mutex
	requests     int
	hits         int
	tokensBefore int
	tokensAfter  int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{counters: make(map[string]*counters)}
}

// Record folds outcome into the totals of contextID and returns the totals
// after the update.
func (a *Accumulator) Record(contextID string, outcome Outcome) (Snapshot, error) {
	if contextID == "" {
		return Snapshot{}, fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	if err := outcome.Validate(); err != nil {
		return Snapshot{}, err
	}

	c := a.get(contextID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := c.requests + 1
	hits := c.hits
	if outcome.Hit {
		hits++
	}
	snap, err := NewSnapshot(contextID, requests, hits, c.tokensBefore+outcome.TokensBefore, c.tokensAfter+outcome.TokensAfter)
	if err != nil {
		return Snapshot{}, err
	}
	c.requests = snap.Requests
	c.hits = snap.Hits
	c.tokensBefore = snap.TokensBefore
	c.tokensAfter = snap.TokensAfter
	return snap, nil
}

// Snapshot reads the totals of contextID. Unknown contexts read as all-zero.
func (a *Accumulator) Snapshot(contextID string) (Snapshot, error) {
	if contextID == "" {
		return Snapshot{}, fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	c := a.get(contextID, false)
	if c == nil {
		return NewSnapshot(contextID, 0, 0, 0, 0)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewSnapshot(contextID, c.requests, c.hits, c.tokensBefore, c.tokensAfter)
}

// Drop forgets the counters of contextID.
func (a *Accumulator) Drop(contextID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.counters[contextID]; !ok {
		return false
	}
	delete(a.counters, contextID)
	return true
}

// Contexts lists context ids with counters, sorted.
func (a *Accumulator) Contexts() []string {
	a.mu.RLock()
	ids := make([]string, 0, len(a.counters))
	for id := range a.counters {
		ids = append(ids, id)
	}
	a.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (a *Accumulator) get(contextID string, create bool) *counters {
	a.mu.RLock()
	c, ok := a.counters[contextID]
	a.mu.RUnlock()
	if ok || !create {
		return c
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok = a.counters[contextID]; ok {
		return c
	}
	c = &counters{}
	a.counters[contextID] = c
	return c
}
