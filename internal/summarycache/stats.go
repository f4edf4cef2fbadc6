package summarycache

import "sync/atomic"

type Stats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Hit() {
	if s == nil {
		return
	}
	s.hits.Add(1)
}

func (s *Stats) Miss() {
	if s == nil {
		return
	}
	s.misses.Add(1)
}

func (s *Stats) Snapshot() (hits, misses uint64) {
	if s == nil {
		return 0, 0
	}
	return s.hits.Load(), s.misses.Load()
}

// HitRate is 0 before the first lookup.
func (s *Stats) HitRate() float64 {
	hits, misses := s.Snapshot()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
