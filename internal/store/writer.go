package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"disclosure-api/internal/disclosure"
)

// Writer appends outcomes to a Journal from a background goroutine so the
// disclosure path never waits on storage. Records are dropped with a warning
// when the buffer is full or while the backend's breaker is open.
type Writer struct {
	journal Journal
	breaker *gobreaker.CircuitBreaker
	queue   chan Record
	wg      sync.WaitGroup
	once    sync.Once

	// mu guards closed; sends hold the read lock, Close the write lock.
	mu     sync.RWMutex
	closed bool
}

func NewWriter(journal Journal, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 256
	}
	w := &Writer{
		journal: journal,
		breaker: newJournalBreaker(),
		queue:   make(chan Record, buffer),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		_, err := w.breaker.Execute(func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return nil, w.journal.Append(ctx, rec)
		})
		if err != nil {
			slog.Warn("journal append failed", "context", rec.ContextID, "doc", rec.DocRef, "error", err)
		}
	}
}

// newJournalBreaker trips after half of at least five appends in a minute
// fail, then half-opens after 30s.
func newJournalBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("journal breaker state changed", "from", from.String(), "to", to.String())
		},
	})
}

// Observe implements disclosure.Observer. Records observed after Close are
// dropped.
func (w *Writer) Observe(_ context.Context, out disclosure.Outcome, snap disclosure.Snapshot) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		slog.Debug("journal writer closed, dropping record", "context", out.ContextID, "doc", out.DocRef)
		return
	}
	select {
	case w.queue <- NewRecord(out, snap):
	default:
		slog.Warn("journal queue full, dropping record", "context", out.ContextID, "doc", out.DocRef)
	}
}

// Close drains pending records. It does not close the journal.
func (w *Writer) Close() {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
		w.wg.Wait()
	})
}
