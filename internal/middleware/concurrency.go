package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter caps in-flight requests with a weighted semaphore.
// Requests that cannot get a slot within the timeout get a 503.
type ConcurrencyLimiter struct {
	sem      *semaphore.Weighted
	max      int64
	timeout  time.Duration
	active   atomic.Int64
	total    atomic.Int64
	rejected atomic.Int64
}

func NewConcurrencyLimiter(maxConcurrent int, timeout time.Duration) *ConcurrencyLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ConcurrencyLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		timeout: timeout,
	}
}

func (cl *ConcurrencyLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cl.total.Add(1)

		waitCtx, cancel := context.WithTimeout(r.Context(), cl.timeout)
		defer cancel()

		start := time.Now()
		if err := cl.sem.Acquire(waitCtx, 1); err != nil {
			rejected := cl.rejected.Add(1)
			slog.Warn("concurrency limit: wait timeout", "path", r.URL.Path, "waited", time.Since(start), "total_rejected", rejected)
			writeBusy(w)
			return
		}
		active := cl.active.Add(1)
		slog.Debug("concurrency limit: slot acquired", "wait_duration", time.Since(start), "active", active)
		defer func() {
			cl.active.Add(-1)
			cl.sem.Release(1)
		}()

		next.ServeHTTP(w, r)
	})
}

func writeBusy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"error":"server busy, try again later"}`))
}

// LimiterStats is a point-in-time view of a ConcurrencyLimiter.
type LimiterStats struct {
	Max      int64 `json:"max"`
	Active   int64 `json:"active"`
	Total    int64 `json:"total"`
	Rejected int64 `json:"rejected"`
}

func (cl *ConcurrencyLimiter) Stats() LimiterStats {
	return LimiterStats{
		Max:      cl.max,
		Active:   cl.active.Load(),
		Total:    cl.total.Load(),
		Rejected: cl.rejected.Load(),
	}
}
