package main

import (
	"context"
	"log/slog"
	"time"

	"disclosure-api/internal/app"
	"disclosure-api/internal/metrics"
	"disclosure-api/internal/tokenizer"
)

// startStatsLoop periodically refreshes the context gauge and logs memo and
// token counter effectiveness until ctx is done.
func startStatsLoop(ctx context.Context, a *app.App, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attrs := collectStats(a)
			metrics.ContextsActive.Set(float64(attrs.contexts))
			slog.Info("disclosure stats",
				"contexts", attrs.contexts,
				"memo_hits", attrs.memoHits,
				"memo_misses", attrs.memoMisses,
				"memo_hit_rate", attrs.memoHitRate,
				"token_cache_hits", attrs.tokenHits,
				"token_cache_misses", attrs.tokenMisses,
			)
		}
	}
}

type statsLine struct {
	contexts    int
	memoHits    uint64
	memoMisses  uint64
	memoHitRate float64
	tokenHits   int64
	tokenMisses int64
}

func collectStats(a *app.App) statsLine {
	line := statsLine{contexts: len(a.Engine.Contexts())}
	if a.MemoStats != nil {
		line.memoHits, line.memoMisses = a.MemoStats.Snapshot()
		line.memoHitRate = a.MemoStats.HitRate()
	}
	if cached, ok := a.Counter.(*tokenizer.Cached); ok {
		line.tokenHits, line.tokenMisses = cached.Stats()
	}
	return line
}
