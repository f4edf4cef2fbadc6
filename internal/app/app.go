// Package app assembles a disclosure Engine and its collaborators from a
// Config. Both the server and the replay tool build through it.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"disclosure-api/internal/config"
	"disclosure-api/internal/debug"
	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/metrics"
	"disclosure-api/internal/store"
	"disclosure-api/internal/summarizer"
	"disclosure-api/internal/summarycache"
	"disclosure-api/internal/tokenizer"
)

type App struct {
	Engine  *disclosure.Engine
	Counter tokenizer.Counter
	// MemoStats is nil when summary memoization is off.
	MemoStats *summarycache.Stats
	// Journal is nil when journaling is off.
	Journal store.Journal
	Debug   *debug.Logger

	memo   summarycache.Store
	writer *store.Writer
}

type Options struct {
	// NoJournal skips the journal even when the config enables it.
	NoJournal bool
	// DebugBase overrides the debug log directory.
	DebugBase string
}

func Build(cfg *config.Config, opts Options) (*App, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.TokenCounter), tokenizer.KindBPE) {
		tokenizer.InitRankLoader(cfg.BPERankDir, !cfg.BPEOffline)
	}
	counter, err := tokenizer.New(cfg.TokenCounter, cfg.BPEEncoding, cfg.TokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("token counter: %w", err)
	}

	base, err := summarizer.New(cfg.Summarizer, counter, cfg.SummaryMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarizer: %w", err)
	}

	a := &App{Counter: counter}
	mode := strings.ToLower(strings.TrimSpace(cfg.SummaryCacheMode))
	if memo := summarycache.New(summarycache.Options{
		Mode:          mode,
		Size:          cfg.SummaryCacheSize,
		TTL:           time.Duration(cfg.SummaryCacheTTLSeconds) * time.Second,
		Shards:        cfg.SummaryCacheShards,
		RedisAddr:     cfg.SummaryCacheRedisAddr,
		RedisPassword: cfg.SummaryCacheRedisPass,
		RedisDB:       cfg.SummaryCacheRedisDB,
		RedisPrefix:   cfg.SummaryCacheRedisPrefix,
	}); memo != nil {
		a.memo = memo
		a.MemoStats = summarycache.NewStats()
		base = summarizer.NewMemo(base, summarycache.NewInstrumentedCache(memo, a.MemoStats).SetLogging(cfg.SummaryCacheLog))
		slog.Info("summary memo enabled", "mode", mode, "size", cfg.SummaryCacheSize, "ttl_seconds", cfg.SummaryCacheTTLSeconds)
	}

	cache, err := disclosure.NewCache(summarizer.Timed(base), counter)
	if err != nil {
		return nil, err
	}

	observers := []disclosure.Observer{metrics.Outcomes}
	if !opts.NoJournal {
		journal, err := store.New(store.Options{
			Mode:          cfg.JournalMode,
			Path:          cfg.JournalPath,
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			RedisPrefix:   cfg.JournalRedisPrefix,
			MaxPerContext: cfg.JournalMaxPerContext,
		})
		if err != nil {
			a.closeMemo()
			return nil, fmt.Errorf("journal: %w", err)
		}
		if journal != nil {
			a.Journal = journal
			a.writer = store.NewWriter(journal, cfg.JournalBuffer)
			observers = append(observers, a.writer)
			slog.Info("outcome journal enabled", "mode", cfg.JournalMode)
		}
	}

	a.Debug = debug.New(cfg.DebugEnabled, opts.DebugBase, 10)
	if a.Debug.Enabled() {
		observers = append(observers, a.Debug)
		slog.Info("debug outcome log enabled", "path", a.Debug.Path())
	}

	a.Engine = disclosure.NewEngine(cache, disclosure.NewAccumulator(), observers...)
	return a, nil
}

// Close flushes the journal writer and releases backends.
func (a *App) Close() {
	if a.writer != nil {
		a.writer.Close()
	}
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
	if a.Debug != nil {
		a.Debug.Close()
	}
	a.closeMemo()
}

func (a *App) closeMemo() {
	if c, ok := a.memo.(io.Closer); ok {
		c.Close()
	}
}
