// Package debug writes a per-run log of disclosure outcomes for offline
// inspection. Unlike the journal it keeps payload text.
package debug

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/middleware"
)

// DefaultBase is where run directories are created.
const DefaultBase = "debug-logs"

// Logger appends one JSON line per outcome to <base>/<timestamp>/outcomes.jsonl.
// A disabled Logger is a no-op.
type Logger struct {
	enabled   bool
	dir       string
	file      *os.File
	mu        sync.Mutex
	startTime time.Time
}

type line struct {
	ElapsedMs int64               `json:"elapsed_ms"`
	TraceID   string              `json:"trace_id,omitempty"`
	Outcome   disclosure.Outcome  `json:"outcome"`
	Stats     disclosure.Snapshot `json:"stats"`
}

// New creates a run directory under base and keeps at most keep runs there.
func New(enabled bool, base string, keep int) *Logger {
	if !enabled {
		return &Logger{}
	}
	if base == "" {
		base = DefaultBase
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	dir := filepath.Join(base, timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("debug log disabled", "dir", dir, "error", err)
		return &Logger{}
	}
	if keep > 0 {
		cleanupOldDirs(base, keep)
	}

	return &Logger{
		enabled:   true,
		dir:       dir,
		startTime: time.Now(),
	}
}

func (l *Logger) Enabled() bool { return l.enabled }

func (l *Logger) Dir() string {
	if !l.enabled {
		return ""
	}
	return l.dir
}

// Path returns the outcomes file of this run.
func (l *Logger) Path() string {
	if !l.enabled {
		return ""
	}
	return filepath.Join(l.dir, "outcomes.jsonl")
}

// Observe implements disclosure.Observer.
func (l *Logger) Observe(ctx context.Context, out disclosure.Outcome, snap disclosure.Snapshot) {
	if !l.enabled {
		return
	}
	rec := line{
		ElapsedMs: time.Since(l.startTime).Milliseconds(),
		Outcome:   out,
		Stats:     snap,
		TraceID:   middleware.GetTraceID(ctx),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			slog.Warn("debug log open failed", "error", err)
			return
		}
		l.file = f
	}
	data = append(data, '\n')
	l.file.Write(data)
}

func (l *Logger) Close() {
	if !l.enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func cleanupOldDirs(basePath string, maxKeep int) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}

	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(dirs) <= maxKeep {
		return
	}

	// Newest first; everything from maxKeep on is removed.
	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name() > dirs[j].Name()
	})
	for i := maxKeep; i < len(dirs); i++ {
		os.RemoveAll(filepath.Join(basePath, dirs[i].Name()))
	}
}
