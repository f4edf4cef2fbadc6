// Package api exposes a disclosure Engine over JSON/HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/metrics"
	"disclosure-api/internal/middleware"
	"disclosure-api/internal/store"
)

const (
	maxBodyBytes        = 8 << 20
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

type Options struct {
	// StreamInterval is how often a stream connection polls for a new snapshot.
	StreamInterval time.Duration
	// Limiter, when set, guards every route except the websocket stream.
	Limiter *middleware.ConcurrencyLimiter
}

type Server struct {
	engine         *disclosure.Engine
	journal        store.Journal
	streamInterval time.Duration
	limiter        *middleware.ConcurrencyLimiter
}

// New builds a Server. journal may be nil, in which case the journal route
// answers 404.
func New(engine *disclosure.Engine, journal store.Journal, opts Options) *Server {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = time.Second
	}
	return &Server{
		engine:         engine,
		journal:        journal,
		streamInterval: opts.StreamInterval,
		limiter:        opts.Limiter,
	}
}

// Routes returns the full handler including trace, logging and metrics
// middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /v1/contexts", s.limit(s.handleContexts))
	mux.Handle("POST /v1/contexts/{context}/excerpts", s.limit(s.handleSubmit))
	mux.Handle("GET /v1/contexts/{context}/excerpts/{doc...}", s.limit(s.handleLookup))
	mux.Handle("GET /v1/contexts/{context}/stats", s.limit(s.handleStats))
	mux.Handle("DELETE /v1/contexts/{context}", s.limit(s.handleDrop))
	mux.Handle("GET /v1/contexts/{context}/journal", s.limit(s.handleJournal))
	mux.Handle("GET /v1/contexts/{context}/stream", http.HandlerFunc(s.handleStream))

	return middleware.Chain(middleware.Trace, middleware.Logging, middleware.Metrics)(mux)
}

func (s *Server) limit(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return s.limiter.Limit(h)
}

// Content is a pointer so a missing or null value can be told apart from an
// empty document.
type submitRequest struct {
	DocRef  string  `json:"doc_ref"`
	Content *string `json:"content"`
}

type submitResponse struct {
	Outcome disclosure.Outcome  `json:"outcome"`
	Stats   disclosure.Snapshot `json:"stats"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Content == nil {
		writeEngineError(w, r, fmt.Errorf("%w: content is required", disclosure.ErrInvalidArgument))
		return
	}

	out, snap, err := s.engine.Disclose(r.Context(), r.PathValue("context"), disclosure.Excerpt{
		DocRef:  req.DocRef,
		Content: *req.Content,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	s.updateContextGauge()
	writeJSON(w, http.StatusOK, submitResponse{Outcome: out, Stats: snap})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	cached, ok, err := s.engine.Lookup(r.PathValue("context"), r.PathValue("doc"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "excerpt not cached")
		return
	}
	writeJSON(w, http.StatusOK, cached)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.PathValue("context"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	contextID := r.PathValue("context")
	dropped := s.engine.DropContext(contextID)

	purged := false
	if s.journal != nil && r.URL.Query().Get("journal") == "purge" {
		if err := s.journal.Delete(r.Context(), contextID); err != nil {
			writeEngineError(w, r, err)
			return
		}
		purged = true
	}
	s.updateContextGauge()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"context_id":     contextID,
		"dropped":        dropped,
		"journal_purged": purged,
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, r, http.StatusNotFound, "journal is disabled")
		return
	}
	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxJournalLimit)
	}

	records, err := s.journal.List(r.Context(), r.PathValue("context"), limit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleContexts(w http.ResponseWriter, r *http.Request) {
	ids := s.engine.Contexts()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contexts": ids})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if s.limiter != nil {
		body["limiter"] = s.limiter.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) updateContextGauge() {
	metrics.ContextsActive.Set(float64(len(s.engine.Contexts())))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= 500 {
		middleware.LogWithTrace(r.Context()).Error("request failed", "path", r.URL.Path, "status", status, "error", msg)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors onto status codes.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var se *disclosure.SummarizeError
	switch {
	case errors.Is(err, disclosure.ErrInvalidArgument):
		metrics.ErrorsTotal.WithLabelValues("invalid_argument").Inc()
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		metrics.ErrorsTotal.WithLabelValues("summarizer").Inc()
		writeError(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, disclosure.ErrInvariantViolation):
		metrics.ErrorsTotal.WithLabelValues("invariant").Inc()
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		metrics.ErrorsTotal.WithLabelValues("internal").Inc()
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
