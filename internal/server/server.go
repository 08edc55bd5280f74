// Package server implements the HTTP server that exposes the retrieval
// engine as a REST API: search, bias analysis, reload, stats, history, and
// the usual health/readiness/metrics endpoints.
// The server is started by the `recall serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parityworks/recall/internal/history"
	"github.com/parityworks/recall/internal/logging"
	"github.com/parityworks/recall/internal/retrieval"
)

// defaultSearchTimeout bounds scoring work per request. Long enough for any
// realistic corpus; a request that still overruns gets a partial ranking.
const defaultSearchTimeout = 10 * time.Second

// New constructs a Server from the provided retrieval service and config.
func New(svc *retrieval.Service, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: retrieval service must not be nil")
	}
	return newServer(svc, cfg)
}

// newServer is the injectable constructor shared with tests.
func newServer(eng engine, cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine:  eng,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		s.log.Warn("server: RECALL_API_KEY not set — API authentication disabled")
	}

	mux := http.NewServeMux()

	// Rate-limited, authenticated API routes. Reload is limited too: it is
	// the most expensive operation the server exposes.
	limited := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}
	open := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, h)
	}

	mux.Handle("POST /api/search", limited("search", s.handleSearch))
	mux.Handle("POST /api/bias", limited("bias", s.handleBias))
	mux.Handle("POST /api/reload", limited("reload", s.handleReload))
	mux.Handle("GET /api/stats", s.instrument("stats", authMiddleware(cfg.APIKey, http.HandlerFunc(s.handleStats))))
	mux.Handle("GET /api/history", s.instrument("history", authMiddleware(cfg.APIKey, http.HandlerFunc(s.handleHistory))))
	mux.Handle("GET /api/health", open("health", s.handleHealth))
	mux.Handle("GET /api/ready", open("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleSearch handles POST /api/search. Parameter problems are clamped by
// the engine and surfaced as notes, so the only client error here is an
// unparsable body or a missing query text.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req retrieval.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SearchTimeout)
	defer cancel()

	start := time.Now()
	resp := s.engine.Search(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if resp.Partial {
		outcome = "partial"
	}
	s.metrics.searchesTotal.WithLabelValues(outcome).Inc()
	s.metrics.searchDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if resp.Metrics.BiasDetected {
		s.metrics.biasDetectedTotal.Inc()
	}

	s.recordSearch(r.Context(), req, resp, elapsed)
	writeJSON(w, http.StatusOK, resp)
}

// recordSearch persists the search to the history store when one is
// configured. History failures are logged, never surfaced to the caller.
func (s *Server) recordSearch(ctx context.Context, req retrieval.Request, resp retrieval.Response, elapsed time.Duration) {
	if s.cfg.History == nil {
		return
	}
	rec := history.SearchRecord{
		Query:          req.Text,
		TopK:           req.TopK,
		ResultCount:    len(resp.Results),
		DiversityScore: resp.Metrics.DiversityScore,
		BiasDetected:   resp.Metrics.BiasDetected,
		Partial:        resp.Partial,
		Duration:       elapsed,
	}
	if err := s.cfg.History.RecordSearch(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("server: history write failed", slog.Any("error", err))
	}
}

// handleBias handles POST /api/bias: same query, balanced vs unbalanced.
func (s *Server) handleBias(w http.ResponseWriter, r *http.Request) {
	var req biasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SearchTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.engine.AnalyzeBias(ctx, req.Text, req.TopK))
}

// handleReload handles POST /api/reload. A failed reload leaves the old
// snapshot serving and returns 500 with the ingestion error.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	registry, err := s.engine.Reload(r.Context())
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.reloadsTotal.WithLabelValues("error").Inc()
		logging.FromContext(r.Context()).Error("server: reload failed", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("reload failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.reloadsTotal.WithLabelValues("ok").Inc()
	s.metrics.reloadDurationSeconds.Observe(elapsed.Seconds())
	s.observeSnapshot()

	writeJSON(w, http.StatusOK, reloadResponse{
		Sources:   registry,
		Documents: registry.TotalDocuments(),
	})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshot := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, statsResponse{
		Version:   snapshot.Version,
		Documents: snapshot.Len(),
		Sources:   snapshot.Registry,
	})
}

// defaultHistoryLimit is the row count returned by GET /api/history when
// the caller does not pass ?limit.
const defaultHistoryLimit = 20

// handleHistory handles GET /api/history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := s.cfg.History.RecentSearches(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("server: history read failed", slog.Any("error", err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []history.SearchRecord{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Searches: recs})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// observeSnapshot refreshes the snapshot gauges from the current snapshot.
func (s *Server) observeSnapshot() {
	snapshot := s.engine.Snapshot()
	s.metrics.snapshotDocuments.Set(float64(snapshot.Len()))
	s.metrics.snapshotSources.Set(float64(snapshot.DistinctSources()))
}

// writeJSON encodes v to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
