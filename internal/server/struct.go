package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parityworks/recall/internal/corpus"
	"github.com/parityworks/recall/internal/history"
	"github.com/parityworks/recall/internal/retrieval"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// SearchTimeout is the per-request scoring deadline. When exceeded
	// mid-scoring the response carries a best-effort partial ranking.
	// Defaults to 10s if zero.
	SearchTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// History is the optional search history recorder. Nil disables
	// history; a failed write never fails the request.
	History history.Recorder
	// MetricsRegistry receives all server metrics. Defaults to
	// prometheus.DefaultRegisterer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// engine is the interface the handlers call into. *retrieval.Service
// satisfies it in production; tests inject a fake.
type engine interface {
	// Search runs one query against the current snapshot.
	Search(ctx context.Context, req retrieval.Request) retrieval.Response
	// AnalyzeBias compares balanced and unbalanced metrics for a query.
	AnalyzeBias(ctx context.Context, text string, topK int) retrieval.Comparison
	// Reload re-ingests the corpus and swaps the snapshot.
	Reload(ctx context.Context) (corpus.SourceRegistry, error)
	// Stats returns the current snapshot's source registry.
	Stats() corpus.SourceRegistry
	// Snapshot exposes the current snapshot for stats and readiness.
	Snapshot() *corpus.Snapshot
}

// Server is the HTTP server that exposes the retrieval engine.
type Server struct {
	// engine is the retrieval service behind the handlers.
	engine engine
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus metrics owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// biasRequest is the JSON body for POST /api/bias.
type biasRequest struct {
	// Text is the query to analyze.
	Text string `json:"text"`
	// TopK is the result count to analyze at. 0 means the engine default.
	TopK int `json:"topK,omitempty"`
}

// reloadResponse is the JSON response for POST /api/reload.
type reloadResponse struct {
	// Sources is the registry of the freshly ingested snapshot.
	Sources corpus.SourceRegistry `json:"sources"`
	// Documents is the total document count across all sources.
	Documents int `json:"documents"`
}

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	// Version is the current snapshot version.
	Version uint64 `json:"version"`
	// Documents is the total document count.
	Documents int `json:"documents"`
	// Sources is the per-source registry.
	Sources corpus.SourceRegistry `json:"sources"`
}

// historyResponse is the JSON response for GET /api/history.
type historyResponse struct {
	// Searches is the recent search log, newest first.
	Searches []history.SearchRecord `json:"searches"`
}
