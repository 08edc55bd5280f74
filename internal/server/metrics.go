// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// searchesTotal counts completed /api/search requests, partitioned by
	// outcome: "ok" or "partial" (deadline hit mid-scoring).
	searchesTotal *prometheus.CounterVec

	// searchDurationSeconds records the wall-clock duration of each search.
	searchDurationSeconds *prometheus.HistogramVec

	// biasDetectedTotal counts searches whose returned set still tripped
	// the bias thresholds after balancing.
	biasDetectedTotal prometheus.Counter

	// reloadsTotal counts corpus reloads, partitioned by outcome.
	reloadsTotal *prometheus.CounterVec

	// reloadDurationSeconds records the duration of successful reloads.
	reloadDurationSeconds prometheus.Histogram

	// snapshotDocuments is the document count of the current snapshot.
	snapshotDocuments prometheus.Gauge

	// snapshotSources is the distinct source count of the current snapshot.
	snapshotSources prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of /api/search requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		searchDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/search requests.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"outcome"}),

		biasDetectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "search",
			Name:      "bias_detected_total",
			Help:      "Searches whose returned result set still exceeded the bias thresholds.",
		}),

		reloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "corpus",
			Name:      "reloads_total",
			Help:      "Total number of corpus reloads, partitioned by outcome.",
		}, []string{"outcome"}),

		reloadDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "corpus",
			Name:      "reload_duration_seconds",
			Help:      "Duration of successful corpus reloads.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30},
		}),

		snapshotDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "corpus",
			Name:      "snapshot_documents",
			Help:      "Document count of the current corpus snapshot.",
		}),

		snapshotSources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "corpus",
			Name:      "snapshot_sources",
			Help:      "Distinct source count of the current corpus snapshot.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps a handler with the generic HTTP request metrics,
// labelled by the logical handler name rather than the raw path.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(elapsed.Seconds())
	})
}
