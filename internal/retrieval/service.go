// Package retrieval orchestrates the retrieval engine: it scores the
// current corpus snapshot against a query, checks the candidate set for
// source bias, rebalances when needed, and returns the final results
// together with the bias metrics that describe them.
//
// The service is read-only against the snapshot it acquires at the start of
// each search; a concurrent reload swaps in a new snapshot without
// affecting searches already in flight.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/parityworks/recall/internal/bias"
	"github.com/parityworks/recall/internal/corpus"
	"github.com/parityworks/recall/internal/logging"
	"github.com/parityworks/recall/internal/scoring"
)

const (
	// DefaultTopK is the result count when the caller passes 0.
	DefaultTopK = 5

	// DefaultMinSources is the diversity floor when the caller passes 0.
	DefaultMinSources = 2

	// DefaultOversample is the candidate multiplier handed to the scorer so
	// the balanced selector has room to rebalance.
	DefaultOversample = 2
)

// Request is one search query.
type Request struct {
	// Text is the natural-language query.
	Text string `json:"text"`

	// TopK is the requested result count. 0 means DefaultTopK; values
	// beyond the corpus size are clamped, never rejected.
	TopK int `json:"topK,omitempty"`

	// PlatformHint optionally boosts documents tagged for a platform.
	PlatformHint string `json:"platformHint,omitempty"`

	// MinSources is the minimum number of distinct sources wanted in the
	// result. 0 means DefaultMinSources; clamped to the sources present.
	MinSources int `json:"minSources,omitempty"`

	// MaxPerSource caps the documents any single source may contribute.
	// 0 derives ceil(topK/minSources)+1.
	MaxPerSource int `json:"maxPerSource,omitempty"`
}

// Result is one retrieved passage with enough attribution for the consumer
// to cite its source.
type Result struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// SourceFile identifies the source the chunk was cut from.
	SourceFile string `json:"sourceFile"`

	// SourceType is the classified source category.
	SourceType string `json:"sourceType"`

	// Score is the final (post-balancing) relevance score in [0,1].
	Score float64 `json:"score"`
}

// Response is the outcome of one search. A search never fails for lack of
// good results: an empty corpus or an unmatched query yields an empty (or
// low-score) result list with transparent metrics, so callers decide how
// to react.
type Response struct {
	// Results is the final ordered result set, at most TopK entries.
	Results []Result `json:"results"`

	// Metrics describes the source spread of Results — always the returned
	// set, never the pre-balancing candidates.
	Metrics bias.Metrics `json:"biasMetrics"`

	// Notes records parameter clamps and fallbacks applied while serving
	// the request. Informational only.
	Notes []string `json:"notes,omitempty"`

	// Partial is true when the deadline expired mid-scoring and Results
	// reflects a best-effort partial ranking.
	Partial bool `json:"partial,omitempty"`
}

// Config holds the service configuration.
type Config struct {
	// Oversample is the candidate multiplier for the scorer.
	// Defaults to DefaultOversample if zero.
	Oversample int
}

// Service is the retrieval engine front door. It is safe for concurrent
// use: searches are read-only and reloads swap the snapshot atomically.
type Service struct {
	// store owns the current corpus snapshot.
	store *corpus.Store

	// scorer ranks snapshot documents against queries.
	scorer *scoring.Scorer

	// selector rebalances biased candidate sets.
	selector *bias.Selector

	// thresholds drive bias detection for AnalyzeBias comparisons.
	thresholds bias.Thresholds

	// oversample is the resolved candidate multiplier.
	oversample int
}

// New constructs a Service from its collaborators.
func New(store *corpus.Store, scorer *scoring.Scorer, thresholds bias.Thresholds, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("retrieval: store must not be nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("retrieval: scorer must not be nil")
	}
	if thresholds == (bias.Thresholds{}) {
		thresholds = bias.DefaultThresholds()
	}
	if cfg.Oversample <= 0 {
		cfg.Oversample = DefaultOversample
	}
	return &Service{
		store:      store,
		scorer:     scorer,
		selector:   bias.NewSelector(thresholds),
		thresholds: thresholds,
		oversample: cfg.Oversample,
	}, nil
}

// Search runs one query against the current snapshot and returns the
// balanced result set with its bias metrics. Out-of-range parameters are
// clamped and surfaced via Response.Notes; Search itself never fails on
// query parameters or an empty corpus.
func (s *Service) Search(ctx context.Context, req Request) Response {
	snapshot := s.store.Snapshot()
	if snapshot.Len() == 0 {
		return Response{Results: []Result{}, Metrics: bias.Analyze(nil, s.thresholds)}
	}

	topK, minSources, maxPerSource, notes := s.clampParams(req, snapshot)

	query := corpus.NewQuery(req.Text, req.PlatformHint)
	ranking := s.scorer.Rank(ctx, snapshot, query, topK*s.oversample)

	// A platform hint that matches nothing should not starve the caller:
	// fall back to an unhinted search before giving up.
	if len(ranking.Candidates) == 0 && query.PlatformHint != "" {
		notes = append(notes, fmt.Sprintf("no results for platform %q, retried without platform hint", query.PlatformHint))
		query.PlatformHint = ""
		ranking = s.scorer.Rank(ctx, snapshot, query, topK*s.oversample)
	}

	selected, metrics := s.selector.Select(ranking.Candidates, topK, minSources, maxPerSource)

	resp := Response{
		Results: make([]Result, 0, len(selected)),
		Metrics: metrics,
		Notes:   notes,
		Partial: ranking.Partial,
	}
	for _, sd := range selected {
		resp.Results = append(resp.Results, Result{
			Content:    sd.Doc.Content,
			SourceFile: sd.Doc.Metadata.SourceFile,
			SourceType: sd.Doc.Metadata.SourceType,
			Score:      sd.AdjustedScore,
		})
	}

	logging.FromContext(ctx).Debug("retrieval: search served",
		slog.Int("candidates", len(ranking.Candidates)),
		slog.Int("results", len(resp.Results)),
		slog.Float64("diversity", metrics.DiversityScore),
		slog.Bool("bias_detected", metrics.BiasDetected),
		slog.Bool("partial", resp.Partial),
	)

	return resp
}

// Comparison is the outcome of AnalyzeBias: the same query served with and
// without balancing, with the metric delta between the two.
type Comparison struct {
	// Query is the analyzed query text.
	Query string `json:"query"`

	// Unbalanced describes the naive top-K result set.
	Unbalanced bias.Metrics `json:"unbalanced"`

	// Balanced describes the rebalanced result set.
	Balanced bias.Metrics `json:"balanced"`

	// DiversityImprovement is balanced minus unbalanced diversity score.
	DiversityImprovement float64 `json:"diversityImprovement"`

	// BalancingEffective is true when balancing strictly improved the
	// diversity score.
	BalancingEffective bool `json:"balancingEffective"`
}

// AnalyzeBias reports how balancing changes the result set for a query.
// It runs the scorer once and derives both the naive and the balanced
// selections from the same candidate list.
func (s *Service) AnalyzeBias(ctx context.Context, text string, topK int) Comparison {
	snapshot := s.store.Snapshot()
	cmp := Comparison{Query: text}

	topK, minSources, maxPerSource, _ := s.clampParams(Request{TopK: topK}, snapshot)
	if snapshot.Len() == 0 {
		cmp.Unbalanced = bias.Analyze(nil, s.thresholds)
		cmp.Balanced = cmp.Unbalanced
		return cmp
	}

	query := corpus.NewQuery(text, "")
	ranking := s.scorer.Rank(ctx, snapshot, query, topK*s.oversample)

	naive := ranking.Candidates
	if len(naive) > topK {
		naive = naive[:topK]
	}
	cmp.Unbalanced = bias.Analyze(naive, s.thresholds)

	_, cmp.Balanced = s.selector.Select(ranking.Candidates, topK, minSources, maxPerSource)
	cmp.DiversityImprovement = cmp.Balanced.DiversityScore - cmp.Unbalanced.DiversityScore
	cmp.BalancingEffective = cmp.DiversityImprovement > 0

	return cmp
}

// Reload re-ingests the corpus and atomically swaps the snapshot. On
// failure the previous snapshot stays authoritative and concurrent
// searches are unaffected.
func (s *Service) Reload(ctx context.Context) (corpus.SourceRegistry, error) {
	return s.store.Reload(ctx)
}

// Stats returns the SourceRegistry of the current snapshot.
func (s *Service) Stats() corpus.SourceRegistry {
	return s.store.Stats()
}

// Snapshot exposes the current snapshot for read-only inspection
// (readiness probes, stats handlers).
func (s *Service) Snapshot() *corpus.Snapshot {
	return s.store.Snapshot()
}

// clampParams resolves and clamps the request parameters against the
// snapshot, returning notes for any adjustment a caller might not expect.
func (s *Service) clampParams(req Request, snapshot *corpus.Snapshot) (topK, minSources, maxPerSource int, notes []string) {
	topK = req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if n := snapshot.Len(); n > 0 && topK > n {
		notes = append(notes, fmt.Sprintf("topK %d clamped to corpus size %d", topK, n))
		topK = n
	}

	minSources = req.MinSources
	if minSources <= 0 {
		minSources = DefaultMinSources
	}
	if distinct := snapshot.DistinctSources(); distinct > 0 && minSources > distinct {
		notes = append(notes, fmt.Sprintf("minSources %d clamped to %d distinct source(s) present", minSources, distinct))
		minSources = distinct
	}

	maxPerSource = req.MaxPerSource
	if maxPerSource <= 0 && minSources > 0 {
		maxPerSource = int(math.Ceil(float64(topK)/float64(minSources))) + 1
	}

	return topK, minSources, maxPerSource, notes
}
