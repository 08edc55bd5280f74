// Package scoring implements the keyword-based relevance scorer. Each
// document in a snapshot is scored against a query with a weighted-sum
// heuristic; scoring is embarrassingly parallel and sharded across a
// bounded worker pool. There is no claim of state-of-the-art relevance:
// the heuristic is documented, tunable, and deterministic.
package scoring

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/parityworks/recall/internal/corpus"
)

// Weights holds the tunable scoring weights. All contributions are summed
// and the total is capped at 1.0, so each weight is the marginal value of
// its match condition.
type Weights struct {
	// Direct is added when the full query text appears verbatim in the
	// document content.
	Direct float64 `yaml:"direct"`

	// Token is added once per query token present in the document content.
	Token float64 `yaml:"token"`

	// Keyword is added once per keyword shared between query and document.
	Keyword float64 `yaml:"keyword"`

	// Platform is added when the query's platform hint matches the
	// document's platform tag.
	Platform float64 `yaml:"platform"`
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{Direct: 0.8, Token: 0.3, Keyword: 0.2, Platform: 0.5}
}

// DefaultMinScore is the relevance floor below which documents are dropped
// from the candidate set.
const DefaultMinScore = 0.1

// ScoredDocument pairs a document with its relevance scores.
type ScoredDocument struct {
	// Doc points into the snapshot's immutable document list.
	Doc *corpus.Document

	// Rank is the document's ingestion index, used as the deterministic
	// tie-break for equal scores.
	Rank int

	// RawScore is the scorer output in [0,1].
	RawScore float64

	// AdjustedScore is RawScore after source-weight boosting. Equal to
	// RawScore until the balanced selector reweights it.
	AdjustedScore float64
}

// Ranking is the result of scoring a snapshot against a query.
type Ranking struct {
	// Candidates is the scored document list, sorted by descending raw
	// score with ties broken by ingestion order.
	Candidates []ScoredDocument

	// Partial is true when the context deadline expired mid-scoring and
	// Candidates reflects only the documents scored so far.
	Partial bool
}

// Config holds the scorer configuration.
type Config struct {
	// Weights are the scoring weights. Zero-valued falls back to
	// DefaultWeights.
	Weights Weights

	// MinScore drops documents scoring below this floor.
	// Defaults to DefaultMinScore if zero.
	MinScore float64

	// Workers bounds the scoring worker pool.
	// Defaults to runtime.GOMAXPROCS(0) if zero.
	Workers int
}

// Scorer scores snapshots against queries.
type Scorer struct {
	// weights are the resolved scoring weights.
	weights Weights

	// minScore is the resolved relevance floor.
	minScore float64

	// workers is the resolved worker pool size.
	workers int
}

// New constructs a Scorer from cfg, applying defaults for zero values.
func New(cfg Config) *Scorer {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Scorer{weights: cfg.Weights, minScore: cfg.MinScore, workers: cfg.Workers}
}

// Score returns the relevance of doc for q in [0,1].
//
// The function is monotonic: adding a matching token, keyword, or platform
// condition to the query never decreases the score of any document.
func (s *Scorer) Score(q corpus.Query, doc *corpus.Document) float64 {
	score := 0.0

	if q.Normalized != "" && strings.Contains(doc.NormalizedContent, q.Normalized) {
		score += s.weights.Direct
	}

	for _, token := range q.Tokens {
		if strings.Contains(doc.NormalizedContent, token) {
			score += s.weights.Token
		}
	}

	if len(q.Keywords) > 0 && len(doc.Keywords) > 0 {
		score += float64(sharedKeywords(q.Keywords, doc.Keywords)) * s.weights.Keyword
	}

	if q.PlatformHint != "" && q.PlatformHint == doc.Metadata.PlatformTag {
		score += s.weights.Platform
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// checkInterval is how many documents each worker scores between context
// checks. Scoring one document is microseconds, so checking every document
// would spend more time on the atomic context read than on scoring.
const checkInterval = 64

// Rank scores every document in the snapshot against q, drops documents
// below the minimum score, and returns the survivors sorted by descending
// score with ties broken by ingestion order. limit > 0 truncates the
// result after sorting.
//
// Scoring is sharded across the worker pool. If ctx's deadline expires
// mid-scoring, Rank returns the best-effort partial ranking with
// Ranking.Partial set instead of an error: scoring is incremental, so
// whatever was scored is still a valid (if incomplete) ranking.
func (s *Scorer) Rank(ctx context.Context, snapshot *corpus.Snapshot, q corpus.Query, limit int) Ranking {
	n := snapshot.Len()
	if n == 0 {
		return Ranking{}
	}

	// scores[i] < 0 means document i was never scored (deadline expired).
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = -1
	}

	workers := s.workers
	if workers > n {
		workers = n
	}
	shard := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * shard
		end := start + shard
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if (i-start)%checkInterval == 0 && ctx.Err() != nil {
					return
				}
				scores[i] = s.Score(q, &snapshot.Documents[i])
			}
		}(start, end)
	}
	wg.Wait()

	partial := false
	candidates := make([]ScoredDocument, 0, n)
	for i := range snapshot.Documents {
		switch {
		case scores[i] < 0:
			partial = true
		case scores[i] >= s.minScore:
			candidates = append(candidates, ScoredDocument{
				Doc:           &snapshot.Documents[i],
				Rank:          i,
				RawScore:      scores[i],
				AdjustedScore: scores[i],
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RawScore != candidates[j].RawScore {
			return candidates[i].RawScore > candidates[j].RawScore
		}
		return candidates[i].Rank < candidates[j].Rank
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return Ranking{Candidates: candidates, Partial: partial}
}

// sharedKeywords counts the keywords present in both sorted slices.
func sharedKeywords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, k := range a {
		set[k] = true
	}
	count := 0
	for _, k := range b {
		if set[k] {
			count++
		}
	}
	return count
}
