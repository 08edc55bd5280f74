// Package bias quantifies source concentration in a candidate result set
// and rebalances biased sets toward diverse source representation. The
// analyzer is pure — it only reads a candidate set and returns metrics —
// while the selector produces a new result set without mutating its input.
package bias

import (
	"github.com/parityworks/recall/internal/scoring"
)

// Thresholds holds the tunable bias detection thresholds.
type Thresholds struct {
	// Diversity is the floor below which a result set counts as biased.
	Diversity float64 `yaml:"diversity"`

	// Dominance is the single-source share above which a result set counts
	// as biased.
	Dominance float64 `yaml:"dominance"`
}

// DefaultThresholds returns the stock bias thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Diversity: 0.5, Dominance: 0.7}
}

// Metrics describes the source spread of one candidate result set.
type Metrics struct {
	// SourceDistribution counts selected documents per source file.
	SourceDistribution map[string]int `json:"sourceDistribution"`

	// DiversityScore is distinctSources/maxSingleSourceCount clamped to
	// [0,1]. A set drawn from exactly one source scores 0 by rule: a single
	// source cannot be diverse, even though the raw ratio would be 1.
	DiversityScore float64 `json:"diversityScore"`

	// DominantSourceShare is maxSingleSourceCount/totalSelected.
	DominantSourceShare float64 `json:"dominantSourceShare"`

	// BiasDetected is true when DiversityScore is below the diversity
	// threshold or DominantSourceShare exceeds the dominance threshold.
	BiasDetected bool `json:"biasDetected"`
}

// Analyze computes Metrics over a candidate set. It never mutates the
// candidates. An empty set yields zero-valued metrics with no bias flag —
// emptiness is not bias.
func Analyze(candidates []scoring.ScoredDocument, th Thresholds) Metrics {
	m := Metrics{SourceDistribution: map[string]int{}}
	if len(candidates) == 0 {
		return m
	}

	maxCount := 0
	for _, c := range candidates {
		src := c.Doc.Metadata.SourceFile
		m.SourceDistribution[src]++
		if m.SourceDistribution[src] > maxCount {
			maxCount = m.SourceDistribution[src]
		}
	}

	distinct := len(m.SourceDistribution)
	if distinct > 1 {
		m.DiversityScore = float64(distinct) / float64(maxCount)
		if m.DiversityScore > 1 {
			m.DiversityScore = 1
		}
	}
	m.DominantSourceShare = float64(maxCount) / float64(len(candidates))
	m.BiasDetected = m.DiversityScore < th.Diversity || m.DominantSourceShare > th.Dominance

	return m
}
