package bias

import (
	"math"
	"testing"

	"github.com/parityworks/recall/internal/corpus"
	"github.com/parityworks/recall/internal/scoring"
)

// docFrom builds a scored document attributed to the given source.
func docFrom(source string, rank int, score float64) scoring.ScoredDocument {
	return scoring.ScoredDocument{
		Doc: &corpus.Document{
			Content:  "content",
			Metadata: corpus.Metadata{SourceFile: source},
		},
		Rank:          rank,
		RawScore:      score,
		AdjustedScore: score,
	}
}

// docsFrom builds n scored documents from one source with descending scores.
func docsFrom(source string, n int, startRank int, topScore float64) []scoring.ScoredDocument {
	docs := make([]scoring.ScoredDocument, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, docFrom(source, startRank+i, topScore-float64(i)*0.05))
	}
	return docs
}

// almostEqual compares floats with a small tolerance.
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestAnalyze_Empty verifies that an empty candidate set yields zero metrics
// with no bias flag.
func TestAnalyze_Empty(t *testing.T) {
	t.Parallel()

	m := Analyze(nil, DefaultThresholds())
	if m.BiasDetected {
		t.Error("empty set must not count as biased")
	}
	if m.DiversityScore != 0 || m.DominantSourceShare != 0 {
		t.Errorf("expected zero metrics, got diversity %.2f dominance %.2f", m.DiversityScore, m.DominantSourceShare)
	}
	if len(m.SourceDistribution) != 0 {
		t.Errorf("expected empty distribution, got %v", m.SourceDistribution)
	}
}

// TestAnalyze_SingleSource verifies the single-source rule: diversity is 0
// regardless of the raw ratio, and the set is biased.
func TestAnalyze_SingleSource(t *testing.T) {
	t.Parallel()

	m := Analyze(docsFrom("only.txt", 5, 0, 0.9), DefaultThresholds())
	if m.DiversityScore != 0 {
		t.Errorf("single source must score 0 diversity, got %.2f", m.DiversityScore)
	}
	if !almostEqual(m.DominantSourceShare, 1.0) {
		t.Errorf("expected dominant share 1.0, got %.2f", m.DominantSourceShare)
	}
	if !m.BiasDetected {
		t.Error("single-source set must be flagged as biased")
	}
}

// TestAnalyze_BalancedSet verifies that an evenly spread set is not biased.
func TestAnalyze_BalancedSet(t *testing.T) {
	t.Parallel()

	candidates := []scoring.ScoredDocument{
		docFrom("a.txt", 0, 0.9),
		docFrom("b.txt", 1, 0.8),
		docFrom("c.txt", 2, 0.7),
	}
	m := Analyze(candidates, DefaultThresholds())

	if !almostEqual(m.DiversityScore, 1.0) {
		t.Errorf("expected diversity 1.0 (clamped from 3/1), got %.2f", m.DiversityScore)
	}
	if !almostEqual(m.DominantSourceShare, 1.0/3.0) {
		t.Errorf("expected dominant share 1/3, got %.4f", m.DominantSourceShare)
	}
	if m.BiasDetected {
		t.Error("evenly spread set must not be flagged as biased")
	}
}

// TestAnalyze_DominanceTrips verifies that a set can pass the diversity
// floor yet still trip the dominance ceiling.
func TestAnalyze_DominanceTrips(t *testing.T) {
	t.Parallel()

	candidates := append(docsFrom("a.txt", 4, 0, 0.9), docFrom("b.txt", 4, 0.5))
	m := Analyze(candidates, DefaultThresholds())

	// diversity = 2 distinct / 4 max = 0.5, exactly at the floor.
	if !almostEqual(m.DiversityScore, 0.5) {
		t.Errorf("expected diversity 0.5, got %.2f", m.DiversityScore)
	}
	// dominance = 4/5 = 0.8, above the 0.7 ceiling.
	if !almostEqual(m.DominantSourceShare, 0.8) {
		t.Errorf("expected dominant share 0.8, got %.2f", m.DominantSourceShare)
	}
	if !m.BiasDetected {
		t.Error("dominance above the ceiling must flag bias")
	}
}

// TestAnalyze_CustomThresholds verifies that looser thresholds accept a
// distribution the defaults would reject.
func TestAnalyze_CustomThresholds(t *testing.T) {
	t.Parallel()

	candidates := append(docsFrom("a.txt", 4, 0, 0.9), docFrom("b.txt", 4, 0.5))
	m := Analyze(candidates, Thresholds{Diversity: 0.2, Dominance: 0.9})
	if m.BiasDetected {
		t.Error("distribution within loose thresholds must not be flagged")
	}
}

// TestAnalyze_DoesNotMutate verifies the analyzer never touches the
// candidate scores.
func TestAnalyze_DoesNotMutate(t *testing.T) {
	t.Parallel()

	candidates := docsFrom("a.txt", 3, 0, 0.9)
	before := make([]float64, len(candidates))
	for i, c := range candidates {
		before[i] = c.AdjustedScore
	}

	Analyze(candidates, DefaultThresholds())

	for i, c := range candidates {
		if c.AdjustedScore != before[i] {
			t.Errorf("candidate %d mutated: %.3f -> %.3f", i, before[i], c.AdjustedScore)
		}
	}
}
