package bias

import (
	"testing"

	"github.com/parityworks/recall/internal/scoring"
)

// countBySource tallies a result set per source file.
func countBySource(result []scoring.ScoredDocument) map[string]int {
	counts := make(map[string]int)
	for _, r := range result {
		counts[r.Doc.Metadata.SourceFile]++
	}
	return counts
}

// TestSelector_RebalancesSkewedCandidates runs the canonical skew scenario:
// one source floods the candidate list, a second barely appears. Balancing
// must pull the minority source in without discarding relevance entirely.
func TestSelector_RebalancesSkewedCandidates(t *testing.T) {
	t.Parallel()

	// Candidates arrive sorted by raw score, the way the scorer emits them.
	candidates := []scoring.ScoredDocument{
		docFrom("a.txt", 0, 0.90),
		docFrom("a.txt", 1, 0.85),
		docFrom("a.txt", 2, 0.80),
		docFrom("a.txt", 3, 0.75),
		docFrom("a.txt", 4, 0.70),
		docFrom("a.txt", 5, 0.65),
		docFrom("a.txt", 6, 0.60),
		docFrom("a.txt", 7, 0.55),
		docFrom("b.txt", 8, 0.50),
		docFrom("b.txt", 9, 0.45),
	}

	sel := NewSelector(DefaultThresholds())
	result, metrics := sel.Select(candidates, 5, 2, 3)

	if len(result) != 5 {
		t.Fatalf("expected 5 results, got %d", len(result))
	}

	counts := countBySource(result)
	if counts["a.txt"] != 3 || counts["b.txt"] != 2 {
		t.Errorf("expected 3 from a.txt and 2 from b.txt, got %v", counts)
	}
	if metrics.BiasDetected {
		t.Errorf("balanced set still flagged as biased: %+v", metrics)
	}
	// Metrics must describe the returned set, not the candidates.
	if got := metrics.SourceDistribution["a.txt"]; got != counts["a.txt"] {
		t.Errorf("metrics distribution %d does not match result %d", got, counts["a.txt"])
	}
}

// TestSelector_MaxPerSourceCap verifies that no source exceeds the cap even
// when it holds every top score.
func TestSelector_MaxPerSourceCap(t *testing.T) {
	t.Parallel()

	candidates := append(docsFrom("a.txt", 10, 0, 0.95), docsFrom("b.txt", 10, 10, 0.50)...)

	sel := NewSelector(DefaultThresholds())
	result, _ := sel.Select(candidates, 6, 2, 2)

	for src, n := range countBySource(result) {
		if n > 2 {
			t.Errorf("source %s exceeds the cap: %d picks", src, n)
		}
	}
	if len(result) != 4 {
		// Two sources capped at two picks each.
		t.Errorf("expected 4 results under the cap, got %d", len(result))
	}
}

// TestSelector_UnbiasedSetUntouched verifies that a naive top-K with no
// detected bias is returned as-is.
func TestSelector_UnbiasedSetUntouched(t *testing.T) {
	t.Parallel()

	candidates := []scoring.ScoredDocument{
		docFrom("a.txt", 0, 0.9),
		docFrom("b.txt", 1, 0.8),
		docFrom("a.txt", 2, 0.7),
		docFrom("b.txt", 3, 0.6),
	}

	sel := NewSelector(DefaultThresholds())
	result, metrics := sel.Select(candidates, 4, 2, 0)

	if len(result) != 4 {
		t.Fatalf("expected 4 results, got %d", len(result))
	}
	for i := range result {
		if result[i].Rank != candidates[i].Rank {
			t.Errorf("result %d reordered: rank %d vs %d", i, result[i].Rank, candidates[i].Rank)
		}
		if result[i].AdjustedScore != result[i].RawScore {
			t.Errorf("result %d reweighted without need", i)
		}
	}
	if metrics.BiasDetected {
		t.Error("diverse set flagged as biased")
	}
}

// TestSelector_SingleSourceDegradesGracefully verifies that a single-source
// corpus yields the naive top-K with the bias flag still raised.
func TestSelector_SingleSourceDegradesGracefully(t *testing.T) {
	t.Parallel()

	sel := NewSelector(DefaultThresholds())
	result, metrics := sel.Select(docsFrom("only.txt", 8, 0, 0.9), 5, 2, 3)

	if len(result) != 5 {
		t.Fatalf("expected 5 results, got %d", len(result))
	}
	if !metrics.BiasDetected {
		t.Error("single-source set must stay flagged as biased")
	}
	if metrics.DiversityScore != 0 {
		t.Errorf("expected diversity 0, got %.2f", metrics.DiversityScore)
	}
	// The naive order must be preserved.
	for i := 1; i < len(result); i++ {
		if result[i-1].RawScore < result[i].RawScore {
			t.Error("naive order not preserved")
			break
		}
	}
}

// TestSelector_EmptyAndDegenerate verifies the trivial edge cases.
func TestSelector_EmptyAndDegenerate(t *testing.T) {
	t.Parallel()

	sel := NewSelector(DefaultThresholds())

	result, metrics := sel.Select(nil, 5, 2, 0)
	if result != nil || metrics.BiasDetected {
		t.Errorf("empty candidates: expected nil result without bias, got %v %+v", result, metrics)
	}

	result, _ = sel.Select(docsFrom("a.txt", 3, 0, 0.9), 0, 2, 0)
	if result != nil {
		t.Errorf("topK 0: expected nil result, got %v", result)
	}
}

// TestSelector_BoostCappedAtMaxWeight verifies that a heavily
// underrepresented source is boosted by at most the weight cap.
func TestSelector_BoostCappedAtMaxWeight(t *testing.T) {
	t.Parallel()

	groups := map[string][]scoring.ScoredDocument{
		"a.txt": docsFrom("a.txt", 9, 0, 0.9),
		"b.txt": {docFrom("b.txt", 9, 0.4)},
	}
	candidates := append(docsFrom("a.txt", 9, 0, 0.9), docFrom("b.txt", 9, 0.4))

	boosted := boostUnderrepresented(candidates, groups)

	// b.txt holds a 0.1 share against an ideal of 0.5: the raw weight would
	// be 5x, so the cap must hold it to 2x.
	last := boosted[len(boosted)-1]
	if !almostEqual(last.AdjustedScore, 0.8) {
		t.Errorf("expected capped boost 0.4*2=0.8, got %.3f", last.AdjustedScore)
	}
	// Well-represented sources keep their raw score.
	if !almostEqual(boosted[0].AdjustedScore, boosted[0].RawScore) {
		t.Errorf("majority source reweighted: %.3f vs %.3f", boosted[0].AdjustedScore, boosted[0].RawScore)
	}
}

// TestSelector_BoostNeverExceedsOne verifies that a boosted score clamps
// at 1.0.
func TestSelector_BoostNeverExceedsOne(t *testing.T) {
	t.Parallel()

	candidates := append(docsFrom("a.txt", 9, 0, 0.9), docFrom("b.txt", 9, 0.7))
	groups, _ := groupBySource(candidates)

	boosted := boostUnderrepresented(candidates, groups)
	for i, b := range boosted {
		if b.AdjustedScore > 1.0 {
			t.Errorf("candidate %d boosted past 1.0: %.3f", i, b.AdjustedScore)
		}
	}
}

// TestEnsureMinSources verifies that a missing source is swapped in for the
// lowest-relevance pick of an overrepresented one.
func TestEnsureMinSources(t *testing.T) {
	t.Parallel()

	candidates := []scoring.ScoredDocument{
		docFrom("a.txt", 0, 0.9),
		docFrom("a.txt", 1, 0.8),
		docFrom("b.txt", 2, 0.5),
	}
	result := []scoring.ScoredDocument{candidates[0], candidates[1]}

	fixed := ensureMinSources(result, candidates, 2, 2)

	counts := countBySource(fixed)
	if counts["b.txt"] != 1 {
		t.Errorf("expected b.txt to be swapped in, got %v", counts)
	}
	if counts["a.txt"] != 1 {
		t.Errorf("expected a.txt reduced to one pick, got %v", counts)
	}
	// The higher-scoring a.txt pick must survive the swap.
	for _, r := range fixed {
		if r.Doc.Metadata.SourceFile == "a.txt" && !almostEqual(r.AdjustedScore, 0.9) {
			t.Errorf("wrong victim evicted: surviving a.txt pick scores %.2f", r.AdjustedScore)
		}
	}
}

// TestRoundRobin_StableOrder verifies the round-robin picks cycle sources
// in first-seen order and stay within topK.
func TestRoundRobin_StableOrder(t *testing.T) {
	t.Parallel()

	candidates := []scoring.ScoredDocument{
		docFrom("a.txt", 0, 0.9),
		docFrom("b.txt", 1, 0.8),
		docFrom("c.txt", 2, 0.7),
		docFrom("a.txt", 3, 0.6),
		docFrom("b.txt", 4, 0.5),
	}

	result := roundRobin(candidates, 3, 0)
	if len(result) != 3 {
		t.Fatalf("expected 3 picks, got %d", len(result))
	}
	want := []string{"a.txt", "b.txt", "c.txt"}
	for i, r := range result {
		if r.Doc.Metadata.SourceFile != want[i] {
			t.Errorf("pick %d: expected %s, got %s", i, want[i], r.Doc.Metadata.SourceFile)
		}
	}
}
