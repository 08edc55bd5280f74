package bias

import (
	"sort"

	"github.com/parityworks/recall/internal/scoring"
)

// maxSourceWeight caps the boost applied to underrepresented sources so a
// barely-relevant document can never outrank everything else on weight
// alone.
const maxSourceWeight = 2.0

// Selector rebalances an oversampled, scored candidate set to satisfy
// source-diversity constraints while preserving as much relevance as
// possible.
type Selector struct {
	// thresholds drive bias detection on the naive top-K.
	thresholds Thresholds
}

// NewSelector constructs a Selector with the given thresholds.
// Zero-valued thresholds fall back to DefaultThresholds.
func NewSelector(th Thresholds) *Selector {
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Selector{thresholds: th}
}

// Select produces a final result set of at most topK documents from the
// candidate set, honouring maxPerSource (0 means uncapped) and aiming for
// at least minSources distinct sources. The returned metrics always
// describe the set actually returned, never the pre-balancing set.
//
// When the naive top-K shows no bias, it is returned unchanged — no
// rebalancing work is spent on an already-diverse result. When the entire
// candidate set comes from a single source, balancing is a no-op: the
// diversity score stays 0 but selection degrades gracefully to the naive
// top-K rather than erroring or retrying.
func (s *Selector) Select(candidates []scoring.ScoredDocument, topK, minSources, maxPerSource int) ([]scoring.ScoredDocument, Metrics) {
	if topK <= 0 || len(candidates) == 0 {
		return nil, Analyze(nil, s.thresholds)
	}

	naive := candidates
	if len(naive) > topK {
		naive = naive[:topK]
	}
	naiveMetrics := Analyze(naive, s.thresholds)
	if !naiveMetrics.BiasDetected {
		return naive, naiveMetrics
	}

	groups, _ := groupBySource(candidates)
	if len(groups) < 2 {
		// Single-source corpus: nothing to balance against.
		return naive, naiveMetrics
	}

	boosted := boostUnderrepresented(candidates, groups)

	result := roundRobin(boosted, topK, maxPerSource)
	result = ensureMinSources(result, boosted, topK, minSources)

	sort.Slice(result, func(i, j int) bool {
		if result[i].AdjustedScore != result[j].AdjustedScore {
			return result[i].AdjustedScore > result[j].AdjustedScore
		}
		return result[i].Rank < result[j].Rank
	})

	return result, Analyze(result, s.thresholds)
}

// groupBySource partitions candidates by source file, preserving each
// group's score order, and returns the stable first-seen source order.
func groupBySource(candidates []scoring.ScoredDocument) (map[string][]scoring.ScoredDocument, []string) {
	groups := make(map[string][]scoring.ScoredDocument)
	var order []string
	for _, c := range candidates {
		src := c.Doc.Metadata.SourceFile
		if _, ok := groups[src]; !ok {
			order = append(order, src)
		}
		groups[src] = append(groups[src], c)
	}
	return groups, order
}

// boostUnderrepresented recomputes adjusted scores, multiplying candidates
// from below-average-share sources by a weight in [1, maxSourceWeight]
// proportional to how underrepresented the source is. Well-represented
// sources keep their raw score.
func boostUnderrepresented(candidates []scoring.ScoredDocument, groups map[string][]scoring.ScoredDocument) []scoring.ScoredDocument {
	total := float64(len(candidates))
	idealShare := 1.0 / float64(len(groups))

	weights := make(map[string]float64, len(groups))
	for src, g := range groups {
		share := float64(len(g)) / total
		w := 1.0
		if share < idealShare {
			w = idealShare / share
			if w > maxSourceWeight {
				w = maxSourceWeight
			}
		}
		weights[src] = w
	}

	boosted := make([]scoring.ScoredDocument, len(candidates))
	copy(boosted, candidates)
	for i := range boosted {
		adjusted := boosted[i].RawScore * weights[boosted[i].Doc.Metadata.SourceFile]
		if adjusted > 1.0 {
			adjusted = 1.0
		}
		boosted[i].AdjustedScore = adjusted
	}
	return boosted
}

// roundRobin selects up to topK candidates by cycling over the source
// groups in stable first-seen order, taking each group's next-best
// candidate by adjusted score, and never exceeding maxPerSource per
// source (0 means uncapped).
func roundRobin(candidates []scoring.ScoredDocument, topK, maxPerSource int) []scoring.ScoredDocument {
	groups, order := groupBySource(candidates)

	// Within each group, next-best means highest adjusted score; ties
	// break by ingestion rank for determinism.
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool {
			if g[i].AdjustedScore != g[j].AdjustedScore {
				return g[i].AdjustedScore > g[j].AdjustedScore
			}
			return g[i].Rank < g[j].Rank
		})
	}

	next := make(map[string]int, len(groups))
	taken := make(map[string]int, len(groups))
	var result []scoring.ScoredDocument

	for len(result) < topK {
		progressed := false
		for _, src := range order {
			if len(result) >= topK {
				break
			}
			if maxPerSource > 0 && taken[src] >= maxPerSource {
				continue
			}
			if next[src] >= len(groups[src]) {
				continue
			}
			result = append(result, groups[src][next[src]])
			next[src]++
			taken[src]++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return result
}

// ensureMinSources guarantees the result spans at least minSources distinct
// sources when the candidate set has that many, swapping the
// lowest-relevance pick for the top candidate of each missing source.
// Victims are preferred from sources with multiple picks so the swap never
// removes a source entirely.
func ensureMinSources(result, candidates []scoring.ScoredDocument, topK, minSources int) []scoring.ScoredDocument {
	if minSources <= 1 {
		return result
	}

	groups, order := groupBySource(candidates)
	if minSources > len(groups) {
		minSources = len(groups)
	}

	have := make(map[string]int)
	for _, r := range result {
		have[r.Doc.Metadata.SourceFile]++
	}

	for _, src := range order {
		if len(have) >= minSources {
			break
		}
		if have[src] > 0 {
			continue
		}

		if len(result) >= topK {
			victim := pickVictim(result, have)
			if victim < 0 {
				break
			}
			have[result[victim].Doc.Metadata.SourceFile]--
			if have[result[victim].Doc.Metadata.SourceFile] == 0 {
				delete(have, result[victim].Doc.Metadata.SourceFile)
			}
			result = append(result[:victim], result[victim+1:]...)
		}

		result = append(result, groups[src][0])
		have[src]++
	}

	return result
}

// pickVictim returns the index of the lowest-adjusted-score result whose
// source keeps at least one other pick, or the overall lowest if every
// source has exactly one. Returns -1 for an empty result.
func pickVictim(result []scoring.ScoredDocument, have map[string]int) int {
	victim := -1
	for i, r := range result {
		if have[r.Doc.Metadata.SourceFile] < 2 {
			continue
		}
		if victim < 0 || r.AdjustedScore < result[victim].AdjustedScore {
			victim = i
		}
	}
	if victim >= 0 {
		return victim
	}
	for i, r := range result {
		if victim < 0 || r.AdjustedScore < result[victim].AdjustedScore {
			victim = i
		}
	}
	return victim
}
