package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/parityworks/recall/internal/corpus"
)

// makeDoc builds a document the way ingestion would, with derived
// normalized content and keywords.
func makeDoc(content, platform string) corpus.Document {
	return corpus.Document{
		Content:           content,
		NormalizedContent: strings.ToLower(content),
		Keywords:          corpus.ExtractKeywords(content),
		Metadata:          corpus.Metadata{SourceFile: "test.txt", PlatformTag: platform},
	}
}

// makeSnapshot wraps documents in a snapshot for ranking.
func makeSnapshot(docs ...corpus.Document) *corpus.Snapshot {
	return &corpus.Snapshot{Version: 1, Documents: docs}
}

// almostEqual compares floats with a small tolerance.
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestScorer_Score verifies the weighted-sum contributions.
func TestScorer_Score(t *testing.T) {
	t.Parallel()

	s := New(Config{})

	tests := []struct {
		name     string
		query    string
		platform string
		content  string
		docTag   string
		want     float64
	}{
		{
			name:    "no match",
			query:   "kubernetes deployment",
			content: "notes on watercolor painting",
			want:    0,
		},
		{
			name:    "single token with shared keyword",
			query:   "kubernetes scaling",
			content: "kubernetes cluster sizing advice",
			// one matching token (0.3) plus one shared keyword (0.2)
			want: 0.5,
		},
		{
			name:    "direct match caps at one",
			query:   "kubernetes deployment",
			content: "a guide to kubernetes deployment strategies",
			// direct 0.8 + two tokens 0.6 + two keywords 0.4, capped
			want: 1.0,
		},
		{
			name:     "platform boost",
			query:    "headline advice",
			platform: "linkedin",
			content:  "pick a headline that names your specialty",
			docTag:   "linkedin",
			// token 0.3 + keyword 0.2 + platform 0.5
			want: 1.0,
		},
		{
			name:     "platform mismatch adds nothing",
			query:    "headline advice",
			platform: "indeed",
			content:  "pick a headline that names your specialty",
			docTag:   "linkedin",
			want:     0.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			q := corpus.NewQuery(tc.query, tc.platform)
			doc := makeDoc(tc.content, tc.docTag)
			got := s.Score(q, &doc)
			if !almostEqual(got, tc.want) {
				t.Errorf("expected score %.2f, got %.4f", tc.want, got)
			}
		})
	}
}

// TestScorer_Monotonic verifies that adding a matching condition never
// lowers a document's score.
func TestScorer_Monotonic(t *testing.T) {
	t.Parallel()

	s := New(Config{})
	doc := makeDoc("terraform modules for kubernetes networking", "linkedin")

	base := s.Score(corpus.NewQuery("terraform", ""), &doc)
	more := s.Score(corpus.NewQuery("terraform kubernetes", ""), &doc)
	if more < base {
		t.Errorf("adding a matching token lowered the score: %.3f -> %.3f", base, more)
	}

	hinted := s.Score(corpus.NewQuery("terraform kubernetes", "linkedin"), &doc)
	if hinted < more {
		t.Errorf("adding a matching platform hint lowered the score: %.3f -> %.3f", more, hinted)
	}
}

// TestScorer_Rank verifies ordering, the relevance floor, and limit
// truncation.
func TestScorer_Rank(t *testing.T) {
	t.Parallel()

	s := New(Config{})
	snap := makeSnapshot(
		makeDoc("watercolor painting for beginners", ""),
		makeDoc("kubernetes kubernetes kubernetes" /* strong match */, ""),
		makeDoc("a mention of kubernetes in passing", ""),
	)

	ranking := s.Rank(context.Background(), snap, corpus.NewQuery("kubernetes", ""), 0)
	if ranking.Partial {
		t.Error("unexpected partial ranking")
	}
	// The watercolor document scores 0 and falls below the floor.
	if len(ranking.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranking.Candidates))
	}
	if ranking.Candidates[0].RawScore < ranking.Candidates[1].RawScore {
		t.Error("candidates not sorted by descending score")
	}

	limited := s.Rank(context.Background(), snap, corpus.NewQuery("kubernetes", ""), 1)
	if len(limited.Candidates) != 1 {
		t.Errorf("expected 1 candidate with limit 1, got %d", len(limited.Candidates))
	}
}

// TestScorer_Rank_TieBreak verifies that equal scores resolve by ingestion
// order, making rankings reproducible.
func TestScorer_Rank_TieBreak(t *testing.T) {
	t.Parallel()

	s := New(Config{})
	var docs []corpus.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, makeDoc(fmt.Sprintf("kubernetes note number %d", i), ""))
	}
	snap := makeSnapshot(docs...)

	first := s.Rank(context.Background(), snap, corpus.NewQuery("kubernetes", ""), 0)
	second := s.Rank(context.Background(), snap, corpus.NewQuery("kubernetes", ""), 0)

	if len(first.Candidates) != len(second.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first.Candidates), len(second.Candidates))
	}
	for i := range first.Candidates {
		if first.Candidates[i].Rank != second.Candidates[i].Rank {
			t.Fatalf("ranking order differs at %d", i)
		}
	}
	for i := 1; i < len(first.Candidates); i++ {
		a, b := first.Candidates[i-1], first.Candidates[i]
		if a.RawScore == b.RawScore && a.Rank > b.Rank {
			t.Errorf("tie at %d not broken by ingestion order", i)
		}
	}
}

// TestScorer_Rank_CancelledContext verifies that a cancelled context yields
// a partial ranking instead of an error.
func TestScorer_Rank_CancelledContext(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 2})
	var docs []corpus.Document
	for i := 0; i < 500; i++ {
		docs = append(docs, makeDoc(fmt.Sprintf("kubernetes note number %d", i), ""))
	}
	snap := makeSnapshot(docs...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ranking := s.Rank(ctx, snap, corpus.NewQuery("kubernetes", ""), 0)
	if !ranking.Partial {
		t.Error("expected partial ranking under a cancelled context")
	}
	if len(ranking.Candidates) == len(docs) {
		t.Error("expected an incomplete candidate set")
	}
}

// TestScorer_Rank_EmptySnapshot verifies that an empty snapshot ranks to
// nothing without error.
func TestScorer_Rank_EmptySnapshot(t *testing.T) {
	t.Parallel()

	s := New(Config{})
	ranking := s.Rank(context.Background(), &corpus.Snapshot{}, corpus.NewQuery("anything", ""), 0)
	if len(ranking.Candidates) != 0 || ranking.Partial {
		t.Errorf("expected empty complete ranking, got %d candidates partial=%v", len(ranking.Candidates), ranking.Partial)
	}
}

// TestSharedKeywords verifies the intersection count helper.
func TestSharedKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b []string
		want int
	}{
		{[]string{"alpha", "beta"}, []string{"beta", "gamma"}, 1},
		{[]string{"alpha"}, []string{"alpha"}, 1},
		{[]string{"alpha"}, []string{"beta"}, 0},
		{nil, []string{"alpha"}, 0},
		{nil, nil, 0},
	}
	for _, tc := range tests {
		if got := sharedKeywords(tc.a, tc.b); got != tc.want {
			t.Errorf("sharedKeywords(%v, %v): expected %d, got %d", tc.a, tc.b, got, tc.want)
		}
	}
}
