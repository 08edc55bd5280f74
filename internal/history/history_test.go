package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// openTestStore opens a store on a throwaway database file.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestSQLiteStore_RecordAndRecall verifies the write-then-read round trip
// with newest-first ordering.
func TestSQLiteStore_RecordAndRecall(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	records := []SearchRecord{
		{Query: "first query", TopK: 5, ResultCount: 3, DiversityScore: 0.8, Duration: 12 * time.Millisecond},
		{Query: "second query", TopK: 10, ResultCount: 5, DiversityScore: 0.4, BiasDetected: true, Duration: 30 * time.Millisecond},
		{Query: "third query", TopK: 5, ResultCount: 0, Partial: true, Duration: 5 * time.Millisecond},
	}
	for _, rec := range records {
		if err := s.RecordSearch(ctx, rec); err != nil {
			t.Fatalf("RecordSearch: %v", err)
		}
	}

	got, err := s.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	// Newest first.
	if got[0].Query != "third query" || got[2].Query != "first query" {
		t.Errorf("unexpected order: %q .. %q", got[0].Query, got[2].Query)
	}
	if !got[0].Partial {
		t.Error("partial flag lost in round trip")
	}
	if !got[1].BiasDetected {
		t.Error("bias flag lost in round trip")
	}
	if got[1].Duration != 30*time.Millisecond {
		t.Errorf("duration lost in round trip: %v", got[1].Duration)
	}
	if got[2].DiversityScore != 0.8 {
		t.Errorf("diversity score lost in round trip: %v", got[2].DiversityScore)
	}
}

// TestSQLiteStore_Limit verifies the row limit on recall.
func TestSQLiteStore_Limit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.RecordSearch(ctx, SearchRecord{Query: "q", TopK: 5}); err != nil {
			t.Fatalf("RecordSearch: %v", err)
		}
	}

	got, err := s.RecentSearches(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}

// TestSQLiteStore_Empty verifies recall on a fresh database.
func TestSQLiteStore_Empty(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	got, err := s.RecentSearches(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

// TestSQLiteStore_Ping verifies the readiness probe contract.
func TestSQLiteStore_Ping(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if s.Name() != "history" {
		t.Errorf("expected probe name 'history', got %q", s.Name())
	}
}
