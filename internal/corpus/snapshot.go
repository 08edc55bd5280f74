package corpus

import (
	"sort"
)

// SourceStats summarises one source within a snapshot.
type SourceStats struct {
	// DocumentCount is the number of chunks ingested from this source.
	DocumentCount int `json:"documentCount"`

	// AvgChunkLen is the mean chunk length in characters.
	AvgChunkLen int `json:"avgChunkLen"`
}

// SourceRegistry maps source file identifiers to their ingestion stats.
// It is derived from the document list on every ingestion and never
// hand-edited.
type SourceRegistry map[string]SourceStats

// SourceFiles returns the registry's source identifiers in sorted order.
func (r SourceRegistry) SourceFiles() []string {
	files := make([]string, 0, len(r))
	for f := range r {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// TotalDocuments returns the number of documents across all sources.
func (r SourceRegistry) TotalDocuments() int {
	total := 0
	for _, s := range r {
		total += s.DocumentCount
	}
	return total
}

// Snapshot is an immutable, versioned view of the indexed corpus at one
// point in time. A Store holds exactly one current snapshot; reload builds
// a new one and swaps the pointer, so a Snapshot handed to a reader never
// changes underneath it.
type Snapshot struct {
	// Version increments on every successful ingestion.
	Version uint64

	// Documents is the ordered document list. Order is the stable ingestion
	// order (sources sorted by ID, chunks in sequence) and is the tie-break
	// order for equal relevance scores.
	Documents []Document

	// Registry maps each source file to its ingestion stats.
	Registry SourceRegistry
}

// Len returns the number of documents in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Documents)
}

// DistinctSources returns the number of distinct source files.
func (s *Snapshot) DistinctSources() int {
	if s == nil {
		return 0
	}
	return len(s.Registry)
}

// buildRegistry derives the SourceRegistry from an ordered document list.
func buildRegistry(docs []Document) SourceRegistry {
	counts := make(map[string]int)
	lengths := make(map[string]int)
	for _, d := range docs {
		counts[d.Metadata.SourceFile]++
		lengths[d.Metadata.SourceFile] += len(d.Content)
	}

	registry := make(SourceRegistry, len(counts))
	for file, n := range counts {
		registry[file] = SourceStats{
			DocumentCount: n,
			AvgChunkLen:   lengths[file] / n,
		}
	}
	return registry
}
