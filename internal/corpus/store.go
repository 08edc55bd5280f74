package corpus

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/parityworks/recall/internal/logging"
)

// Source is one raw text blob to be ingested, keyed by a stable identifier.
type Source struct {
	// ID is the stable source identifier (typically a file name).
	ID string

	// Text is the raw source text.
	Text string

	// Err records a read failure for this source. Sources with a non-nil
	// Err are skipped with a warning; ingestion continues with the rest.
	Err error
}

// Loader supplies the set of raw sources for ingestion. The engine does not
// own file-system watching or reload scheduling — a collaborator calls
// Store.Reload when the underlying corpus may have changed.
type Loader interface {
	// Load returns all available sources. Individual unreadable sources are
	// reported via Source.Err rather than failing the whole load; a non-nil
	// error means the corpus location itself is unavailable.
	Load(ctx context.Context) ([]Source, error)
}

// Config holds the ingestion configuration for a Store.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	// Defaults to DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks.
	// Defaults to DefaultChunkOverlap if negative or zero.
	ChunkOverlap int

	// Classifier assigns source types and platform tags.
	// Defaults to NewKeywordClassifier() if nil.
	Classifier SourceClassifier
}

// Store turns raw sources into immutable snapshots and owns the current
// snapshot pointer. Reads never block: Snapshot returns the current pointer
// atomically and the returned value is never mutated. Reload serialises
// writers with a mutex, but ingestion work happens outside the swap — a
// failed reload leaves the old snapshot authoritative.
type Store struct {
	// loader supplies raw sources on ingest and reload.
	loader Loader

	// chunker splits source text into windows.
	chunker *Chunker

	// classifier assigns source types and platform tags.
	classifier SourceClassifier

	// current is the atomically-swapped snapshot pointer.
	current atomic.Pointer[Snapshot]

	// mu serialises writers. Held only around the version bump and pointer
	// swap, never during ingestion work.
	mu sync.Mutex

	// version is the last assigned snapshot version, guarded by mu.
	version uint64
}

// NewStore constructs a Store over the given loader. The store starts with
// an empty snapshot; call Reload to perform the initial ingestion.
func NewStore(loader Loader, cfg Config) (*Store, error) {
	if loader == nil {
		return nil, fmt.Errorf("corpus: loader must not be nil")
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewKeywordClassifier()
	}

	s := &Store{
		loader:     loader,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		classifier: cfg.Classifier,
	}
	s.current.Store(&Snapshot{Registry: SourceRegistry{}})
	return s, nil
}

// Snapshot returns the current snapshot. The returned value is immutable;
// callers may hold it for the duration of a request even across a
// concurrent reload.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Stats returns the SourceRegistry of the current snapshot.
func (s *Store) Stats() SourceRegistry {
	return s.current.Load().Registry
}

// Reload re-reads all sources via the loader, re-ingests them, and swaps in
// the new snapshot. On failure the previous snapshot remains authoritative
// and the error is returned. Concurrent readers are unaffected either way.
func (s *Store) Reload(ctx context.Context) (SourceRegistry, error) {
	sources, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus: load sources: %w", err)
	}
	return s.Ingest(ctx, sources)
}

// Ingest chunks, classifies, and indexes the given sources into a new
// snapshot, then atomically replaces the current one. Sources with a
// read error are skipped with a warning. An empty source set is valid and
// produces an empty snapshot.
//
// Ingestion is deterministic: sources are processed in sorted ID order and
// chunk IDs are derived from (source ID, chunk index), so identical input
// always produces identical document IDs and ordering.
func (s *Store) Ingest(ctx context.Context, sources []Source) (SourceRegistry, error) {
	log := logging.FromContext(ctx)

	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var docs []Document
	skipped := 0

	for _, src := range ordered {
		if src.Err != nil {
			skipped++
			log.Warn("corpus: skipping unreadable source",
				slog.String("source", src.ID),
				slog.Any("error", src.Err),
			)
			continue
		}

		sourceType, platformTag := s.classifier.Classify(src.ID, src.Text)

		for i, chunk := range s.chunker.Chunk(src.Text) {
			docs = append(docs, Document{
				ID:                chunkID(src.ID, i),
				Content:           chunk,
				NormalizedContent: normalize(chunk),
				Keywords:          ExtractKeywords(chunk),
				Metadata: Metadata{
					SourceFile:  src.ID,
					SourceType:  sourceType,
					PlatformTag: platformTag,
					ChunkIndex:  i,
				},
			})
		}
	}

	snapshot := &Snapshot{
		Documents: docs,
		Registry:  buildRegistry(docs),
	}

	s.mu.Lock()
	s.version++
	snapshot.Version = s.version
	s.current.Store(snapshot)
	s.mu.Unlock()

	log.Info("corpus: snapshot ingested",
		slog.Uint64("version", snapshot.Version),
		slog.Int("documents", len(docs)),
		slog.Int("sources", len(snapshot.Registry)),
		slog.Int("skipped", skipped),
	)

	return snapshot.Registry, nil
}

// chunkID derives a deterministic document ID from the source ID and the
// chunk's position within it.
func chunkID(sourceID string, index int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s#%d", sourceID, index))
	return fmt.Sprintf("%x", h[:16])
}

// normalize lowercases content for matching.
func normalize(s string) string {
	return strings.ToLower(s)
}
