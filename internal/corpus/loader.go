package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirLoader loads corpus sources from the plain-text files of a directory.
// Only .txt and .md files are considered. File names (not full paths) are
// used as source IDs so snapshots stay stable when the directory moves.
type DirLoader struct {
	// dir is the corpus directory.
	dir string
}

// NewDirLoader constructs a DirLoader for the given directory.
func NewDirLoader(dir string) (*DirLoader, error) {
	if dir == "" {
		return nil, fmt.Errorf("corpus: corpus directory must not be empty")
	}
	return &DirLoader{dir: dir}, nil
}

// Load reads all corpus files, sorted by name for deterministic ingestion
// order. A file that cannot be read is reported via Source.Err so the store
// can skip it and continue; a missing directory is an error since no
// sources can be enumerated at all.
func (l *DirLoader) Load(ctx context.Context) ([]Source, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: read corpus dir %s: %w", l.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			sources = append(sources, Source{ID: name, Err: err})
			continue
		}
		sources = append(sources, Source{ID: name, Text: string(data)})
	}

	return sources, nil
}
