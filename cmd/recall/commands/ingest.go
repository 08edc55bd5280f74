package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/logging"
)

// NewIngestCmd constructs the `recall ingest` command, which runs the corpus
// ingestion pipeline once and reports what was indexed. It is a dry-run
// style check: the serve command ingests on startup regardless.
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the corpus directory and report what was indexed",
		Long: `Read the corpus directory, chunk and classify every source, and print the
resulting registry. Useful for validating a corpus before serving it.

The corpus directory is taken from RECALL_CORPUS_DIR (default ./corpus).
Only .txt and .md files are indexed; unreadable files are skipped with a
warning rather than failing the run.

Examples:
  recall ingest
  RECALL_CORPUS_DIR=./knowledge recall ingest
  RECALL_CHUNK_SIZE=500 RECALL_CHUNK_OVERLAP=100 recall ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			_, store, err := buildService()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			registry, err := store.Reload(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			for _, src := range registry.SourceFiles() {
				stats := registry[src]
				fmt.Printf("%s: %d chunks, avg %d chars\n", src, stats.DocumentCount, stats.AvgChunkLen)
			}
			fmt.Printf("\n%d sources, %d documents\n", len(registry), registry.TotalDocuments())

			log.Info("ingestion complete",
				slog.Int("sources", len(registry)),
				slog.Int("documents", registry.TotalDocuments()),
			)
			return nil
		},
	}
}
