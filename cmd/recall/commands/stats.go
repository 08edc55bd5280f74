package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/history"
	"github.com/parityworks/recall/internal/logging"
)

// NewStatsCmd constructs the `recall stats` command, which prints corpus
// composition and optionally the recent search history.
func NewStatsCmd() *cobra.Command {
	var showHistory int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus composition and recent search history",
		Long: `Ingest the corpus and print its per-source composition: chunk counts and
average chunk lengths. With --history N, also print the N most recent
searches from the history database.

Examples:
  recall stats
  recall stats --history 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			_, store, err := buildService()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			registry, err := store.Reload(ctx)
			if err != nil {
				return fmt.Errorf("stats: ingestion failed: %w", err)
			}

			snapshot := store.Snapshot()
			fmt.Printf("snapshot version %d: %d sources, %d documents\n\n",
				snapshot.Version, len(registry), registry.TotalDocuments())
			for _, src := range registry.SourceFiles() {
				stats := registry[src]
				fmt.Printf("  %s: %d chunks, avg %d chars\n", src, stats.DocumentCount, stats.AvgChunkLen)
			}

			if showHistory <= 0 {
				return nil
			}

			dbPath := os.Getenv("RECALL_HISTORY_DB")
			if dbPath == "disabled" {
				fmt.Println("\nhistory: disabled")
				return nil
			}
			if dbPath == "" {
				dbPath, err = history.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("stats: history path: %w", err)
				}
			}

			hs, err := history.Open(dbPath)
			if err != nil {
				return fmt.Errorf("stats: open history: %w", err)
			}
			defer func() { _ = hs.Close() }()

			records, err := hs.RecentSearches(ctx, showHistory)
			if err != nil {
				return fmt.Errorf("stats: read history: %w", err)
			}

			fmt.Printf("\nrecent searches (%d):\n", len(records))
			for _, r := range records {
				marker := ""
				if r.BiasDetected {
					marker = " [bias]"
				}
				fmt.Printf("  %s  %q  %d results, diversity %.2f, %s%s\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Query, r.ResultCount, r.DiversityScore, r.Duration.Round(time.Millisecond), marker)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&showHistory, "history", 0, "Also print the N most recent searches")

	return cmd
}
