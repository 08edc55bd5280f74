package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/history"
	"github.com/parityworks/recall/internal/logging"
	"github.com/parityworks/recall/internal/retrieval"
)

// NewSearchCmd constructs the `recall search` command, which runs a single
// bias-aware query against the corpus and prints the results.
func NewSearchCmd() *cobra.Command {
	var topK int
	var platform string
	var minSources int
	var maxPerSource int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the corpus with bias-aware balancing",
		Long: `Run a single query against the corpus and print the balanced results.

The corpus directory is ingested fresh for each invocation, ranked against
the query, and rebalanced so no single source dominates the result set.
Bias metrics for the returned set are printed alongside the results.

Examples:
  recall search "kubernetes platform experience"
  recall search --top-k 10 "backend engineer python"
  recall search --platform linkedin "summary for a staff engineer role"
  recall search --json "data pipeline skills" | jq .biasMetrics`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svc, store, err := buildService()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if _, err := store.Reload(ctx); err != nil {
				return fmt.Errorf("search: ingestion failed: %w", err)
			}

			query := strings.Join(args, " ")
			start := time.Now()
			resp := svc.Search(ctx, retrieval.Request{
				Text:         query,
				TopK:         topK,
				PlatformHint: platform,
				MinSources:   minSources,
				MaxPerSource: maxPerSource,
			})
			elapsed := time.Since(start)

			recordCLISearch(ctx, query, topK, resp, elapsed)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			printResponse(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (default 5)")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Platform hint to boost tagged sources (e.g. linkedin)")
	cmd.Flags().IntVar(&minSources, "min-sources", 0, "Minimum distinct sources in the result set (default 2)")
	cmd.Flags().IntVar(&maxPerSource, "max-per-source", 0, "Maximum results from any single source (default derived)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")

	return cmd
}

// printResponse renders a search response for human consumption.
func printResponse(resp retrieval.Response) {
	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return
	}

	for i, r := range resp.Results {
		fmt.Printf("%d. [%.2f] %s (%s)\n", i+1, r.Score, r.SourceFile, r.SourceType)
		fmt.Printf("   %s\n", firstLine(r.Content, 160))
	}

	fmt.Printf("\nsources: %d distinct, diversity %.2f, dominant share %.2f",
		len(resp.Metrics.SourceDistribution),
		resp.Metrics.DiversityScore,
		resp.Metrics.DominantSourceShare,
	)
	if resp.Metrics.BiasDetected {
		fmt.Print("  [bias detected]")
	}
	fmt.Println()

	for _, n := range resp.Notes {
		fmt.Printf("note: %s\n", n)
	}
	if resp.Partial {
		fmt.Println("note: deadline expired mid-scoring, results are partial")
	}
}

// firstLine returns the first line of s truncated to max characters.
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "…"
	}
	return s
}

// recordCLISearch appends the query to the search history store when one is
// configured. Failures are silent — history must never break a search.
func recordCLISearch(ctx context.Context, query string, topK int, resp retrieval.Response, elapsed time.Duration) {
	dbPath := os.Getenv("RECALL_HISTORY_DB")
	if dbPath == "disabled" {
		return
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			return
		}
	}

	hs, err := history.Open(dbPath)
	if err != nil {
		return
	}
	defer func() { _ = hs.Close() }()

	_ = hs.RecordSearch(ctx, history.SearchRecord{
		Query:          query,
		TopK:           topK,
		ResultCount:    len(resp.Results),
		DiversityScore: resp.Metrics.DiversityScore,
		BiasDetected:   resp.Metrics.BiasDetected,
		Partial:        resp.Partial,
		Duration:       elapsed,
		CreatedAt:      time.Now(),
	})
}
