package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/logging"
)

// NewAnalyzeCmd constructs the `recall analyze` command, which compares
// naive and balanced retrieval for a query to show what balancing changed.
func NewAnalyzeCmd() *cobra.Command {
	var topK int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [query]",
		Short: "Compare naive and balanced retrieval for a query",
		Long: `Run a query both ways — naive top-K and bias-balanced — and report the
source distribution of each, so you can see whether balancing actually
changed what would be retrieved.

Examples:
  recall analyze "linkedin headline for a platform engineer"
  recall analyze --top-k 10 --json "senior engineer summary"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svc, store, err := buildService()
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			if _, err := store.Reload(ctx); err != nil {
				return fmt.Errorf("analyze: ingestion failed: %w", err)
			}

			cmp := svc.AnalyzeBias(ctx, strings.Join(args, " "), topK)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cmp)
			}

			fmt.Printf("query: %s\n\n", cmp.Query)
			fmt.Printf("unbalanced: diversity %.2f, dominant share %.2f, sources %v\n",
				cmp.Unbalanced.DiversityScore, cmp.Unbalanced.DominantSourceShare, cmp.Unbalanced.SourceDistribution)
			fmt.Printf("balanced:   diversity %.2f, dominant share %.2f, sources %v\n",
				cmp.Balanced.DiversityScore, cmp.Balanced.DominantSourceShare, cmp.Balanced.SourceDistribution)
			fmt.Printf("\ndiversity improvement: %+.2f", cmp.DiversityImprovement)
			if cmp.BalancingEffective {
				fmt.Print("  (balancing effective)")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to analyze at (default 5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the comparison as JSON")

	return cmd
}
