// Package commands defines all Cobra CLI commands for the recall binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/audit"
	"github.com/parityworks/recall/internal/config"
	"github.com/parityworks/recall/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recall",
		Short: "recall — bias-aware retrieval over a local document corpus",
		Long: `recall is a local-first retrieval engine for grounding text generation.

It indexes a directory of plain-text and Markdown sources into fixed-size
overlapping chunks, ranks them against natural-language queries with a
keyword similarity scorer, and rebalances the results so no single source
dominates what a downstream consumer sees.

Corpus location is selected via the RECALL_CORPUS_DIR environment variable
or a YAML config file (~/.recall/config.yaml).
See 'recall --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.recall/config.yaml)")

	root.AddCommand(
		NewSearchCmd(),
		NewAnalyzeCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewStatsCmd(),
		NewVersionCmd(),
	)

	return root
}
