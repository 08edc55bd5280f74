package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parityworks/recall/internal/history"
	"github.com/parityworks/recall/internal/logging"
	"github.com/parityworks/recall/internal/server"
)

// NewServeCmd constructs the `recall serve` command, which ingests the
// corpus and starts the HTTP retrieval API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recall HTTP retrieval API",
		Long: `Start the recall HTTP server on localhost.

The server ingests the corpus directory at startup, then exposes a REST API
for bias-aware search, bias analysis, corpus reloads, stats, and search
history. Readiness is reported on /api/ready once ingestion has completed.

Examples:
  recall serve
  recall serve --port 9090
  RECALL_CORPUS_DIR=./knowledge recall serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Flags win; env (possibly set from YAML) fills in when the flag
			// was left at its default.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("RECALL_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("RECALL_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("corpus_dir", getEnvOrDefault("RECALL_CORPUS_DIR", "./corpus")))

			svc, store, err := buildService()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			registry, err := store.Reload(ctx)
			if err != nil {
				return fmt.Errorf("serve: initial ingestion failed: %w", err)
			}
			log.Info("corpus ingested",
				slog.Int("sources", len(registry)),
				slog.Int("documents", registry.TotalDocuments()),
			)

			// Open search history store. RECALL_HISTORY_DB overrides the
			// default path (~/.recall/history.db). Set to "disabled" to turn
			// history off.
			var historyStore history.Recorder
			pingers := []server.Pinger{server.NewSnapshotPinger(svc)}
			dbPath := os.Getenv("RECALL_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = history.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := history.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						pingers = append(pingers, hs)
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via RECALL_HISTORY_DB=disabled")
			}

			srv, err := server.New(svc, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: getEnvFloat("RECALL_RATE_LIMIT", 0),
				RateBurst: getEnvInt("RECALL_RATE_BURST", 0),
				APIKey:    os.Getenv("RECALL_API_KEY"),
				History:   historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
