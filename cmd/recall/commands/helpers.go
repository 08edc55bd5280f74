package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/parityworks/recall/internal/bias"
	"github.com/parityworks/recall/internal/corpus"
	"github.com/parityworks/recall/internal/retrieval"
	"github.com/parityworks/recall/internal/scoring"
)

// buildService wires a retrieval service from the environment: directory
// loader, corpus store, scorer, and bias thresholds. Shared by every
// command that runs queries or ingestion.
func buildService() (*retrieval.Service, *corpus.Store, error) {
	dir := getEnvOrDefault("RECALL_CORPUS_DIR", "./corpus")

	loader, err := corpus.NewDirLoader(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("corpus directory %s: %w", dir, err)
	}

	store, err := corpus.NewStore(loader, corpus.Config{
		ChunkSize:    getEnvInt("RECALL_CHUNK_SIZE", 0),
		ChunkOverlap: getEnvInt("RECALL_CHUNK_OVERLAP", 0),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("corpus store: %w", err)
	}

	scorer := scoring.New(scoring.Config{
		Weights: scoring.Weights{
			Direct:   getEnvFloat("RECALL_WEIGHT_DIRECT", 0),
			Token:    getEnvFloat("RECALL_WEIGHT_TOKEN", 0),
			Keyword:  getEnvFloat("RECALL_WEIGHT_KEYWORD", 0),
			Platform: getEnvFloat("RECALL_WEIGHT_PLATFORM", 0),
		},
		MinScore: getEnvFloat("RECALL_MIN_SCORE", 0),
		Workers:  getEnvInt("RECALL_SCORING_WORKERS", 0),
	})

	thresholds := bias.Thresholds{
		Diversity: getEnvFloat("RECALL_DIVERSITY_THRESHOLD", 0),
		Dominance: getEnvFloat("RECALL_DOMINANCE_THRESHOLD", 0),
	}
	if thresholds.Diversity == 0 && thresholds.Dominance == 0 {
		thresholds = bias.DefaultThresholds()
	}

	svc, err := retrieval.New(store, scorer, thresholds, retrieval.Config{
		Oversample: getEnvInt("RECALL_OVERSAMPLE", 0),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval service: %w", err)
	}

	return svc, store, nil
}

// getEnvOrDefault returns the env var value or a fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as an int, or a fallback when
// unset or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat returns the env var parsed as a float64, or a fallback when
// unset or unparseable.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
