// Package config provides YAML-based configuration for recall.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. RECALL_CONFIG environment variable
//  3. ~/.recall/config.yaml
//  4. ./recall.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Corpus configures the knowledge-base corpus and chunking.
	Corpus CorpusConfig `yaml:"corpus"`

	// Scoring configures the similarity scorer weights and worker pool.
	Scoring ScoringConfig `yaml:"scoring"`

	// Bias configures bias detection thresholds and diversity constraints.
	Bias BiasConfig `yaml:"bias"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures search history persistence.
	History HistoryConfig `yaml:"history"`
}

// CorpusConfig holds corpus location and chunking settings.
type CorpusConfig struct {
	// Dir is the knowledge-base directory containing .txt/.md sources.
	Dir string `yaml:"dir"`
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// ScoringConfig holds similarity scorer settings.
type ScoringConfig struct {
	// WeightDirect is the score added for a verbatim query match.
	WeightDirect float64 `yaml:"weight_direct"`
	// WeightToken is the score added per matching query token.
	WeightToken float64 `yaml:"weight_token"`
	// WeightKeyword is the score added per shared keyword.
	WeightKeyword float64 `yaml:"weight_keyword"`
	// WeightPlatform is the score added for a platform hint match.
	WeightPlatform float64 `yaml:"weight_platform"`
	// MinScore is the relevance floor below which documents are dropped.
	MinScore float64 `yaml:"min_score"`
	// Oversample is the candidate multiplier handed to the selector.
	Oversample int `yaml:"oversample"`
	// Workers bounds the scoring worker pool. 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// BiasConfig holds bias detection and balancing settings.
type BiasConfig struct {
	// DiversityThreshold is the diversity score floor for bias detection.
	DiversityThreshold float64 `yaml:"diversity_threshold"`
	// DominanceThreshold is the dominant-source share ceiling.
	DominanceThreshold float64 `yaml:"dominance_threshold"`
	// MinSources is the default minimum distinct sources per result set.
	MinSources int `yaml:"min_sources"`
	// MaxPerSource is the default per-source result cap. 0 derives it
	// from topK and MinSources.
	MaxPerSource int `yaml:"max_per_source"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var RECALL_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the sustained per-IP request rate (requests/second).
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the maximum per-IP instantaneous burst.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds search history persistence settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. "disabled" turns history off.
	DBPath string `yaml:"db_path"`
}

// envMapping links a YAML value to its environment variable.
type envMapping struct {
	// envKey is the environment variable name.
	envKey string
	// value extracts the YAML value as a string ("" means unset).
	value func(c *Config) string
}

// mappings is the full YAML→env translation table. Order matters only for
// log readability.
var mappings = []envMapping{
	{"RECALL_CORPUS_DIR", func(c *Config) string { return c.Corpus.Dir }},
	{"RECALL_CHUNK_SIZE", func(c *Config) string { return intStr(c.Corpus.ChunkSize) }},
	{"RECALL_CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Corpus.ChunkOverlap) }},
	{"RECALL_WEIGHT_DIRECT", func(c *Config) string { return floatStr(c.Scoring.WeightDirect) }},
	{"RECALL_WEIGHT_TOKEN", func(c *Config) string { return floatStr(c.Scoring.WeightToken) }},
	{"RECALL_WEIGHT_KEYWORD", func(c *Config) string { return floatStr(c.Scoring.WeightKeyword) }},
	{"RECALL_WEIGHT_PLATFORM", func(c *Config) string { return floatStr(c.Scoring.WeightPlatform) }},
	{"RECALL_MIN_SCORE", func(c *Config) string { return floatStr(c.Scoring.MinScore) }},
	{"RECALL_OVERSAMPLE", func(c *Config) string { return intStr(c.Scoring.Oversample) }},
	{"RECALL_SCORING_WORKERS", func(c *Config) string { return intStr(c.Scoring.Workers) }},
	{"RECALL_DIVERSITY_THRESHOLD", func(c *Config) string { return floatStr(c.Bias.DiversityThreshold) }},
	{"RECALL_DOMINANCE_THRESHOLD", func(c *Config) string { return floatStr(c.Bias.DominanceThreshold) }},
	{"RECALL_MIN_SOURCES", func(c *Config) string { return intStr(c.Bias.MinSources) }},
	{"RECALL_MAX_PER_SOURCE", func(c *Config) string { return intStr(c.Bias.MaxPerSource) }},
	{"RECALL_HOST", func(c *Config) string { return c.Server.Host }},
	{"RECALL_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"RECALL_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"RECALL_RATE_LIMIT", func(c *Config) string { return floatStr(c.Server.RateLimit) }},
	{"RECALL_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"RECALL_HISTORY_DB", func(c *Config) string { return c.History.DBPath }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range mappings {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("RECALL_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".recall", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("recall.yaml"); err == nil {
		return "recall.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
