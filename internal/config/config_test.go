package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
corpus:
  dir: /srv/recall/corpus
  chunk_size: 800
  chunk_overlap: 150
scoring:
  weight_direct: 0.7
  min_score: 0.15
  oversample: 3
bias:
  diversity_threshold: 0.4
  dominance_threshold: 0.8
  min_sources: 3
server:
  host: 0.0.0.0
  port: 9090
  rate_limit: 25
logging:
  level: debug
  format: text
history:
  db_path: /srv/recall/history.db
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"RECALL_CORPUS_DIR", "RECALL_CHUNK_SIZE", "RECALL_CHUNK_OVERLAP",
		"RECALL_WEIGHT_DIRECT", "RECALL_MIN_SCORE", "RECALL_OVERSAMPLE",
		"RECALL_DIVERSITY_THRESHOLD", "RECALL_DOMINANCE_THRESHOLD", "RECALL_MIN_SOURCES",
		"RECALL_HOST", "RECALL_PORT", "RECALL_RATE_LIMIT",
		"LOG_LEVEL", "LOG_FORMAT", "RECALL_HISTORY_DB",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"RECALL_CORPUS_DIR":          "/srv/recall/corpus",
		"RECALL_CHUNK_SIZE":          "800",
		"RECALL_CHUNK_OVERLAP":       "150",
		"RECALL_WEIGHT_DIRECT":       "0.7",
		"RECALL_MIN_SCORE":           "0.15",
		"RECALL_OVERSAMPLE":          "3",
		"RECALL_DIVERSITY_THRESHOLD": "0.4",
		"RECALL_DOMINANCE_THRESHOLD": "0.8",
		"RECALL_MIN_SOURCES":         "3",
		"RECALL_HOST":                "0.0.0.0",
		"RECALL_PORT":                "9090",
		"RECALL_RATE_LIMIT":          "25",
		"LOG_LEVEL":                  "debug",
		"LOG_FORMAT":                 "text",
		"RECALL_HISTORY_DB":          "/srv/recall/history.db",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
corpus:
  dir: /from/yaml
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("RECALL_CORPUS_DIR", "/from/env")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("RECALL_CORPUS_DIR"); got != "/from/env" {
		t.Errorf("RECALL_CORPUS_DIR: expected env override %q, got %q", "/from/env", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloatStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.15, "0.15"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := floatStr(tt.in); got != tt.want {
			t.Errorf("floatStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	if got := intStr(0); got != "" {
		t.Errorf("intStr(0) = %q, want empty", got)
	}
	if got := intStr(42); got != "42" {
		t.Errorf("intStr(42) = %q, want 42", got)
	}
}
