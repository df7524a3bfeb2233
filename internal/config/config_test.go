package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enrich.BatchSize != 5 {
		t.Errorf("batch size = %d, want 5", cfg.Enrich.BatchSize)
	}
	if cfg.Discovery.MinBirthYear != 1940 || cfg.Discovery.MaxDepth != 2 {
		t.Errorf("discovery = %+v", cfg.Discovery)
	}
	if cfg.Verify.CheckpointEvery != 25 || cfg.Verify.Delay != 3*time.Second {
		t.Errorf("verify = %+v", cfg.Verify)
	}
	if cfg.Data.Snapshot != filepath.Join("data", "artists.json") {
		t.Errorf("snapshot = %q, want it under the data dir", cfg.Data.Snapshot)
	}
	if cfg.JudgeEnabled() {
		t.Error("judge should be disabled without a key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file should fall back to defaults, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data:
  dir: /srv/cytherea
  snapshot: /elsewhere/artists.json
  index_db: ""
discovery:
  seeds: [Burial, Kode9]
  delay: 500ms
  max_depth: 3
judge:
  api_key: sk-test
  aesthetic: dark, hypnotic electronic music
providers:
  rate_limits:
    musicbrainz: 0.5
  disabled: [discogs]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.Snapshot != "/elsewhere/artists.json" {
		t.Errorf("absolute snapshot path changed: %q", cfg.Data.Snapshot)
	}
	if cfg.Data.Overrides != "/srv/cytherea/overrides.yaml" {
		t.Errorf("overrides = %q", cfg.Data.Overrides)
	}
	if cfg.Data.IndexDB != "" {
		t.Errorf("empty index path should stay empty, got %q", cfg.Data.IndexDB)
	}
	if cfg.Discovery.Delay != 500*time.Millisecond || cfg.Discovery.MaxDepth != 3 {
		t.Errorf("discovery = %+v", cfg.Discovery)
	}
	if len(cfg.Discovery.Seeds) != 2 {
		t.Errorf("seeds = %v", cfg.Discovery.Seeds)
	}
	if !cfg.JudgeEnabled() {
		t.Error("judge should be enabled with key and aesthetic")
	}
	if !cfg.ProviderDisabled("Discogs") || cfg.ProviderDisabled("lastfm") {
		t.Errorf("disabled = %v", cfg.Providers.Disabled)
	}
	if cfg.Providers.RateLimits["musicbrainz"] != 0.5 {
		t.Errorf("rate limits = %v", cfg.Providers.RateLimits)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CY_LASTFM_API_KEY", "env-key")
	t.Setenv("CY_ENRICH_BATCH_SIZE", "8")
	t.Setenv("CY_VERIFY_DELAY", "1s")
	t.Setenv("CY_DISCOVERY_SEEDS", "Burial, Kode9 ,")

	path := writeConfig(t, "providers:\n  lastfm_api_key: file-key\nenrich:\n  batch_size: 3\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LastFMKey != "env-key" {
		t.Errorf("env should win over file, got %q", cfg.Providers.LastFMKey)
	}
	if cfg.Enrich.BatchSize != 8 || cfg.Verify.Delay != time.Second {
		t.Errorf("enrich=%+v verify=%+v", cfg.Enrich, cfg.Verify)
	}
	if strings.Join(cfg.Discovery.Seeds, "|") != "Burial|Kode9" {
		t.Errorf("seeds = %q", cfg.Discovery.Seeds)
	}
}

func TestEnvBadNumber(t *testing.T) {
	t.Setenv("CY_ENRICH_BATCH_SIZE", "five")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "CY_ENRICH_BATCH_SIZE") {
		t.Errorf("expected an error naming the variable, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"zero batch", "enrich:\n  batch_size: 0\n", "enrich.batch_size"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"old floor", "discovery:\n  min_birth_year: 1200\n", "discovery.min_birth_year"},
		{"negative rate", "providers:\n  rate_limits:\n    lastfm: -1\n", "providers.rate_limits"},
		{"bad judge url", "judge:\n  base_url: not a url\n", "judge.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name %s", err, tt.field)
			}
		})
	}
}
