// Package config loads cytherea's configuration: defaults, then a YAML
// file, then CY_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sydlexius/cytherea/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Logging   logging.Config  `yaml:"logging"`
	Providers ProvidersConfig `yaml:"providers"`
	Enrich    EnrichConfig    `yaml:"enrich"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Verify    VerifyConfig    `yaml:"verify"`
	Judge     JudgeConfig     `yaml:"judge"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DataConfig locates every file the pipeline reads or writes. Relative
// paths are resolved against Dir.
type DataConfig struct {
	Dir             string        `yaml:"dir" validate:"required"`
	Snapshot        string        `yaml:"snapshot" validate:"required"`
	IndexDB         string        `yaml:"index_db"`
	Seed            string        `yaml:"seed"`
	Overrides       string        `yaml:"overrides"`
	Checkpoint      string        `yaml:"checkpoint"`
	VerifyReport    string        `yaml:"verify_report"`
	ReviewLog       string        `yaml:"review_log"`
	CacheDir        string        `yaml:"cache_dir"`
	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	BackupDir       string        `yaml:"backup_dir"`
	BackupRetention int           `yaml:"backup_retention" validate:"gte=0"`
}

// ProvidersConfig holds credentials and per-provider knobs.
type ProvidersConfig struct {
	LastFMKey    string             `yaml:"lastfm_api_key"`
	DiscogsToken string             `yaml:"discogs_token"`
	RateLimits   map[string]float64 `yaml:"rate_limits" validate:"dive,gte=0"`
	Disabled     []string           `yaml:"disabled"`
}

// EnrichConfig controls batched enrichment.
type EnrichConfig struct {
	BatchSize int `yaml:"batch_size" validate:"gte=1,lte=50"`
}

// DiscoveryConfig controls similarity-graph discovery.
type DiscoveryConfig struct {
	Seeds           []string      `yaml:"seeds"`
	MaxDepth        int           `yaml:"max_depth" validate:"gte=1,lte=10"`
	MaxCandidates   int           `yaml:"max_candidates" validate:"gte=1"`
	MinBirthYear    int           `yaml:"min_birth_year" validate:"gte=1600"`
	Delay           time.Duration `yaml:"delay" validate:"gte=0"`
	CheckpointEvery int           `yaml:"checkpoint_every" validate:"gte=1"`
	JudgeBatchSize  int           `yaml:"judge_batch_size" validate:"gte=1"`
}

// VerifyConfig controls the discrepancy verifier.
type VerifyConfig struct {
	CheckpointEvery int           `yaml:"checkpoint_every" validate:"gte=1"`
	Delay           time.Duration `yaml:"delay" validate:"gte=0"`
}

// JudgeConfig configures the optional aesthetic-fit filter. An empty API
// key disables it.
type JudgeConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	Aesthetic string        `yaml:"aesthetic"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:             "data",
			Snapshot:        "artists.json",
			IndexDB:         "artists.db",
			Seed:            "seed.json",
			Overrides:       "overrides.yaml",
			Checkpoint:      "discovery-checkpoint.json",
			VerifyReport:    "verify-report.json",
			ReviewLog:       "review.jsonl",
			CacheDir:        "cache",
			CacheTTL:        7 * 24 * time.Hour,
			BackupDir:       "backups",
			BackupRetention: 10,
		},
		Logging: logging.DefaultConfig(),
		Enrich:  EnrichConfig{BatchSize: 5},
		Discovery: DiscoveryConfig{
			MaxDepth:        2,
			MaxCandidates:   200,
			MinBirthYear:    1940,
			Delay:           2 * time.Second,
			CheckpointEvery: 10,
			JudgeBatchSize:  20,
		},
		Verify: VerifyConfig{
			CheckpointEvery: 25,
			Delay:           3 * time.Second,
		},
		Judge: JudgeConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.resolvePaths()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"CY_DATA_DIR":         &c.Data.Dir,
		"CY_SNAPSHOT":         &c.Data.Snapshot,
		"CY_INDEX_DB":         &c.Data.IndexDB,
		"CY_OVERRIDES":        &c.Data.Overrides,
		"CY_LOG_LEVEL":        &c.Logging.Level,
		"CY_LOG_FORMAT":       &c.Logging.Format,
		"CY_LOG_FILE":         &c.Logging.FilePath,
		"CY_LASTFM_API_KEY":   &c.Providers.LastFMKey,
		"CY_DISCOGS_TOKEN":    &c.Providers.DiscogsToken,
		"CY_JUDGE_BASE_URL":   &c.Judge.BaseURL,
		"CY_JUDGE_MODEL":      &c.Judge.Model,
		"CY_JUDGE_API_KEY":    &c.Judge.APIKey,
		"CY_METRICS_TEXTFILE": &c.Metrics.TextfilePath,
	}
	for k, p := range strs {
		if v := os.Getenv(k); v != "" {
			*p = v
		}
	}

	ints := map[string]*int{
		"CY_ENRICH_BATCH_SIZE":   &c.Enrich.BatchSize,
		"CY_DISCOVERY_MAX_DEPTH": &c.Discovery.MaxDepth,
		"CY_DISCOVERY_MAX":       &c.Discovery.MaxCandidates,
		"CY_DISCOVERY_MIN_YEAR":  &c.Discovery.MinBirthYear,
		"CY_VERIFY_CHECKPOINT":   &c.Verify.CheckpointEvery,
		"CY_BACKUP_RETENTION":    &c.Data.BackupRetention,
	}
	for k, p := range ints {
		if v := os.Getenv(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*p = n
		}
	}

	durations := map[string]*time.Duration{
		"CY_DISCOVERY_DELAY": &c.Discovery.Delay,
		"CY_VERIFY_DELAY":    &c.Verify.Delay,
		"CY_CACHE_TTL":       &c.Data.CacheTTL,
	}
	for k, p := range durations {
		if v := os.Getenv(k); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*p = d
		}
	}

	if v := os.Getenv("CY_DISCOVERY_SEEDS"); v != "" {
		c.Discovery.Seeds = splitList(v)
	}
	if v := os.Getenv("CY_DISABLED_PROVIDERS"); v != "" {
		c.Providers.Disabled = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validate checks struct tags and reports every failing field by its YAML
// name.
func (c *Config) validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", strings.TrimPrefix(e.Namespace(), "Config."), friendlyMessage(e)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// resolvePaths makes every relative data path absolute under Data.Dir.
// Empty optional paths stay empty, which disables that feature.
func (c *Config) resolvePaths() {
	for _, p := range []*string{
		&c.Data.Snapshot, &c.Data.IndexDB, &c.Data.Seed, &c.Data.Overrides,
		&c.Data.Checkpoint, &c.Data.VerifyReport, &c.Data.ReviewLog,
		&c.Data.CacheDir, &c.Data.BackupDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Data.Dir, *p)
		}
	}
}

// ProviderDisabled reports whether a provider was switched off by name.
func (c *Config) ProviderDisabled(name string) bool {
	for _, d := range c.Providers.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// JudgeEnabled reports whether the aesthetic-fit filter can run.
func (c *Config) JudgeEnabled() bool {
	return c.Judge.APIKey != "" && strings.TrimSpace(c.Judge.Aesthetic) != ""
}
