// Package config provides configuration loading for the talentsearch server.
// Settings come from a yaml file with defaults applied, then environment
// overrides for the graph rollout knobs. Invalid env values fall back to the
// file value instead of failing startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Search     SearchConfig     `yaml:"search"`
	Graph      GraphConfig      `yaml:"graph"`
	Cache      CacheConfig      `yaml:"cache"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Queue      QueueConfig      `yaml:"queue"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the profile database and indices. Empty
// KVPath or BleveIndexPath selects in-memory stores.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	KVPath         string `yaml:"kv_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig holds the embedding endpoint settings. An empty base URL
// selects the deterministic mock embedder.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// ExtractionConfig holds the LLM skill-extraction endpoint settings. An
// empty base URL selects the vocabulary extractor fed from the skill library.
type ExtractionConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	Model     string `yaml:"model"`
	MaxSkills int    `yaml:"max_skills"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	BlendWeight float64 `yaml:"blend_weight"`
	RecallLimit int     `yaml:"recall_limit"`
	TitleBoost  float64 `yaml:"title_boost"`
}

// GraphConfig holds the expansion rollout and traversal bounds.
type GraphConfig struct {
	Mode             string `yaml:"mode"` // off, shadow, on
	TrafficPercent   int    `yaml:"traffic_percent"`
	MaxDepth         int    `yaml:"max_depth"`
	ContainsMaxDepth int    `yaml:"contains_max_depth"`
	PerSeedLimit     int    `yaml:"per_seed_limit"`
	GlobalLimit      int    `yaml:"global_limit"`
	CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
	PolicyVersion    int    `yaml:"policy_version"`
}

// CacheConfig holds the two-tier search cache settings.
type CacheConfig struct {
	TTLSeconds          int     `yaml:"ttl_seconds"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Disabled            bool    `yaml:"disabled"`
}

// BreakerConfig holds circuit breaker settings shared across dependencies.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	WindowSeconds    int `yaml:"window_seconds"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

// QueueConfig holds broker retry settings.
type QueueConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	BaseBackoffMS int `yaml:"base_backoff_ms"`
	Buffer        int `yaml:"buffer"`
}

// IngestConfig holds pipeline chunking and threshold settings.
type IngestConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	IndexThreshold float64 `yaml:"index_threshold"`
	CacheThreshold float64 `yaml:"cache_threshold"`
}

// TaxonomyConfig holds the sync file location and watch toggle.
type TaxonomyConfig struct {
	FilePath string `yaml:"file_path"`
	Watch    bool   `yaml:"watch"`
}

// AlertsConfig holds operational alert thresholds.
type AlertsConfig struct {
	FallbackRate        float64 `yaml:"fallback_rate"`
	ZeroExpansionRate   float64 `yaml:"zero_expansion_rate"`
	MinSamples          int     `yaml:"min_samples"`
	IngestionStallHours int     `yaml:"ingestion_stall_hours"`
	CooldownMinutes     int     `yaml:"cooldown_minutes"`
	IntervalSeconds     int     `yaml:"interval_seconds"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands storage paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KVPath = expandPath(cfg.Storage.KVPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Taxonomy.FilePath = expandPath(cfg.Taxonomy.FilePath, configDir)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	return &cfg
}

// expandPath converts a relative path to absolute against configDir. Empty
// paths stay empty; they select in-memory stores.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}
