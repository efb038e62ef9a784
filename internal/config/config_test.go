package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not parsed")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Graph.Mode != "off" {
		t.Errorf("mode = %q", cfg.Graph.Mode)
	}
	if cfg.Search.BlendWeight != 0.3 {
		t.Errorf("blend weight = %v", cfg.Search.BlendWeight)
	}
	if cfg.Cache.TTLSeconds != 24*60*60 {
		t.Errorf("cache ttl = %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Alerts.FallbackRate != 0.20 {
		t.Errorf("fallback rate = %v", cfg.Alerts.FallbackRate)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
graph:
  mode: shadow
  traffic_percent: 25
  max_depth: 2
search:
  blend_weight: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Mode != "shadow" || cfg.Graph.TrafficPercent != 25 || cfg.Graph.MaxDepth != 2 {
		t.Errorf("graph = %+v", cfg.Graph)
	}
	if cfg.Search.BlendWeight != 0.5 {
		t.Errorf("blend weight = %v", cfg.Search.BlendWeight)
	}
}

func TestLoadExpandsRelativePaths(t *testing.T) {
	path := writeConfig(t, "storage:\n  database_path: data/c.db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("path not expanded: %q", cfg.Storage.DatabasePath)
	}
	if cfg.Storage.KVPath != "" {
		t.Errorf("empty kv path must stay empty, got %q", cfg.Storage.KVPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvGraphMode, "on")
	t.Setenv(EnvTrafficPercent, "50")
	t.Setenv(EnvBlendWeight, "0.7")
	t.Setenv(EnvMaxDepth, "2")
	t.Setenv(EnvCacheTTL, "6h")

	cfg := Default()
	if cfg.Graph.Mode != "on" {
		t.Errorf("mode = %q", cfg.Graph.Mode)
	}
	if cfg.Graph.TrafficPercent != 50 {
		t.Errorf("traffic = %d", cfg.Graph.TrafficPercent)
	}
	if cfg.Search.BlendWeight != 0.7 {
		t.Errorf("blend = %v", cfg.Search.BlendWeight)
	}
	if cfg.Graph.MaxDepth != 2 {
		t.Errorf("depth = %d", cfg.Graph.MaxDepth)
	}
	if cfg.Graph.CacheTTLSeconds != 6*60*60 {
		t.Errorf("cache ttl = %d", cfg.Graph.CacheTTLSeconds)
	}
}

func TestEnvOverridesInvalidValuesFallBack(t *testing.T) {
	t.Setenv(EnvGraphMode, "onn") // a typo must never turn graph results on
	t.Setenv(EnvTrafficPercent, "150")
	t.Setenv(EnvBlendWeight, "high")
	t.Setenv(EnvMaxDepth, "7")

	cfg := Default()
	if cfg.Graph.Mode != "off" {
		t.Errorf("mode = %q", cfg.Graph.Mode)
	}
	if cfg.Graph.TrafficPercent != 100 {
		t.Errorf("traffic = %d", cfg.Graph.TrafficPercent)
	}
	if cfg.Search.BlendWeight != 0.3 {
		t.Errorf("blend = %v", cfg.Search.BlendWeight)
	}
	if cfg.Graph.MaxDepth != 3 {
		t.Errorf("depth = %d", cfg.Graph.MaxDepth)
	}
}
