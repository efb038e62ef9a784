package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables recognized as rollout overrides.
const (
	EnvGraphMode        = "GRAPH_SEARCH_MODE"
	EnvTrafficPercent   = "GRAPH_SEARCH_TRAFFIC_PERCENT"
	EnvBlendWeight      = "GRAPH_BLEND_WEIGHT"
	EnvMaxDepth         = "GRAPH_MAX_DEPTH"
	EnvCacheTTL         = "GRAPH_CACHE_TTL"
	EnvPerSeedLimit     = "GRAPH_PER_SEED_LIMIT"
	EnvGlobalLimit      = "GRAPH_GLOBAL_LIMIT"
	EnvBreakerThreshold = "GRAPH_BREAKER_FAILURE_THRESHOLD"
	EnvBreakerCooldown  = "GRAPH_BREAKER_COOLDOWN_SECONDS"
)

// ApplyEnvOverrides replaces config values with recognized environment
// variables. Every value is parsed with a safe fallback: an unparseable or
// out-of-range value leaves the config untouched rather than failing
// startup.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvGraphMode); v != "" {
		switch v {
		case "off", "shadow", "on":
			cfg.Graph.Mode = v
		}
	}
	if n, ok := envInt(EnvTrafficPercent); ok && n >= 0 && n <= 100 {
		cfg.Graph.TrafficPercent = n
	}
	if f, ok := envFloat(EnvBlendWeight); ok && f >= 0 && f <= 1 {
		cfg.Search.BlendWeight = f
	}
	if n, ok := envInt(EnvMaxDepth); ok && n >= 1 && n <= 3 {
		cfg.Graph.MaxDepth = n
	}
	if secs, ok := envSeconds(EnvCacheTTL); ok && secs > 0 {
		cfg.Graph.CacheTTLSeconds = secs
	}
	if n, ok := envInt(EnvPerSeedLimit); ok && n > 0 {
		cfg.Graph.PerSeedLimit = n
	}
	if n, ok := envInt(EnvGlobalLimit); ok && n > 0 {
		cfg.Graph.GlobalLimit = n
	}
	if n, ok := envInt(EnvBreakerThreshold); ok && n > 0 {
		cfg.Breaker.FailureThreshold = n
	}
	if n, ok := envInt(EnvBreakerCooldown); ok && n > 0 {
		cfg.Breaker.CooldownSeconds = n
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// envSeconds accepts either a plain integer (seconds) or a Go duration
// string like "6h".
func envSeconds(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return int(d / time.Second), true
	}
	return 0, false
}
