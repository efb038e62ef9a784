package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/candidates.db"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Extraction.Model == "" {
		cfg.Extraction.Model = "gpt-4o-mini"
	}
	if cfg.Extraction.MaxSkills == 0 {
		cfg.Extraction.MaxSkills = 15
	}
	if cfg.Search.BlendWeight == 0 {
		cfg.Search.BlendWeight = 0.3
	}
	if cfg.Search.RecallLimit == 0 {
		cfg.Search.RecallLimit = 200
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2.0
	}
	if cfg.Graph.Mode == "" {
		cfg.Graph.Mode = "off"
	}
	if cfg.Graph.TrafficPercent == 0 {
		cfg.Graph.TrafficPercent = 100
	}
	if cfg.Graph.MaxDepth == 0 {
		cfg.Graph.MaxDepth = 3
	}
	if cfg.Graph.ContainsMaxDepth == 0 {
		cfg.Graph.ContainsMaxDepth = 2
	}
	if cfg.Graph.PerSeedLimit == 0 {
		cfg.Graph.PerSeedLimit = 40
	}
	if cfg.Graph.GlobalLimit == 0 {
		cfg.Graph.GlobalLimit = 200
	}
	if cfg.Graph.CacheTTLSeconds == 0 {
		cfg.Graph.CacheTTLSeconds = 6 * 60 * 60
	}
	if cfg.Graph.PolicyVersion == 0 {
		cfg.Graph.PolicyVersion = 1
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 24 * 60 * 60
	}
	if cfg.Cache.SimilarityThreshold == 0 {
		cfg.Cache.SimilarityThreshold = 0.95
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.WindowSeconds == 0 {
		cfg.Breaker.WindowSeconds = 60
	}
	if cfg.Breaker.CooldownSeconds == 0 {
		cfg.Breaker.CooldownSeconds = 30
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BaseBackoffMS == 0 {
		cfg.Queue.BaseBackoffMS = 500
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 500
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 100
	}
	if cfg.Ingest.IndexThreshold == 0 {
		cfg.Ingest.IndexThreshold = 0.6
	}
	if cfg.Ingest.CacheThreshold == 0 {
		cfg.Ingest.CacheThreshold = 0.45
	}
	if cfg.Alerts.FallbackRate == 0 {
		cfg.Alerts.FallbackRate = 0.20
	}
	if cfg.Alerts.ZeroExpansionRate == 0 {
		cfg.Alerts.ZeroExpansionRate = 0.50
	}
	if cfg.Alerts.MinSamples == 0 {
		cfg.Alerts.MinSamples = 20
	}
	if cfg.Alerts.IngestionStallHours == 0 {
		cfg.Alerts.IngestionStallHours = 24
	}
	if cfg.Alerts.CooldownMinutes == 0 {
		cfg.Alerts.CooldownMinutes = 30
	}
	if cfg.Alerts.IntervalSeconds == 0 {
		cfg.Alerts.IntervalSeconds = 60
	}
}
