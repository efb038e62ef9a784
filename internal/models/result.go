package models

// GraphTelemetry summarizes the graph stage of one search request.
type GraphTelemetry struct {
	Mode            string `json:"mode"`
	Sampled         bool   `json:"sampled"`
	Ran             bool   `json:"ran"`
	CacheHit        bool   `json:"cache_hit"`
	FallbackUsed    bool   `json:"fallback_used"`
	ExpandedSkills  int    `json:"expanded_skills"`
	CandidatesAdded int    `json:"candidates_added"`
	LatencyMs       int64  `json:"latency_ms"`
}

// SearchResponse is the response for a candidate search request.
type SearchResponse struct {
	Results   []*CandidateSummary `json:"results"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"page_size"`
	QueryTime int64               `json:"query_time_ms"`
	Query     string              `json:"query"`
	CacheHit  bool                `json:"cache_hit,omitempty"`
	Graph     *GraphTelemetry     `json:"graph,omitempty"`
}
