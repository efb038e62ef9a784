package models

// Graph relation types used in the taxonomy graph.
const (
	RelationRelatedTo   = "RELATED_TO"
	RelationRequires    = "REQUIRES"
	RelationAliasOf     = "ALIAS_OF"
	RelationAliasOfRole = "ALIAS_OF_ROLE"
	RelationHasSkill    = "HAS_SKILL"
)

// ExpandedSkill is one graph-derived skill produced by the expansion service.
// Immutable once built. Deduplicated by (SeedSkill, NormalizedSkill, Depth,
// RelationType), keeping the highest RelationWeight.
type ExpandedSkill struct {
	SeedSkill       string   `json:"seed_skill"`
	MatchedSkill    string   `json:"matched_skill"`
	NormalizedSkill string   `json:"normalized_skill"`
	Depth           int      `json:"depth"`
	RelationType    string   `json:"relation_type"`
	RelationWeight  float64  `json:"relation_weight"`
	Path            []string `json:"path"`
	IDFScore        float64  `json:"idf_score"`
}

// SeedDebug records what the seed builder produced for a query, for telemetry.
type SeedDebug struct {
	PhraseSeeds   []string `json:"phrase_seeds"`
	TokenSeeds    []string `json:"token_seeds"`
	StrictSeeds   []string `json:"strict_seeds"`
	ContainsSeeds []string `json:"contains_seeds"`
}

// GraphExpansionResult is the output of one expansion call.
type GraphExpansionResult struct {
	ExpandedSkills  []ExpandedSkill `json:"expanded_skills"`
	CacheHit        bool            `json:"cache_hit"`
	FallbackUsed    bool            `json:"fallback_used"`
	LatencyMs       int64           `json:"latency_ms"`
	TaxonomyVersion int             `json:"taxonomy_version"`
	PolicyVersion   int             `json:"policy_version"`
	SeedDebug       *SeedDebug      `json:"seed_debug,omitempty"`
}

// ByNormalizedSkill groups the expanded skills by normalized name for scoring lookups.
func (r *GraphExpansionResult) ByNormalizedSkill() map[string][]ExpandedSkill {
	m := make(map[string][]ExpandedSkill, len(r.ExpandedSkills))
	for _, s := range r.ExpandedSkills {
		m[s.NormalizedSkill] = append(m[s.NormalizedSkill], s)
	}
	return m
}
