// Package models defines core data structures for candidates, queries, search
// results, graph expansion, and ingestion job payloads.
package models

import "time"

// Candidate is the canonical candidate profile row in the relational store.
type Candidate struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Title           string    `json:"title" db:"title"`
	Location        string    `json:"location" db:"location"`
	YearsExperience int       `json:"years_experience" db:"years_experience"`
	Skills          []string  `json:"skills" db:"skills"`
	Bio             string    `json:"bio" db:"bio"`
	ResumeURL       string    `json:"resume_url,omitempty" db:"resume_url"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CandidateSummary is the transient per-request search result row. The scoring
// stage mutates it in place; it is never persisted.
type CandidateSummary struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Title           string             `json:"title"`
	Location        string             `json:"location"`
	YearsExperience int                `json:"years_experience"`
	Skills          []string           `json:"skills"`
	MatchScore      float64            `json:"match_score,omitempty"`
	GraphScore      *float64           `json:"graph_score,omitempty"`
	GraphMatches    []GraphMatchDetail `json:"graph_matches,omitempty"`
	BlendVariant    string             `json:"blend_variant,omitempty"`
}

// GraphMatchDetail explains one graph-derived skill match on a candidate.
type GraphMatchDetail struct {
	CandidateSkill string  `json:"candidate_skill"`
	SeedSkill      string  `json:"seed_skill"`
	Depth          int     `json:"depth"`
	RelationType   string  `json:"relation_type"`
	Contribution   float64 `json:"contribution"`
}

// ShadowProfile is the denormalized candidate projection kept in the live
// index for fast filtering without a relational round-trip. Eventually
// consistent with the canonical row; expires after 30 days without a sync.
type ShadowProfile struct {
	ID              string `json:"id"`
	YearsExperience int    `json:"exp"`
	Location        string `json:"loc"`
	Role            string `json:"role"`
}

// Evidence source for a candidate skill.
const (
	EvidenceSourceProfile   = "profile"
	EvidenceSourceExtracted = "extracted"
)

// SkillEvidence is one observed skill on a candidate, from either the declared
// profile or the resume extractor. Profile evidence always wins on conflict.
type SkillEvidence struct {
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalized_name"`
	Source         string  `json:"source"`
	Confidence     float64 `json:"confidence"`
	SkillID        string  `json:"skill_id,omitempty"`
}
