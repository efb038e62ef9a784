// Package graph provides the skill taxonomy graph: versioned sync from a
// taxonomy document, tiered traversal for query expansion, and candidate
// HAS_SKILL edge maintenance.
//
// The store is a capability: when no graph backend is configured the no-op
// implementation is selected at startup and the search path degrades to
// keyword/vector-only results.
package graph

import (
	"context"
	"errors"

	"github.com/hireloop/talentsearch/internal/models"
)

var (
	// ErrNoActiveVersion is returned before any taxonomy has been synced.
	ErrNoActiveVersion = errors.New("graph: no active taxonomy version")
	// ErrUnavailable is returned by the no-op store for operations that
	// require a configured graph backend.
	ErrUnavailable = errors.New("graph: store not configured")
)

// TraversalOptions bound one expansion traversal.
type TraversalOptions struct {
	MaxDepth     int // 1-3
	PerSeedLimit int
	GlobalLimit  int
}

// TraversalRow is one raw row returned by a traversal, before deduplication.
type TraversalRow struct {
	SeedSkill       string
	MatchedSkill    string
	NormalizedSkill string
	Depth           int
	RelationType    string
	RelationWeight  float64
	Path            []string
}

// Store is the taxonomy graph protocol.
type Store interface {
	// Enabled reports whether a real graph backend is configured.
	Enabled() bool

	// ActiveVersion returns the currently active taxonomy version.
	ActiveVersion(ctx context.Context) (int, error)

	// SyncTaxonomy validates nothing (callers validate first) and installs
	// doc as a new version, flipping it active atomically. All-or-nothing.
	SyncTaxonomy(ctx context.Context, doc *TaxonomyDocument) error

	// ExpandStrict matches seeds by exact normalized name and walks
	// RELATED_TO/REQUIRES edges up to opts.MaxDepth.
	ExpandStrict(ctx context.Context, seeds []string, opts TraversalOptions) ([]TraversalRow, error)

	// ExpandContains matches seeds by substring containment on normalized
	// names. Used only when the strict tier returns nothing.
	ExpandContains(ctx context.Context, seeds []string, opts TraversalOptions) ([]TraversalRow, error)

	// UpsertCandidate replaces the candidate node's HAS_SKILL edge set with
	// the given evidence, deleting stale edges. Idempotent.
	UpsertCandidate(ctx context.Context, candidateID string, evidence []models.SkillEvidence) error

	// CandidateSkills returns the normalized skills currently attached to a
	// candidate node, sorted.
	CandidateSkills(ctx context.Context, candidateID string) ([]string, error)

	Close() error
}
