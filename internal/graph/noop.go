package graph

import (
	"context"

	"github.com/hireloop/talentsearch/internal/models"
)

// NoopStore is the backend used when graph search is not configured. Every
// read reports the capability as absent so callers fall through to their
// baseline path instead of erroring.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (NoopStore) Enabled() bool { return false }

func (NoopStore) Close() error { return nil }

func (NoopStore) ActiveVersion(ctx context.Context) (int, error) {
	return 0, ErrNoActiveVersion
}

func (NoopStore) SyncTaxonomy(ctx context.Context, doc *TaxonomyDocument) error {
	return ErrUnavailable
}

func (NoopStore) ExpandStrict(ctx context.Context, seeds []string, opts TraversalOptions) ([]TraversalRow, error) {
	return nil, ErrUnavailable
}

func (NoopStore) ExpandContains(ctx context.Context, seeds []string, opts TraversalOptions) ([]TraversalRow, error) {
	return nil, ErrUnavailable
}

func (NoopStore) UpsertCandidate(ctx context.Context, candidateID string, evidence []models.SkillEvidence) error {
	return nil
}

func (NoopStore) CandidateSkills(ctx context.Context, candidateID string) ([]string, error) {
	return nil, nil
}
