// Package profilestore provides the canonical candidate profile store and
// the skill library used to canonicalize extracted skill names.
package profilestore

import (
	"context"
	"errors"

	"github.com/hireloop/talentsearch/internal/models"
)

// ErrNotFound is returned when a candidate does not exist.
var ErrNotFound = errors.New("profilestore: candidate not found")

// Store is the canonical candidate store. The search path treats it as the
// source of truth; the live index is a derived projection.
type Store interface {
	Upsert(ctx context.Context, cand *models.Candidate) error
	Get(ctx context.Context, id string) (*models.Candidate, error)

	// HydrateByIDs loads candidates in bulk. Missing ids are silently
	// skipped: a deleted candidate must not fail a whole results page.
	HydrateByIDs(ctx context.Context, ids []string) (map[string]*models.Candidate, error)

	List(ctx context.Context, offset, limit int) ([]*models.Candidate, error)
	Delete(ctx context.Context, id string) error

	// SkillLibrary returns known canonical skill names keyed by their
	// normalized form.
	SkillLibrary(ctx context.Context) (map[string]string, error)
	AddSkills(ctx context.Context, names []string) error

	Close() error
}
