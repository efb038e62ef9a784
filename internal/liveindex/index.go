// Package liveindex maintains the denormalized search index in the KV store:
// per-skill candidate sets, the recency-ordered candidate pool, and shadow
// profiles for fast filtering. It also serves corpus statistics for IDF
// weighting.
package liveindex

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/models"
)

// ShadowTTL bounds how long a shadow profile survives without a re-sync.
// A candidate whose pipeline stops running ages out of filtering.
const ShadowTTL = 30 * 24 * time.Hour

// Index reads and writes the live search index.
type Index struct {
	store  kv.Store
	logger *zap.Logger
}

func New(store kv.Store, logger *zap.Logger) *Index {
	return &Index{store: store, logger: logger}
}

// CandidatesForSkills returns candidate ids carrying any of the normalized
// skills, mapped to the skills that matched, sorted for determinism.
func (ix *Index) CandidatesForSkills(ctx context.Context, skills []string) (map[string][]string, error) {
	matched := make(map[string][]string)
	for _, skill := range skills {
		members, err := ix.store.SMembers(ctx, kv.SkillIndexKey(skill))
		if err != nil {
			return nil, fmt.Errorf("read skill index %q: %w", skill, err)
		}
		for _, id := range members {
			matched[id] = append(matched[id], skill)
		}
	}
	for id := range matched {
		sort.Strings(matched[id])
	}
	return matched, nil
}

// RecentPool returns a page of candidate ids ordered most-recently-indexed
// first. Serves the empty-query browse path.
func (ix *Index) RecentPool(ctx context.Context, offset, count int) ([]string, error) {
	return ix.store.ZRevRange(ctx, kv.PoolKey, offset, count)
}

// TotalCandidates returns the size of the indexed pool.
func (ix *Index) TotalCandidates(ctx context.Context) (int, error) {
	return ix.store.ZCard(ctx, kv.PoolKey)
}

// SkillDocFrequency returns how many candidates carry a normalized skill.
func (ix *Index) SkillDocFrequency(ctx context.Context, skill string) (int, error) {
	members, err := ix.store.SMembers(ctx, kv.SkillIndexKey(skill))
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// ShadowProfile loads one candidate's denormalized filter row. Returns
// kv.ErrNotFound when absent or expired.
func (ix *Index) ShadowProfile(ctx context.Context, candidateID string) (*models.ShadowProfile, error) {
	fields, err := ix.store.HGetAll(ctx, kv.ShadowProfileKey(candidateID))
	if err != nil {
		return nil, err
	}
	exp, _ := strconv.Atoi(fields["exp"])
	return &models.ShadowProfile{
		ID:              candidateID,
		YearsExperience: exp,
		Location:        fields["loc"],
		Role:            fields["role"],
	}, nil
}

// FilterByShadow drops candidates whose shadow profile fails the filters.
// A missing shadow profile keeps the candidate: the canonical store decides
// later, and a stale index must not hide fresh candidates.
func (ix *Index) FilterByShadow(ctx context.Context, ids []string, f models.SearchFilters) []string {
	if f.MinYearsExperience <= 0 && f.Location == "" {
		return ids
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		shadow, err := ix.ShadowProfile(ctx, id)
		if err != nil {
			kept = append(kept, id)
			continue
		}
		if f.MinYearsExperience > 0 && shadow.YearsExperience < f.MinYearsExperience {
			continue
		}
		if f.Location != "" && !strings.EqualFold(strings.TrimSpace(shadow.Location), strings.TrimSpace(f.Location)) {
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// WriteShadowProfile stores the filter row with the standing TTL.
func (ix *Index) WriteShadowProfile(ctx context.Context, cand *models.Candidate) error {
	fields := map[string]string{
		"exp":  strconv.Itoa(cand.YearsExperience),
		"loc":  cand.Location,
		"role": cand.Title,
	}
	return ix.store.HSet(ctx, kv.ShadowProfileKey(cand.ID), fields, ShadowTTL)
}

// TouchPool records the candidate in the recency pool at the given time.
func (ix *Index) TouchPool(ctx context.Context, candidateID string, at time.Time) error {
	return ix.store.ZAdd(ctx, kv.PoolKey, candidateID, float64(at.UnixMilli()))
}

// RemoveFromPool drops the candidate from the recency pool.
func (ix *Index) RemoveFromPool(ctx context.Context, candidateID string) error {
	return ix.store.ZRem(ctx, kv.PoolKey, candidateID)
}

// ReplaceSkillIndexes moves the candidate to exactly the given normalized
// skill sets, removing memberships no longer held. The previous membership
// list is tracked per candidate so removal needs no full index scan.
func (ix *Index) ReplaceSkillIndexes(ctx context.Context, candidateID string, skills []string) error {
	trackKey := kv.SkillIndexesKey(candidateID)
	previous, err := ix.store.SMembers(ctx, trackKey)
	if err != nil {
		return fmt.Errorf("read tracked indexes: %w", err)
	}
	next := make(map[string]bool, len(skills))
	var nextKeys []string
	for _, skill := range skills {
		key := kv.SkillIndexKey(skill)
		if !next[key] {
			next[key] = true
			nextKeys = append(nextKeys, key)
		}
	}
	for _, key := range previous {
		if next[key] {
			continue
		}
		if err := ix.store.SRem(ctx, key, candidateID); err != nil {
			return fmt.Errorf("remove stale membership %q: %w", key, err)
		}
		if err := ix.store.SRem(ctx, trackKey, key); err != nil {
			return fmt.Errorf("untrack %q: %w", key, err)
		}
	}
	for _, key := range nextKeys {
		if err := ix.store.SAdd(ctx, key, candidateID); err != nil {
			return fmt.Errorf("add membership %q: %w", key, err)
		}
	}
	if len(nextKeys) > 0 {
		if err := ix.store.SAdd(ctx, trackKey, nextKeys...); err != nil {
			return fmt.Errorf("track memberships: %w", err)
		}
	}
	return nil
}
