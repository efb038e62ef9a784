package profilestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[string]*models.Candidate
	skills     map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[string]*models.Candidate),
		skills:     make(map[string]string),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Upsert(ctx context.Context, cand *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	copied := *cand
	if prev, ok := s.candidates[cand.ID]; ok {
		copied.CreatedAt = prev.CreatedAt
	} else if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	copied.Skills = append([]string(nil), cand.Skills...)
	s.candidates[cand.ID] = &copied
	cand.CreatedAt = copied.CreatedAt
	cand.UpdatedAt = copied.UpdatedAt
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cand, ok := s.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *cand
	copied.Skills = append([]string(nil), cand.Skills...)
	return &copied, nil
}

func (s *MemoryStore) HydrateByIDs(ctx context.Context, ids []string) (map[string]*models.Candidate, error) {
	out := make(map[string]*models.Candidate, len(ids))
	for _, id := range ids {
		if cand, err := s.Get(ctx, id); err == nil {
			out[id] = cand
		}
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context, offset, limit int) ([]*models.Candidate, error) {
	s.mu.RLock()
	all := make([]*models.Candidate, 0, len(s.candidates))
	for _, cand := range s.candidates {
		all = append(all, cand)
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.Candidate, 0, end-offset)
	for _, cand := range all[offset:end] {
		copied := *cand
		copied.Skills = append([]string(nil), cand.Skills...)
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.candidates, id)
	return nil
}

func (s *MemoryStore) SkillLibrary(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.skills))
	for k, v := range s.skills {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) AddSkills(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		norm := normalize.Skill(name)
		if norm == "" {
			continue
		}
		if _, ok := s.skills[norm]; !ok {
			s.skills[norm] = name
		}
	}
	return nil
}
