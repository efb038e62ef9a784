package kv

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu      sync.RWMutex
	strings map[string]memoryValue
	sets    map[string]map[string]bool
	zsets   map[string]map[string]float64
	hashes  map[string]memoryHash

	now func() time.Time
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

type memoryHash struct {
	fields    map[string]string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings: make(map[string]memoryValue),
		sets:    make(map[string]map[string]bool),
		zsets:   make(map[string]map[string]float64),
		hashes:  make(map[string]memoryHash),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for TTL tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[key]
	if !ok || (!v.expiresAt.IsZero() && s.now().After(v.expiresAt)) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := memoryValue{data: append([]byte(nil), value...)}
	if ttl > 0 {
		v.expiresAt = s.now().Add(ttl)
	}
	s.strings[key] = v
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strings, key)
	return nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]bool)
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = true
	}
	return nil
}

func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.sets[key]; ok {
		for _, m := range members {
			delete(set, m)
		}
	}
	return nil
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	if len(set) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (s *MemoryStore) ZRem(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z, ok := s.zsets[key]; ok {
		delete(z, member)
	}
	return nil
}

func (s *MemoryStore) ZRevRange(ctx context.Context, key string, offset, count int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z := s.zsets[key]
	type entry struct {
		member string
		score  float64
	}
	entries := make([]entry, 0, len(z))
	for m, sc := range z {
		entries = append(entries, entry{m, sc})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].member < entries[j].member
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil, nil
	}
	end := len(entries)
	if count >= 0 && offset+count < end {
		end = offset + count
	}
	out := make([]string, 0, end-offset)
	for _, e := range entries[offset:end] {
		out = append(out, e.member)
	}
	return out, nil
}

func (s *MemoryStore) ZCard(ctx context.Context, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zsets[key]), nil
}

func (s *MemoryStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	h := memoryHash{fields: copied}
	if ttl > 0 {
		h.expiresAt = s.now().Add(ttl)
	}
	s.hashes[key] = h
	return nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hashes[key]
	if !ok || (!h.expiresAt.IsZero() && s.now().After(h.expiresAt)) {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(h.fields))
	for k, v := range h.fields {
		out[k] = v
	}
	return out, nil
}
