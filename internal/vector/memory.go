package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory brute-force inner-product index. The semantic
// cache holds at most a few thousand query embeddings, so linear scan is fine.
type MemoryIndex struct {
	dimensions int
	mu         sync.RWMutex
	ids        []string
	vectors    [][]float32
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs. A re-added ID replaces its vector.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if pos := m.find(id); pos >= 0 {
			m.vectors[pos] = vec
			continue
		}
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// find returns the position of id, or -1. Caller holds the lock.
func (m *MemoryIndex) find(id string) int {
	for i, existing := range m.ids {
		if existing == id {
			return i
		}
	}
	return -1
}

// Search returns the top-k vectors by inner product (cosine similarity for
// normalized vectors).
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	scored := make([]*Result, len(m.ids))
	for i, vec := range m.vectors {
		scored[i] = &Result{ID: m.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Remove removes vectors by ID.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keptIDs := m.ids[:0]
	keptVectors := m.vectors[:0]
	for i, id := range m.ids {
		if !removeSet[id] {
			keptIDs = append(keptIDs, id)
			keptVectors = append(keptVectors, m.vectors[i])
		}
	}
	m.ids = keptIDs
	m.vectors = keptVectors
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error { return nil }
