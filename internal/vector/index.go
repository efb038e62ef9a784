// Package vector provides vector indexing and similarity search for the
// semantic cache tier.
package vector

import "context"

// Index defines vector storage and similarity search. IDs are opaque to the
// index; the semantic cache stores L1 cache keys as IDs so a similarity hit
// dereferences straight into the exact-match tier.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ID    string
	Score float64 // inner product; cosine similarity for normalized vectors
}
