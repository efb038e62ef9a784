// Package kv defines the key-value store protocol used for caches, the live
// search index, shadow profiles, and the dead-letter sink, with BadgerDB and
// in-memory implementations.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the namespaced key-value protocol. Values are single-purpose-keyed
// (per candidate id or per query hash), so writers do not contend across keys.
type Store interface {
	// Strings
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Sets
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Sorted sets (score-descending reads)
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key, member string) error
	ZRevRange(ctx context.Context, key string, offset, count int) ([]string, error)
	ZCard(ctx context.Context, key string) (int, error)

	// Hashes
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Close() error
}
