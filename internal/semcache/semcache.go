// Package semcache is the two-tier search result cache: an exact-match tier
// keyed by normalized query plus filters, and a semantic tier that matches
// paraphrased queries by embedding similarity and dereferences into the
// exact tier.
package semcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/embedding"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/internal/vector"
)

// HitTier identifies which cache tier answered.
type HitTier string

const (
	TierNone     HitTier = ""
	TierExact    HitTier = "exact"
	TierSemantic HitTier = "semantic"
)

// Config bounds the cache.
type Config struct {
	TTL time.Duration
	// SimilarityThreshold is the minimum inner-product similarity for a
	// semantic hit. Below it a near-miss is treated as a miss.
	SimilarityThreshold float64
	// Disabled turns both tiers off. Lookups miss and writes are dropped.
	Disabled bool
}

// semanticProbeK is how many nearest vectors a lookup inspects. Entries for
// the same text under other filter partitions sit at the same similarity, so
// a single probe could shadow the right partition.
const semanticProbeK = 4

func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.95
	}
}

// Cache holds cached first-page search responses. Vector entries use the
// exact-tier key as their id, so a semantic hit dereferences into the exact
// tier and both tiers expire together.
type Cache struct {
	store    kv.Store
	index    vector.Index
	embedder embedding.Embedder
	logger   *zap.Logger
	cfg      Config
}

// New wires the cache. index and embedder may be nil, which disables the
// semantic tier but keeps exact matching.
func New(store kv.Store, index vector.Index, embedder embedding.Embedder, cfg Config, logger *zap.Logger) *Cache {
	cfg.ApplyDefaults()
	return &Cache{store: store, index: index, embedder: embedder, logger: logger, cfg: cfg}
}

// Lookup checks the exact tier, then the semantic tier. Only first-page
// requests are cacheable. Failures in either tier degrade to a miss; Lookup
// never returns an error.
func (c *Cache) Lookup(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, HitTier) {
	if c.cfg.Disabled || !cacheable(q) {
		return nil, TierNone
	}
	key := c.Key(q)
	if resp := c.getExact(ctx, key); resp != nil {
		return resp, TierExact
	}
	if c.index == nil || c.embedder == nil {
		return nil, TierNone
	}
	vec, err := c.embedder.Embed(ctx, normalize.Query(q.Query))
	if err != nil {
		c.logger.Warn("semantic cache lookup degraded: embed failed", zap.Error(err))
		return nil, TierNone
	}
	hits, err := c.index.Search(ctx, vec, semanticProbeK)
	if err != nil {
		c.logger.Warn("semantic cache lookup degraded: index search failed", zap.Error(err))
		return nil, TierNone
	}
	// Vector ids are exact-tier keys, so each carries the filter digest it
	// was written under. A paraphrase of the same text scores identically
	// across filter partitions; only an id from our partition may answer.
	partition := ":" + filterDigest(q.Filters, q.PageSize)
	for _, hit := range hits {
		if hit.Score < c.cfg.SimilarityThreshold {
			break
		}
		if !strings.HasSuffix(hit.ID, partition) {
			continue
		}
		// A dangling id means the exact entry expired; drop the vector
		// and keep probing.
		resp := c.getExact(ctx, hit.ID)
		if resp == nil {
			if err := c.index.Remove(ctx, []string{hit.ID}); err != nil {
				c.logger.Debug("semantic cache eviction failed", zap.Error(err))
			}
			continue
		}
		return resp, TierSemantic
	}
	return nil, TierNone
}

// Write stores a first-page response in both tiers. Best effort: a failed
// write means the next identical query recomputes.
func (c *Cache) Write(ctx context.Context, q *models.SearchQuery, resp *models.SearchResponse) {
	if c.cfg.Disabled || !cacheable(q) || resp == nil {
		return
	}
	key := c.Key(q)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("cache write skipped: marshal failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.cfg.TTL); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
		return
	}
	if c.index == nil || c.embedder == nil {
		return
	}
	vec, err := c.embedder.Embed(ctx, normalize.Query(q.Query))
	if err != nil {
		c.logger.Warn("semantic cache write degraded: embed failed", zap.Error(err))
		return
	}
	if err := c.index.Add(ctx, []string{key}, [][]float32{vec}); err != nil {
		c.logger.Warn("semantic cache write degraded: index add failed", zap.Error(err))
	}
}

func (c *Cache) getExact(ctx context.Context, key string) *models.SearchResponse {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return nil
	}
	return &resp
}

// Key builds the exact-tier key for a query. Filters and page size are part
// of the key: the same text with different filters is a different entry.
func (c *Cache) Key(q *models.SearchQuery) string {
	return kv.L1CacheKey(queryDigest(q.Query), filterDigest(q.Filters, q.PageSize))
}

// cacheable limits the cache to default first-page requests, which dominate
// traffic. Deep pages recompute.
func cacheable(q *models.SearchQuery) bool {
	return q.Page <= 1
}

func queryDigest(query string) string {
	sum := sha256.Sum256([]byte(normalize.Query(query)))
	return hex.EncodeToString(sum[:])[:24]
}

func filterDigest(f models.SearchFilters, pageSize int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d",
		f.MinYearsExperience,
		normalize.Query(f.Location),
		normalize.Query(f.Seniority),
		pageSize,
	)))
	return hex.EncodeToString(sum[:])[:16]
}
