// Package expansion implements graph query expansion: seed construction,
// tiered taxonomy traversal behind a circuit breaker, deduplication, and a
// versioned expansion cache.
package expansion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/breaker"
	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/internal/scoring"
	"github.com/hireloop/talentsearch/internal/seeds"
)

// Stats supplies corpus statistics for IDF weighting of expanded skills.
// Implemented by the live index; a nil Stats leaves IDF at the neutral value.
type Stats interface {
	TotalCandidates(ctx context.Context) (int, error)
	SkillDocFrequency(ctx context.Context, normalizedSkill string) (int, error)
}

// Config bounds one expansion service instance.
type Config struct {
	PolicyVersion    int
	MaxDepth         int
	ContainsMaxDepth int
	PerSeedLimit     int
	GlobalLimit      int
	CacheTTL         time.Duration
	VersionCacheTTL  time.Duration
	IncludeSeedDebug bool
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.PolicyVersion == 0 {
		c.PolicyVersion = 1
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 3
	}
	if c.ContainsMaxDepth == 0 {
		c.ContainsMaxDepth = 2
	}
	if c.PerSeedLimit == 0 {
		c.PerSeedLimit = 50
	}
	if c.GlobalLimit == 0 {
		c.GlobalLimit = 200
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.VersionCacheTTL == 0 {
		c.VersionCacheTTL = 30 * time.Second
	}
}

// Service expands queries against the taxonomy graph. Expand never returns
// an error: every failure mode degrades to an empty fallback result so the
// search path stays up.
type Service struct {
	graph  graph.Store
	store  kv.Store
	br     *breaker.Breaker
	stats  Stats
	logger *zap.Logger
	cfg    Config

	now func() time.Time

	versionMu sync.Mutex
	version   int
	versionAt time.Time
}

// NewService wires an expansion service. stats may be nil.
func NewService(g graph.Store, store kv.Store, br *breaker.Breaker, stats Stats, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		graph:  g,
		store:  store,
		br:     br,
		stats:  stats,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Expand builds seeds for the query, traverses the taxonomy, and returns the
// deduplicated expansion. An empty query or seedless query returns an empty
// result without touching the graph; graph failures return a fallback result.
func (s *Service) Expand(ctx context.Context, query string, hints []string) *models.GraphExpansionResult {
	start := s.now()
	sds := seeds.Build(query, hints)
	res := &models.GraphExpansionResult{
		PolicyVersion: s.cfg.PolicyVersion,
	}
	if s.cfg.IncludeSeedDebug {
		res.SeedDebug = &models.SeedDebug{
			PhraseSeeds:   sds.PhraseSeeds,
			TokenSeeds:    sds.TokenSeeds,
			StrictSeeds:   sds.StrictSeeds,
			ContainsSeeds: sds.ContainsSeeds,
		}
	}
	finish := func() *models.GraphExpansionResult {
		res.LatencyMs = s.now().Sub(start).Milliseconds()
		return res
	}

	if sds.Empty() {
		return finish()
	}
	if !s.graph.Enabled() {
		res.FallbackUsed = true
		return finish()
	}

	version, err := s.taxonomyVersion(ctx)
	if err != nil {
		s.logger.Warn("expansion fallback: no taxonomy version", zap.Error(err))
		res.FallbackUsed = true
		return finish()
	}
	res.TaxonomyVersion = version

	cacheKey := kv.ExpansionKey(version, s.cfg.PolicyVersion, queryHash(query, hints))
	if cached, err := s.store.Get(ctx, cacheKey); err == nil {
		var skills []models.ExpandedSkill
		if err := json.Unmarshal(cached, &skills); err == nil {
			res.ExpandedSkills = skills
			res.CacheHit = true
			return finish()
		}
		// Corrupt entry, drop it and recompute.
		_ = s.store.Delete(ctx, cacheKey)
	}

	var rows []graph.TraversalRow
	err = s.br.Do(func() error {
		var terr error
		rows, terr = s.traverse(ctx, sds)
		return terr
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			s.logger.Warn("expansion fallback: breaker open", zap.String("breaker", s.br.Name()))
		} else {
			s.logger.Warn("expansion fallback: traversal failed", zap.Error(err))
		}
		res.FallbackUsed = true
		return finish()
	}

	res.ExpandedSkills = s.dedupe(ctx, rows)

	// An empty final set is a degraded result: report it as fallback and
	// keep it out of the cache so the next call recomputes.
	res.FallbackUsed = len(res.ExpandedSkills) == 0
	if res.FallbackUsed {
		return finish()
	}

	if data, err := json.Marshal(res.ExpandedSkills); err == nil {
		if err := s.store.Set(ctx, cacheKey, data, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("expansion cache write failed", zap.Error(err))
		}
	}
	return finish()
}

// traverse runs the strict tier and falls back to the contains tier (at a
// shallower depth) only when strict produced nothing.
func (s *Service) traverse(ctx context.Context, sds *seeds.Seeds) ([]graph.TraversalRow, error) {
	opts := graph.TraversalOptions{
		MaxDepth:     s.cfg.MaxDepth,
		PerSeedLimit: s.cfg.PerSeedLimit,
		GlobalLimit:  s.cfg.GlobalLimit,
	}
	rows, err := s.graph.ExpandStrict(ctx, sds.StrictSeeds, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 || len(sds.ContainsSeeds) == 0 {
		return rows, nil
	}
	opts.MaxDepth = s.cfg.ContainsMaxDepth
	return s.graph.ExpandContains(ctx, sds.ContainsSeeds, opts)
}

type dedupeKey struct {
	seed     string
	skill    string
	depth    int
	relation string
}

// dedupe collapses duplicate rows keeping the highest weight, attaches IDF
// scores, and returns a deterministic ordering.
func (s *Service) dedupe(ctx context.Context, rows []graph.TraversalRow) []models.ExpandedSkill {
	best := make(map[dedupeKey]models.ExpandedSkill, len(rows))
	for _, row := range rows {
		k := dedupeKey{seed: row.SeedSkill, skill: row.NormalizedSkill, depth: row.Depth, relation: row.RelationType}
		if prev, ok := best[k]; ok && prev.RelationWeight >= row.RelationWeight {
			continue
		}
		best[k] = models.ExpandedSkill{
			SeedSkill:       row.SeedSkill,
			MatchedSkill:    row.MatchedSkill,
			NormalizedSkill: row.NormalizedSkill,
			Depth:           row.Depth,
			RelationType:    row.RelationType,
			RelationWeight:  row.RelationWeight,
			Path:            row.Path,
			IDFScore:        1.0,
		}
	}
	out := make([]models.ExpandedSkill, 0, len(best))
	for _, sk := range best {
		out = append(out, sk)
	}
	s.attachIDF(ctx, out)
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelationWeight != out[j].RelationWeight {
			return out[i].RelationWeight > out[j].RelationWeight
		}
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		if out[i].NormalizedSkill != out[j].NormalizedSkill {
			return out[i].NormalizedSkill < out[j].NormalizedSkill
		}
		return out[i].SeedSkill < out[j].SeedSkill
	})
	return out
}

// attachIDF weights rare skills up and ubiquitous skills down. Stats failures
// leave the neutral weight in place.
func (s *Service) attachIDF(ctx context.Context, skills []models.ExpandedSkill) {
	if s.stats == nil || len(skills) == 0 {
		return
	}
	total, err := s.stats.TotalCandidates(ctx)
	if err != nil || total == 0 {
		return
	}
	freq := make(map[string]float64, len(skills))
	for i := range skills {
		norm := skills[i].NormalizedSkill
		idf, ok := freq[norm]
		if !ok {
			df, err := s.stats.SkillDocFrequency(ctx, norm)
			if err != nil {
				continue
			}
			idf = scoring.IDF(total, df)
			freq[norm] = idf
		}
		skills[i].IDFScore = idf
	}
}

// taxonomyVersion memoizes the active version briefly so the hot search path
// does not hit the graph store on every request.
func (s *Service) taxonomyVersion(ctx context.Context) (int, error) {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	if s.version != 0 && s.now().Sub(s.versionAt) < s.cfg.VersionCacheTTL {
		return s.version, nil
	}
	v, err := s.graph.ActiveVersion(ctx)
	if err != nil {
		return 0, err
	}
	s.version = v
	s.versionAt = s.now()
	return v, nil
}

func queryHash(query string, hints []string) string {
	h := sha256.New()
	fmt.Fprint(h, normalize.Query(query))
	for _, hint := range hints {
		fmt.Fprint(h, "|", strings.ToLower(strings.TrimSpace(hint)))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
