// Package orchestrator runs the candidate search request flow: cache check,
// baseline keyword recall with graph expansion in parallel, merge, hydration,
// score blending, pagination, and cache write-back.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/keyword"
	"github.com/hireloop/talentsearch/internal/liveindex"
	"github.com/hireloop/talentsearch/internal/metrics"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/internal/profilestore"
	"github.com/hireloop/talentsearch/internal/rollout"
	"github.com/hireloop/talentsearch/internal/scoring"
	"github.com/hireloop/talentsearch/internal/semcache"
)

// KeywordSearcher is the baseline recall index.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*keyword.Result, error)
}

// Expander produces graph expansions. Implementations never return errors;
// failures surface as fallback results.
type Expander interface {
	Expand(ctx context.Context, query string, hints []string) *models.GraphExpansionResult
}

// Reranker is the optional result evaluation hook, applied to the final page
// before it is returned. Errors leave the page unchanged.
type Reranker interface {
	Rerank(ctx context.Context, q *models.SearchQuery, page []*models.CandidateSummary) ([]*models.CandidateSummary, error)
}

// NoopReranker keeps the scored ordering.
type NoopReranker struct{}

func (NoopReranker) Rerank(ctx context.Context, q *models.SearchQuery, page []*models.CandidateSummary) ([]*models.CandidateSummary, error) {
	return page, nil
}

// Blend variants reported on result rows.
const (
	variantBaseline = "baseline"
	variantGraph    = "graph"
	variantShadow   = "shadow"
)

// Config bounds the engine.
type Config struct {
	// BlendWeight is the graph share of the blended score, clamped [0,1].
	BlendWeight float64
	// RecallLimit caps how many candidates each recall source contributes.
	RecallLimit int
	TitleBoost  float64
}

func (c *Config) ApplyDefaults() {
	if c.BlendWeight == 0 {
		c.BlendWeight = 0.3
	}
	if c.RecallLimit == 0 {
		c.RecallLimit = 200
	}
	if c.TitleBoost == 0 {
		c.TitleBoost = 2.0
	}
}

// Engine runs candidate searches.
type Engine struct {
	cache    *semcache.Cache
	keyword  KeywordSearcher
	expander Expander
	live     *liveindex.Index
	profiles profilestore.Store
	rollout  *rollout.Controller
	metrics  *metrics.Collector
	reranker Reranker
	logger   *zap.Logger
	cfg      Config
}

// NewEngine wires the search engine. reranker may be nil.
func NewEngine(
	cache *semcache.Cache,
	kw KeywordSearcher,
	expander Expander,
	live *liveindex.Index,
	profiles profilestore.Store,
	ro *rollout.Controller,
	collector *metrics.Collector,
	reranker Reranker,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	cfg.ApplyDefaults()
	if reranker == nil {
		reranker = NoopReranker{}
	}
	return &Engine{
		cache:    cache,
		keyword:  kw,
		expander: expander,
		live:     live,
		profiles: profiles,
		rollout:  ro,
		metrics:  collector,
		reranker: reranker,
		logger:   logger,
		cfg:      cfg,
	}
}

// Search runs one candidate search.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	e.metrics.Inc(metrics.CounterSearches)

	if resp, tier := e.cache.Lookup(ctx, q); resp != nil {
		switch tier {
		case semcache.TierExact:
			e.metrics.Inc(metrics.CounterCacheHitExact)
		case semcache.TierSemantic:
			e.metrics.Inc(metrics.CounterCacheHitSemantic)
		}
		resp.CacheHit = true
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return resp, nil
	}

	if q.Query == "" {
		return e.browse(ctx, q, startTime)
	}

	decision := e.rollout.Decide(q.Query, q.StickySeed)
	telemetry := &models.GraphTelemetry{
		Mode:    string(decision.Mode),
		Sampled: decision.Sampled,
	}

	var (
		baseline  []*keyword.Result
		expansion *models.GraphExpansionResult
		errChan   = make(chan error, 1)
		wg        sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results, err := e.keyword.Search(ctx, q.Query, e.cfg.RecallLimit, &keyword.SearchOptions{TitleBoost: e.cfg.TitleBoost})
		if err != nil {
			errChan <- fmt.Errorf("baseline search failed: %w", err)
			return
		}
		baseline = results
	}()

	// shadow always expands; in on mode only the sampled slice pays for it
	if decision.Mode == rollout.ModeShadow || (decision.Mode == rollout.ModeOn && decision.Sampled) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			expansion = e.expander.Expand(ctx, q.Query, q.HintKeywords)
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	baselineScores := normalizeBaseline(baseline)
	baselineIDs := make([]string, 0, len(baseline))
	for _, r := range baseline {
		baselineIDs = append(baselineIDs, r.ID)
	}
	baselineIDs = e.live.FilterByShadow(ctx, baselineIDs, q.Filters)

	graphMatched, added := e.graphCandidates(ctx, q, expansion, baselineScores, telemetry)
	telemetry.CandidatesAdded = len(added)

	// graph-found candidates join the result set only when graph results
	// are user-visible; shadow ordering must equal off ordering
	ids := baselineIDs
	if decision.Mode == rollout.ModeOn && decision.Sampled {
		ids = append(append([]string{}, baselineIDs...), added...)
	}

	hydrated, err := e.profiles.HydrateByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	summaries := e.score(q, ids, hydrated, baselineScores, graphMatched, expansion, decision)

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].MatchScore != summaries[j].MatchScore {
			return summaries[i].MatchScore > summaries[j].MatchScore
		}
		return summaries[i].ID < summaries[j].ID
	})

	total := len(summaries)
	page := paginate(summaries, q.Page, q.PageSize)

	if reranked, err := e.reranker.Rerank(ctx, q, page); err == nil {
		page = reranked
	} else {
		e.logger.Warn("reranker failed, keeping scored order", zap.Error(err))
	}

	resp := &models.SearchResponse{
		Results:   page,
		Total:     total,
		Page:      q.Page,
		PageSize:  q.PageSize,
		Query:     q.Query,
		Graph:     telemetry,
		QueryTime: time.Since(startTime).Milliseconds(),
	}
	e.cache.Write(ctx, q, resp)
	resp.QueryTime = time.Since(startTime).Milliseconds()
	return resp, nil
}

// browse serves the empty query: the most recently indexed candidates.
// Filters apply to the whole pool before pagination so pages stay full and
// Total counts only candidates that pass them.
func (e *Engine) browse(ctx context.Context, q *models.SearchQuery, startTime time.Time) (*models.SearchResponse, error) {
	pool, err := e.live.RecentPool(ctx, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	pool = e.live.FilterByShadow(ctx, pool, q.Filters)
	total := len(pool)
	offset := (q.Page - 1) * q.PageSize
	end := offset + q.PageSize
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}
	ids := pool[offset:end]
	hydrated, err := e.profiles.HydrateByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}
	results := make([]*models.CandidateSummary, 0, len(ids))
	for _, id := range ids {
		cand, ok := hydrated[id]
		if !ok {
			continue
		}
		results = append(results, summarize(cand))
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     total,
		Page:      q.Page,
		PageSize:  q.PageSize,
		Query:     q.Query,
		QueryTime: time.Since(startTime).Milliseconds(),
	}, nil
}

// graphCandidates resolves expanded skills into candidate ids via the live
// index and fills graph telemetry. Returns the per-candidate matched skills
// and the ids not already recalled by the baseline.
func (e *Engine) graphCandidates(
	ctx context.Context,
	q *models.SearchQuery,
	expansion *models.GraphExpansionResult,
	baselineScores map[string]float64,
	telemetry *models.GraphTelemetry,
) (map[string][]string, []string) {
	if expansion == nil {
		return nil, nil
	}
	telemetry.Ran = true
	telemetry.CacheHit = expansion.CacheHit
	telemetry.FallbackUsed = expansion.FallbackUsed
	telemetry.ExpandedSkills = len(expansion.ExpandedSkills)
	telemetry.LatencyMs = expansion.LatencyMs
	e.metrics.RecordExpansion(expansion.FallbackUsed, !expansion.FallbackUsed && len(expansion.ExpandedSkills) == 0)
	if expansion.CacheHit {
		e.metrics.Inc(metrics.CounterGraphCacheHits)
	}
	if expansion.FallbackUsed || len(expansion.ExpandedSkills) == 0 {
		return nil, nil
	}

	skills := make([]string, 0, len(expansion.ExpandedSkills))
	seen := make(map[string]bool, len(expansion.ExpandedSkills))
	for _, sk := range expansion.ExpandedSkills {
		if !seen[sk.NormalizedSkill] {
			seen[sk.NormalizedSkill] = true
			skills = append(skills, sk.NormalizedSkill)
		}
	}
	matched, err := e.live.CandidatesForSkills(ctx, skills)
	if err != nil {
		e.logger.Warn("graph candidate lookup failed, keeping baseline only", zap.Error(err))
		telemetry.FallbackUsed = true
		return nil, nil
	}

	candidateIDs := make([]string, 0, len(matched))
	for id := range matched {
		candidateIDs = append(candidateIDs, id)
	}
	sort.Strings(candidateIDs)
	candidateIDs = e.live.FilterByShadow(ctx, candidateIDs, q.Filters)

	var added []string
	for _, id := range candidateIDs {
		if _, inBaseline := baselineScores[id]; !inBaseline {
			added = append(added, id)
		}
	}
	return matched, added
}

// score builds summaries and applies the blend policy for the rollout mode.
func (e *Engine) score(
	q *models.SearchQuery,
	ids []string,
	hydrated map[string]*models.Candidate,
	baselineScores map[string]float64,
	graphMatched map[string][]string,
	expansion *models.GraphExpansionResult,
	decision rollout.Decision,
) []*models.CandidateSummary {
	var byNorm map[string][]models.ExpandedSkill
	if expansion != nil && !expansion.FallbackUsed {
		byNorm = expansion.ByNormalizedSkill()
	}
	topK := scoring.TopKForSeniority(q.Filters.Seniority)
	blendOn := decision.Mode == rollout.ModeOn && decision.Sampled
	shadowOn := decision.Mode == rollout.ModeShadow && decision.Sampled

	out := make([]*models.CandidateSummary, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		cand, ok := hydrated[id]
		if !ok {
			continue
		}
		summary := summarize(cand)
		base := baselineScores[id]
		summary.MatchScore = base
		summary.BlendVariant = variantBaseline

		if byNorm != nil {
			cs := scoring.ScoreCandidate(scoringSkills(cand, graphMatched[id]), byNorm, topK)
			if cs.Score > 0 {
				score := cs.Score
				summary.GraphScore = &score
				summary.GraphMatches = cs.Matches
			}
			switch {
			case blendOn:
				summary.MatchScore = scoring.Blend(base, cs.Score, e.cfg.BlendWeight)
				summary.BlendVariant = variantGraph
			case shadowOn:
				// scored for telemetry, ordering stays baseline
				summary.BlendVariant = variantShadow
			}
		}
		out = append(out, summary)
	}

	if shadowOn && byNorm != nil {
		e.logShadow(q, out)
	}
	return out
}

// logShadow records what the blend would have done, without affecting the
// response.
func (e *Engine) logShadow(q *models.SearchQuery, summaries []*models.CandidateSummary) {
	var scored int
	for _, s := range summaries {
		if s.GraphScore != nil {
			scored++
		}
	}
	e.logger.Info("shadow graph evaluation",
		zap.String("query", q.Query),
		zap.Int("candidates", len(summaries)),
		zap.Int("graph_scored", scored))
}

// scoringSkills unions profile skills with live-index matches. Extracted
// skills can put a candidate in a skill set their profile does not list.
func scoringSkills(cand *models.Candidate, matched []string) []string {
	seen := make(map[string]bool, len(cand.Skills)+len(matched))
	out := make([]string, 0, len(cand.Skills)+len(matched))
	for _, s := range cand.Skills {
		norm := normalize.Skill(s)
		if norm != "" && !seen[norm] {
			seen[norm] = true
			out = append(out, s)
		}
	}
	for _, s := range matched {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func summarize(cand *models.Candidate) *models.CandidateSummary {
	return &models.CandidateSummary{
		ID:              cand.ID,
		Name:            cand.Name,
		Title:           cand.Title,
		Location:        cand.Location,
		YearsExperience: cand.YearsExperience,
		Skills:          cand.Skills,
	}
}

// normalizeBaseline rescales keyword scores into [0,1] by the best hit.
func normalizeBaseline(results []*keyword.Result) map[string]float64 {
	scores := make(map[string]float64, len(results))
	if len(results) == 0 {
		return scores
	}
	max := 0.0
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	if max == 0 {
		max = 1
	}
	for _, r := range results {
		scores[r.ID] = r.Score / max
	}
	return scores
}

func paginate(results []*models.CandidateSummary, page, pageSize int) []*models.CandidateSummary {
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(results) {
		start = len(results)
	}
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
