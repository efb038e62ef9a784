package expansion

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/breaker"
	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/models"
)

func testTaxonomy() *graph.TaxonomyDocument {
	return &graph.TaxonomyDocument{
		Version: 1,
		Skills: []graph.TaxonomySkill{
			{ID: "s1", Name: "React"},
			{ID: "s2", Name: "JavaScript"},
			{ID: "s3", Name: "TypeScript"},
		},
		Aliases: []graph.TaxonomyAlias{
			{ID: "a1", Alias: "ReactJS", OfID: "s1"},
		},
		SkillRelations: []graph.SkillRelation{
			{FromID: "s1", ToID: "s2", Type: models.RelationRequires, Weight: 0.9},
			{FromID: "s2", ToID: "s3", Type: models.RelationRelatedTo, Weight: 0.8},
		},
	}
}

func newTestService(t *testing.T, g graph.Store) (*Service, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	br := breaker.New("graph", 3, time.Minute, time.Minute)
	svc := NewService(g, store, br, nil, Config{IncludeSeedDebug: true}, zap.NewNop())
	return svc, store
}

func TestExpandEmptyQuery(t *testing.T) {
	g := graph.NewMemoryStore()
	svc, _ := newTestService(t, g)
	res := svc.Expand(context.Background(), "", nil)
	if res.FallbackUsed {
		t.Fatal("empty query must not count as fallback")
	}
	if len(res.ExpandedSkills) != 0 || res.CacheHit {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExpandStopwordOnlyQuery(t *testing.T) {
	g := graph.NewMemoryStore()
	svc, _ := newTestService(t, g)
	res := svc.Expand(context.Background(), "senior engineer", nil)
	if res.FallbackUsed || len(res.ExpandedSkills) != 0 {
		t.Fatalf("stopword-only query: %+v", res)
	}
}

func TestExpandStrictTier(t *testing.T) {
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), testTaxonomy()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	svc, _ := newTestService(t, g)
	res := svc.Expand(context.Background(), "react developer", nil)
	if res.FallbackUsed || res.CacheHit {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if res.TaxonomyVersion != 1 {
		t.Fatalf("taxonomy version = %d", res.TaxonomyVersion)
	}
	skills := res.ByNormalizedSkill()
	if _, ok := skills["javascript"]; !ok {
		t.Fatalf("javascript missing from expansion: %v", res.ExpandedSkills)
	}
	if _, ok := skills["typescript"]; !ok {
		t.Fatalf("typescript missing from expansion: %v", res.ExpandedSkills)
	}
	if res.SeedDebug == nil || len(res.SeedDebug.StrictSeeds) == 0 {
		t.Fatal("seed debug missing")
	}
}

func TestExpandCacheRoundTrip(t *testing.T) {
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), testTaxonomy()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	svc, _ := newTestService(t, g)
	first := svc.Expand(context.Background(), "react", nil)
	if first.CacheHit {
		t.Fatal("first call must miss")
	}
	second := svc.Expand(context.Background(), "react", nil)
	if !second.CacheHit {
		t.Fatal("second call must hit the expansion cache")
	}
	if len(second.ExpandedSkills) != len(first.ExpandedSkills) {
		t.Fatalf("cached result differs: %d vs %d", len(second.ExpandedSkills), len(first.ExpandedSkills))
	}
}

func TestExpandDedupeKeepsMaxWeight(t *testing.T) {
	doc := testTaxonomy()
	// duplicate edge with a lower weight
	doc.SkillRelations = append(doc.SkillRelations,
		graph.SkillRelation{FromID: "s1", ToID: "s2", Type: models.RelationRequires, Weight: 0.4})
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), doc); err != nil {
		t.Fatalf("sync: %v", err)
	}
	svc, _ := newTestService(t, g)
	res := svc.Expand(context.Background(), "react", nil)
	var count int
	for _, sk := range res.ExpandedSkills {
		if sk.NormalizedSkill == "javascript" && sk.Depth == 1 && sk.RelationType == models.RelationRequires {
			count++
			if sk.RelationWeight != 0.9 {
				t.Fatalf("kept weight %v, want the max 0.9", sk.RelationWeight)
			}
		}
	}
	if count != 1 {
		t.Fatalf("duplicate rows survived dedupe: %d", count)
	}
}

func TestExpandContainsTierFallback(t *testing.T) {
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), testTaxonomy()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	svc, _ := newTestService(t, g)
	// "script" matches nothing exactly but substring-matches two skills
	res := svc.Expand(context.Background(), "script", nil)
	if res.FallbackUsed {
		t.Fatalf("contains tier must not flag fallback: %+v", res)
	}
	skills := res.ByNormalizedSkill()
	if _, ok := skills["javascript"]; !ok {
		t.Fatalf("contains tier missed javascript: %v", res.ExpandedSkills)
	}
}

func TestExpandEmptyResultIsFallbackAndUncached(t *testing.T) {
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), testTaxonomy()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	svc, _ := newTestService(t, g)
	// "cobol" resolves to no node on either tier, so the walk returns nothing.
	first := svc.Expand(context.Background(), "cobol", nil)
	if len(first.ExpandedSkills) != 0 {
		t.Fatalf("unexpected expansion: %v", first.ExpandedSkills)
	}
	if !first.FallbackUsed {
		t.Fatal("empty expansion must flag fallback")
	}
	second := svc.Expand(context.Background(), "cobol", nil)
	if second.CacheHit {
		t.Fatal("degraded expansion must not be cached")
	}
}

func TestExpandNoTaxonomyFallback(t *testing.T) {
	g := graph.NewMemoryStore() // nothing synced
	svc, _ := newTestService(t, g)
	res := svc.Expand(context.Background(), "react", nil)
	if !res.FallbackUsed {
		t.Fatal("no active taxonomy must flag fallback")
	}
}

func TestExpandDisabledGraph(t *testing.T) {
	svc, _ := newTestService(t, graph.NewNoopStore())
	res := svc.Expand(context.Background(), "react", nil)
	if !res.FallbackUsed || len(res.ExpandedSkills) != 0 {
		t.Fatalf("noop graph: %+v", res)
	}
}

type failingGraph struct {
	graph.Store
	calls int
}

func (f *failingGraph) Enabled() bool { return true }

func (f *failingGraph) ActiveVersion(ctx context.Context) (int, error) { return 1, nil }

func (f *failingGraph) ExpandStrict(ctx context.Context, seeds []string, opts graph.TraversalOptions) ([]graph.TraversalRow, error) {
	f.calls++
	return nil, errors.New("backend down")
}

func TestExpandBreakerOpensAndFallsBack(t *testing.T) {
	fg := &failingGraph{}
	store := kv.NewMemoryStore()
	br := breaker.New("graph", 2, time.Minute, time.Minute)
	svc := NewService(fg, store, br, nil, Config{}, zap.NewNop())

	for i := 0; i < 3; i++ {
		// distinct queries so the cache never hits
		res := svc.Expand(context.Background(), "react", []string{string(rune('a' + i))})
		if !res.FallbackUsed {
			t.Fatalf("call %d must fall back", i)
		}
	}
	if br.State() != breaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", br.State())
	}
	calls := fg.calls
	res := svc.Expand(context.Background(), "react", []string{"z"})
	if !res.FallbackUsed {
		t.Fatal("open breaker must fall back")
	}
	if fg.calls != calls {
		t.Fatal("open breaker must not hit the backend")
	}
}

type fixedStats struct {
	total int
	freq  map[string]int
}

func (s fixedStats) TotalCandidates(ctx context.Context) (int, error) { return s.total, nil }
func (s fixedStats) SkillDocFrequency(ctx context.Context, skill string) (int, error) {
	return s.freq[skill], nil
}

func TestExpandAttachesIDF(t *testing.T) {
	g := graph.NewMemoryStore()
	if err := g.SyncTaxonomy(context.Background(), testTaxonomy()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	store := kv.NewMemoryStore()
	br := breaker.New("graph", 3, time.Minute, time.Minute)
	stats := fixedStats{total: 1000, freq: map[string]int{"javascript": 900, "typescript": 10}}
	svc := NewService(g, store, br, stats, Config{}, zap.NewNop())

	res := svc.Expand(context.Background(), "react", nil)
	skills := res.ByNormalizedSkill()
	if len(skills["javascript"]) == 0 || len(skills["typescript"]) == 0 {
		t.Fatalf("expansion missing expected skills: %v", res.ExpandedSkills)
	}
	js := skills["javascript"][0]
	ts := skills["typescript"][0]
	if js.IDFScore >= ts.IDFScore {
		t.Fatalf("common skill must score below rare skill: js=%v ts=%v", js.IDFScore, ts.IDFScore)
	}
	if js.IDFScore < 0.2 || ts.IDFScore > 3.0 {
		t.Fatalf("idf outside clamp range: js=%v ts=%v", js.IDFScore, ts.IDFScore)
	}
}
