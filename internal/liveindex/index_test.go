package liveindex

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/models"
)

func newTestIndex() (*Index, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return New(store, zap.NewNop()), store
}

func TestCandidatesForSkills(t *testing.T) {
	ix, store := newTestIndex()
	ctx := context.Background()
	store.SAdd(ctx, kv.SkillIndexKey("react"), "c1", "c2")
	store.SAdd(ctx, kv.SkillIndexKey("typescript"), "c2", "c3")

	matched, err := ix.CandidatesForSkills(ctx, []string{"react", "typescript", "cobol"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(matched) != 3 {
		t.Fatalf("matched = %v", matched)
	}
	if len(matched["c2"]) != 2 || matched["c2"][0] != "react" || matched["c2"][1] != "typescript" {
		t.Fatalf("c2 skills = %v", matched["c2"])
	}
	if len(matched["c1"]) != 1 || len(matched["c3"]) != 1 {
		t.Fatalf("matched = %v", matched)
	}
}

func TestRecentPoolOrdering(t *testing.T) {
	ix, _ := newTestIndex()
	ctx := context.Background()
	base := time.Now()
	ix.TouchPool(ctx, "old", base.Add(-2*time.Hour))
	ix.TouchPool(ctx, "mid", base.Add(-time.Hour))
	ix.TouchPool(ctx, "new", base)

	page, err := ix.RecentPool(ctx, 0, 2)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if len(page) != 2 || page[0] != "new" || page[1] != "mid" {
		t.Fatalf("page = %v", page)
	}
	rest, _ := ix.RecentPool(ctx, 2, 2)
	if len(rest) != 1 || rest[0] != "old" {
		t.Fatalf("rest = %v", rest)
	}
	total, _ := ix.TotalCandidates(ctx)
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
}

func TestShadowProfileRoundTrip(t *testing.T) {
	ix, _ := newTestIndex()
	ctx := context.Background()
	cand := &models.Candidate{ID: "c1", Title: "Backend Engineer", Location: "Berlin", YearsExperience: 7}
	if err := ix.WriteShadowProfile(ctx, cand); err != nil {
		t.Fatalf("write: %v", err)
	}
	shadow, err := ix.ShadowProfile(ctx, "c1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if shadow.YearsExperience != 7 || shadow.Location != "Berlin" || shadow.Role != "Backend Engineer" {
		t.Fatalf("shadow = %+v", shadow)
	}
}

func TestFilterByShadow(t *testing.T) {
	ix, _ := newTestIndex()
	ctx := context.Background()
	ix.WriteShadowProfile(ctx, &models.Candidate{ID: "junior", YearsExperience: 2, Location: "Berlin"})
	ix.WriteShadowProfile(ctx, &models.Candidate{ID: "senior", YearsExperience: 9, Location: "Berlin"})
	ix.WriteShadowProfile(ctx, &models.Candidate{ID: "remote", YearsExperience: 9, Location: "Lisbon"})

	ids := []string{"junior", "senior", "remote", "unknown"}

	kept := ix.FilterByShadow(ctx, ids, models.SearchFilters{MinYearsExperience: 5})
	if len(kept) != 3 || kept[0] != "senior" || kept[1] != "remote" || kept[2] != "unknown" {
		t.Fatalf("experience filter kept %v", kept)
	}

	kept = ix.FilterByShadow(ctx, ids, models.SearchFilters{MinYearsExperience: 5, Location: "berlin"})
	if len(kept) != 2 || kept[0] != "senior" || kept[1] != "unknown" {
		t.Fatalf("location filter kept %v", kept)
	}

	// no filters is a pass-through
	kept = ix.FilterByShadow(ctx, ids, models.SearchFilters{})
	if len(kept) != 4 {
		t.Fatalf("empty filter kept %v", kept)
	}
}

func TestFilterByShadowExpired(t *testing.T) {
	store := kv.NewMemoryStore()
	now := time.Now()
	store.WithClock(func() time.Time { return now })
	ix := New(store, zap.NewNop())
	ctx := context.Background()
	ix.WriteShadowProfile(ctx, &models.Candidate{ID: "stale", YearsExperience: 1})

	now = now.Add(ShadowTTL + time.Hour)
	// expired shadow cannot filter the candidate out
	kept := ix.FilterByShadow(ctx, []string{"stale"}, models.SearchFilters{MinYearsExperience: 5})
	if len(kept) != 1 {
		t.Fatalf("kept = %v", kept)
	}
}

func TestReplaceSkillIndexes(t *testing.T) {
	ix, store := newTestIndex()
	ctx := context.Background()

	if err := ix.ReplaceSkillIndexes(ctx, "c1", []string{"react", "javascript"}); err != nil {
		t.Fatalf("initial: %v", err)
	}
	members, _ := store.SMembers(ctx, kv.SkillIndexKey("react"))
	if len(members) != 1 || members[0] != "c1" {
		t.Fatalf("react members = %v", members)
	}

	// re-sync with a changed skill set removes stale memberships
	if err := ix.ReplaceSkillIndexes(ctx, "c1", []string{"react", "typescript"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if members, _ := store.SMembers(ctx, kv.SkillIndexKey("javascript")); len(members) != 0 {
		t.Fatalf("stale javascript membership: %v", members)
	}
	if members, _ := store.SMembers(ctx, kv.SkillIndexKey("typescript")); len(members) != 1 {
		t.Fatalf("typescript members = %v", members)
	}

	// replay is idempotent
	if err := ix.ReplaceSkillIndexes(ctx, "c1", []string{"react", "typescript"}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	tracked, _ := store.SMembers(ctx, kv.SkillIndexesKey("c1"))
	if len(tracked) != 2 {
		t.Fatalf("tracked = %v", tracked)
	}

	// other candidates in the same set are untouched
	ix.ReplaceSkillIndexes(ctx, "c2", []string{"react"})
	ix.ReplaceSkillIndexes(ctx, "c1", []string{"typescript"})
	members, _ = store.SMembers(ctx, kv.SkillIndexKey("react"))
	if len(members) != 1 || members[0] != "c2" {
		t.Fatalf("react members after c1 left = %v", members)
	}
}

func TestSkillDocFrequency(t *testing.T) {
	ix, store := newTestIndex()
	ctx := context.Background()
	store.SAdd(ctx, kv.SkillIndexKey("go"), "c1", "c2", "c3")
	df, err := ix.SkillDocFrequency(ctx, "go")
	if err != nil || df != 3 {
		t.Fatalf("df = %d, %v", df, err)
	}
	df, _ = ix.SkillDocFrequency(ctx, "cobol")
	if df != 0 {
		t.Fatalf("unknown skill df = %d", df)
	}
}
