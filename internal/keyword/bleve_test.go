package keyword

import (
	"context"
	"testing"

	"github.com/hireloop/talentsearch/internal/models"
)

func newTestBleve(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsBio(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	cand := &models.Candidate{
		ID:    "cand-1",
		Name:  "Ada Lovelace",
		Title: "Backend Engineer",
		Bio:   "Eight years building payment systems in Go and PostgreSQL.",
	}
	if err := idx.Index(ctx, cand); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "postgresql", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected a hit for \"postgresql\" in candidate bio")
	}
	if results[0].ID != "cand-1" {
		t.Errorf("first result ID = %q, want %q", results[0].ID, "cand-1")
	}

	// Standard analyzer (no stemming) so lowercase query matches mixed case
	results2, err := idx.Search(ctx, "go", 10, nil)
	if err != nil {
		t.Fatalf("Search go: %v", err)
	}
	if len(results2) == 0 {
		t.Fatal("expected a hit for \"go\"")
	}
}

func TestBleveIndex_SearchFindsSkills(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	cand := &models.Candidate{
		ID:     "cand-2",
		Name:   "Grace Hopper",
		Title:  "Frontend Engineer",
		Skills: []string{"React", "TypeScript"},
		Bio:    "Component libraries and design systems.",
	}
	if err := idx.Index(ctx, cand); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "typescript", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "cand-2" {
		t.Fatalf("skills field not searchable: %v", results)
	}
}

func TestBleveIndex_TitleBoostRanksTitleMatchFirst(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	titled := &models.Candidate{
		ID:    "titled",
		Title: "React Engineer",
		Bio:   "Frontend work.",
	}
	mentioned := &models.Candidate{
		ID:    "mentioned",
		Title: "Generalist",
		Bio:   "Once attended a React workshop.",
	}
	for _, c := range []*models.Candidate{mentioned, titled} {
		if err := idx.Index(ctx, c); err != nil {
			t.Fatalf("Index %s: %v", c.ID, err)
		}
	}

	results, err := idx.Search(ctx, "react", 10, &SearchOptions{TitleBoost: 3.0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("want both candidates, got %v", results)
	}
	if results[0].ID != "titled" {
		t.Errorf("title match ranked %q first, want %q", results[0].ID, "titled")
	}
}

func TestBleveIndex_CoveragePenalizesPartialMatch(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	full := &models.Candidate{
		ID:    "full",
		Title: "Engineer",
		Bio:   "Kafka streaming pipelines in Golang.",
	}
	partial := &models.Candidate{
		ID:    "partial",
		Title: "Engineer",
		Bio:   "Kafka Kafka Kafka Kafka administration only.",
	}
	for _, c := range []*models.Candidate{partial, full} {
		if err := idx.Index(ctx, c); err != nil {
			t.Fatalf("Index %s: %v", c.ID, err)
		}
	}

	results, err := idx.Search(ctx, "kafka golang", 10, &SearchOptions{TitleBoost: 2.0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].ID != "full" {
		t.Errorf("both-term match ranked %q first, want %q", results[0].ID, "full")
	}
}

func TestBleveIndex_FuzzySearchToleratesTypo(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	cand := &models.Candidate{
		ID:  "cand-3",
		Bio: "Kubernetes cluster operations.",
	}
	if err := idx.Index(ctx, cand); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "kubernetis", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("fuzzy search found nothing for a one-letter typo")
	}
}

func TestBleveIndex_DeleteRemovesCandidate(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	cand := &models.Candidate{ID: "cand-4", Bio: "Rust and WebAssembly."}
	if err := idx.Index(ctx, cand); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Delete(ctx, "cand-4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := idx.Search(ctx, "rust", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("deleted candidate still returned: %v", results)
	}
	count, err := idx.DocCount()
	if err != nil || count != 0 {
		t.Fatalf("DocCount = %d, %v", count, err)
	}
}
