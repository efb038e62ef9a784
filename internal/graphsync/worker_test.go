package graphsync

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/liveindex"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/queue"
)

func newWorker(t *testing.T) (*Worker, *graph.MemoryStore, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	gs := graph.NewMemoryStore()
	w := New(gs, liveindex.New(store, zap.NewNop()), Config{}, zap.NewNop())
	return w, gs, store
}

func syncJob(t *testing.T, payload models.GraphSyncPayload) *queue.Job {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &queue.Job{ID: "j1", Queue: models.QueueGraphSync, Payload: data}
}

func TestHandleUpsertsEdgesAndIndexes(t *testing.T) {
	ctx := context.Background()
	w, gs, store := newWorker(t)

	err := w.Handle(ctx, syncJob(t, models.GraphSyncPayload{
		UserID:        "u1",
		ProfileSkills: []string{"Go"},
		ExtractedSkills: []models.ExtractedSkill{
			{Name: "Kafka", NormalizedName: "kafka", Confidence: 0.9},
			{Name: "Bash", NormalizedName: "bash", Confidence: 0.3}, // below floor
		},
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	skills, err := gs.CandidateSkills(ctx, "u1")
	if err != nil {
		t.Fatalf("CandidateSkills: %v", err)
	}
	if !reflect.DeepEqual(skills, []string{"go", "kafka"}) {
		t.Fatalf("skills = %v", skills)
	}

	for _, skill := range []string{"go", "kafka"} {
		members, _ := store.SMembers(ctx, kv.SkillIndexKey(skill))
		if len(members) != 1 || members[0] != "u1" {
			t.Fatalf("index %q = %v", skill, members)
		}
	}
	members, _ := store.SMembers(ctx, kv.SkillIndexKey("bash"))
	if len(members) != 0 {
		t.Fatalf("bash index = %v", members)
	}
}

func TestHandleIdempotent(t *testing.T) {
	ctx := context.Background()
	w, gs, store := newWorker(t)
	payload := models.GraphSyncPayload{
		UserID:          "u1",
		ProfileSkills:   []string{"Go", "Kubernetes"},
		ExtractedSkills: []models.ExtractedSkill{{Name: "Kafka", NormalizedName: "kafka", Confidence: 0.8}},
	}

	if err := w.Handle(ctx, syncJob(t, payload)); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	first, _ := gs.CandidateSkills(ctx, "u1")
	firstIdx, _ := store.SMembers(ctx, kv.SkillIndexesKey("u1"))

	if err := w.Handle(ctx, syncJob(t, payload)); err != nil {
		t.Fatalf("second Handle: %v", err)
	}
	second, _ := gs.CandidateSkills(ctx, "u1")
	secondIdx, _ := store.SMembers(ctx, kv.SkillIndexesKey("u1"))

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("edge drift: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(firstIdx, secondIdx) {
		t.Fatalf("membership drift: %v vs %v", firstIdx, secondIdx)
	}
}

func TestHandleRemovesStaleSkills(t *testing.T) {
	ctx := context.Background()
	w, gs, store := newWorker(t)

	if err := w.Handle(ctx, syncJob(t, models.GraphSyncPayload{
		UserID:        "u1",
		ProfileSkills: []string{"Go", "Perl"},
	})); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := w.Handle(ctx, syncJob(t, models.GraphSyncPayload{
		UserID:        "u1",
		ProfileSkills: []string{"Go"},
	})); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	skills, _ := gs.CandidateSkills(ctx, "u1")
	if !reflect.DeepEqual(skills, []string{"go"}) {
		t.Fatalf("skills = %v", skills)
	}
	members, _ := store.SMembers(ctx, kv.SkillIndexKey("perl"))
	if len(members) != 0 {
		t.Fatalf("perl index = %v", members)
	}
}

func TestHandleRejectsInvalidPayload(t *testing.T) {
	w, _, _ := newWorker(t)
	job := &queue.Job{ID: "bad", Queue: models.QueueGraphSync, Payload: []byte(`{"profile_skills": []}`)}
	err := w.Handle(context.Background(), job)
	if !errors.Is(err, queue.ErrRejected) {
		t.Fatalf("error not rejecting: %v", err)
	}
}

func TestMergeEvidenceProfileWins(t *testing.T) {
	w, _, _ := newWorker(t)
	evidence := w.mergeEvidence(
		[]string{"Go"},
		[]models.ExtractedSkill{{Name: "go", NormalizedName: "go", Confidence: 0.99}},
	)
	if len(evidence) != 1 {
		t.Fatalf("evidence = %v", evidence)
	}
	if evidence[0].Source != models.EvidenceSourceProfile || evidence[0].Confidence != 1.0 {
		t.Fatalf("profile evidence lost: %+v", evidence[0])
	}
}

func TestMergeEvidenceDiscountsExtracted(t *testing.T) {
	w, _, _ := newWorker(t)
	evidence := w.mergeEvidence(nil, []models.ExtractedSkill{
		{Name: "Kafka", NormalizedName: "kafka", Confidence: 0.8},
	})
	if len(evidence) != 1 {
		t.Fatalf("evidence = %v", evidence)
	}
	got := evidence[0].Confidence
	if got < 0.559 || got > 0.561 {
		t.Fatalf("confidence = %v, want 0.8*0.7", got)
	}
	if evidence[0].Source != models.EvidenceSourceExtracted {
		t.Fatalf("source = %q", evidence[0].Source)
	}
}

func TestMergeEvidenceSortedAndFloored(t *testing.T) {
	w, _, _ := newWorker(t)
	evidence := w.mergeEvidence([]string{"Zsh", "Ansible"}, []models.ExtractedSkill{
		{Name: "Maybe", NormalizedName: "maybe", Confidence: 0.44},
	})
	if len(evidence) != 2 {
		t.Fatalf("evidence = %v", evidence)
	}
	if evidence[0].NormalizedName != "ansible" || evidence[1].NormalizedName != "zsh" {
		t.Fatalf("not sorted: %v", evidence)
	}
}

func TestHandleNoopGraphStillIndexes(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	w := New(graph.NewNoopStore(), liveindex.New(store, zap.NewNop()), Config{}, zap.NewNop())

	if err := w.Handle(ctx, syncJob(t, models.GraphSyncPayload{
		UserID:        "u1",
		ProfileSkills: []string{"Go"},
	})); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	members, _ := store.SMembers(ctx, kv.SkillIndexKey("go"))
	if len(members) != 1 {
		t.Fatalf("go index = %v", members)
	}
}
