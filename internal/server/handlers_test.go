package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/breaker"
	"github.com/hireloop/talentsearch/internal/config"
	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/metrics"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/profilestore"
)

type stubSearcher struct {
	resp *models.SearchResponse
	err  error
	last *models.SearchQuery
}

func (s *stubSearcher) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubIngestor struct {
	jobID string
	err   error
	last  models.IngestionJobPayload
}

func (s *stubIngestor) Submit(ctx context.Context, payload models.IngestionJobPayload) (string, error) {
	s.last = payload
	return s.jobID, s.err
}

type stubBroker struct {
	depths map[string]int
	dead   []string
}

func (s *stubBroker) Depth(queue string) int { return s.depths[queue] }

func (s *stubBroker) DeadLetterKeys(ctx context.Context) ([]string, error) {
	return s.dead, nil
}

func newTestServer(t *testing.T, searcher Searcher, ingestor Ingestor) (*Server, *profilestore.MemoryStore, *graph.MemoryStore) {
	t.Helper()
	profiles := profilestore.NewMemoryStore()
	gs := graph.NewMemoryStore()
	srv := NewServer(
		searcher,
		ingestor,
		profiles,
		gs,
		&stubBroker{depths: map[string]int{models.QueueExtract: 2}},
		metrics.NewCollector(0),
		breaker.NewRegistry(5, time.Minute, 30*time.Second),
		&config.ServerConfig{Host: "localhost", Port: 8080},
		zap.NewNop(),
	)
	return srv, profiles, gs
}

func doRequest(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestHandleSearch(t *testing.T) {
	searcher := &stubSearcher{resp: &models.SearchResponse{
		Results: []*models.CandidateSummary{{ID: "c1", Name: "Dana"}},
		Total:   1,
	}}
	srv, _, _ := newTestServer(t, searcher, &stubIngestor{jobID: "j1"})

	w := doRequest(srv, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "go engineer"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].ID != "c1" {
		t.Fatalf("resp = %+v", resp)
	}
	if searcher.last.Query != "go engineer" {
		t.Fatalf("query passed = %q", searcher.last.Query)
	}
}

func TestHandleSearchBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleSearchEngineError(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{err: fmt.Errorf("boom")}, &stubIngestor{})
	w := doRequest(srv, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "x"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	ingestor := &stubIngestor{jobID: "job-42"}
	srv, _, _ := newTestServer(t, &stubSearcher{}, ingestor)

	w := doRequest(srv, http.MethodPost, "/api/v1/ingest", models.IngestionJobPayload{
		UserID:    "u1",
		ResumeURL: "resume.pdf",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["job_id"] != "job-42" || resp["status"] != "queued" {
		t.Fatalf("resp = %v", resp)
	}
	if ingestor.last.UserID != "u1" {
		t.Fatalf("payload passed = %+v", ingestor.last)
	}
}

func TestHandleIngestInvalidPayload(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{err: fmt.Errorf("user_id required")})
	w := doRequest(srv, http.MethodPost, "/api/v1/ingest", models.IngestionJobPayload{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleGetCandidate(t *testing.T) {
	srv, profiles, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	_ = profiles.Upsert(context.Background(), &models.Candidate{ID: "c1", Name: "Dana"})

	w := doRequest(srv, http.MethodGet, "/api/v1/candidates/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cand models.Candidate
	_ = json.Unmarshal(w.Body.Bytes(), &cand)
	if cand.Name != "Dana" {
		t.Fatalf("cand = %+v", cand)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/candidates/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status for missing = %d", w.Code)
	}
}

func TestHandleTaxonomySync(t *testing.T) {
	srv, _, gs := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	doc := graph.TaxonomyDocument{
		Version: 3,
		Skills: []graph.TaxonomySkill{
			{ID: "s1", Name: "Go"},
			{ID: "s2", Name: "Kubernetes"},
		},
		SkillRelations: []graph.SkillRelation{
			{FromID: "s1", ToID: "s2", Type: models.RelationRelatedTo, Weight: 0.8},
		},
	}

	w := doRequest(srv, http.MethodPost, "/api/v1/taxonomy/sync", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	version, err := gs.ActiveVersion(context.Background())
	if err != nil || version != 3 {
		t.Fatalf("active version = %d, %v", version, err)
	}
}

func TestHandleTaxonomySyncInvalidDocument(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	doc := graph.TaxonomyDocument{
		Version: 1,
		SkillRelations: []graph.SkillRelation{
			{FromID: "ghost", ToID: "ghost2", Type: models.RelationRelatedTo},
		},
	}
	w := doRequest(srv, http.MethodPost, "/api/v1/taxonomy/sync", doc)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	w := doRequest(srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	queues, ok := resp["queues"].(map[string]any)
	if !ok {
		t.Fatalf("queues missing: %v", resp)
	}
	if queues[models.QueueExtract].(float64) != 2 {
		t.Fatalf("extract depth = %v", queues[models.QueueExtract])
	}
	if _, ok := resp["counters"]; !ok {
		t.Fatal("counters missing")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubSearcher{}, &stubIngestor{})
	w := doRequest(srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
