package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/profilestore"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Int("page", query.Page))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload models.IngestionJobPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	jobID, err := s.ingestor.Submit(r.Context(), payload)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ingestion queued",
		zap.String("user_id", payload.UserID),
		zap.String("job_id", jobID))
	s.respondJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "queued"})
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cand, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "candidate not found")
			return
		}
		s.logger.Error("candidate lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, cand)
}

func (s *Server) handleTaxonomySync(w http.ResponseWriter, r *http.Request) {
	var doc graph.TaxonomyDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := doc.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.graph.SyncTaxonomy(r.Context(), &doc); err != nil {
		if errors.Is(err, graph.ErrUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, "graph store not configured")
			return
		}
		s.logger.Error("taxonomy sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("taxonomy synced", zap.Int("version", doc.Version))
	s.respondJSON(w, http.StatusOK, map[string]any{"version": doc.Version, "status": "synced"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fallbackRate, zeroRate, samples := s.stats.ExpansionRates()
	resp := map[string]any{
		"counters": s.stats.Snapshot(),
		"expansion": map[string]any{
			"fallback_rate":       fallbackRate,
			"zero_expansion_rate": zeroRate,
			"samples":             samples,
		},
		"breakers":   s.breakers.States(),
		"started_at": s.stats.StartedAt(),
	}

	depths := make(map[string]int, 4)
	for _, q := range []string{
		models.QueueExtract,
		models.QueueVectorize,
		models.QueueBroadcast,
		models.QueueGraphSync,
	} {
		depths[q] = s.broker.Depth(q)
	}
	resp["queues"] = depths
	if dead, err := s.broker.DeadLetterKeys(ctx); err == nil {
		resp["dead_letters"] = len(dead)
	}

	if version, err := s.graph.ActiveVersion(ctx); err == nil {
		resp["taxonomy_version"] = version
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
