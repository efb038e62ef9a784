// Package graphsync reconciles a candidate's HAS_SKILL edges and live
// skill-index memberships after ingestion or a profile edit. Replays are
// safe: the edge set and index memberships are replaced, not appended.
package graphsync

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/liveindex"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/internal/queue"
)

// Config weights the evidence merge.
type Config struct {
	// WeightFactor discounts extracted-skill confidence against
	// profile-declared skills.
	WeightFactor float64
	// MinConfidence is the raw-confidence floor below which extracted
	// skills are dropped from the evidence set.
	MinConfidence float64
	// IndexThreshold is the raw-confidence floor for live skill-index
	// membership, matching the Broadcaster's.
	IndexThreshold float64
}

func (c *Config) ApplyDefaults() {
	if c.WeightFactor == 0 {
		c.WeightFactor = 0.7
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.45
	}
	if c.IndexThreshold == 0 {
		c.IndexThreshold = 0.6
	}
}

// Worker consumes graph-sync jobs.
type Worker struct {
	graph    graph.Store
	index    *liveindex.Index
	validate *validator.Validate
	logger   *zap.Logger
	cfg      Config
}

func New(store graph.Store, index *liveindex.Index, cfg Config, logger *zap.Logger) *Worker {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		graph:    store,
		index:    index,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

// Register attaches the worker to its queue.
func (w *Worker) Register(broker queue.Broker) error {
	return broker.Consume(models.QueueGraphSync, w.Handle)
}

// Handle merges skill evidence and replaces the candidate's graph edges and
// index memberships.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	var payload models.GraphSyncPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrRejected)
	}
	if err := w.validate.Struct(&payload); err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrRejected)
	}

	evidence := w.mergeEvidence(payload.ProfileSkills, payload.ExtractedSkills)
	if w.graph.Enabled() {
		if err := w.graph.UpsertCandidate(ctx, payload.UserID, evidence); err != nil {
			return fmt.Errorf("upsert candidate %s: %w", payload.UserID, err)
		}
	}

	indexSkills := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		if ev.Source == models.EvidenceSourceProfile || rawConfidence(ev, w.cfg.WeightFactor) >= w.cfg.IndexThreshold {
			indexSkills = append(indexSkills, ev.NormalizedName)
		}
	}
	if err := w.index.ReplaceSkillIndexes(ctx, payload.UserID, indexSkills); err != nil {
		return fmt.Errorf("replace skill indexes for %s: %w", payload.UserID, err)
	}

	w.logger.Debug("graph sync complete",
		zap.String("user_id", payload.UserID),
		zap.Int("evidence", len(evidence)),
		zap.Int("indexed", len(indexSkills)))
	return nil
}

// rawConfidence undoes the merge discount so index thresholds compare
// against what the extractor reported.
func rawConfidence(ev models.SkillEvidence, factor float64) float64 {
	if ev.Source == models.EvidenceSourceExtracted && factor > 0 {
		return ev.Confidence / factor
	}
	return ev.Confidence
}

// mergeEvidence folds profile-declared and extracted skills into one set
// keyed by normalized name. Profile evidence always wins; extracted evidence
// enters at a discounted confidence and only above the raw-confidence floor.
// The result is sorted by normalized name so replays produce identical edge
// sets.
func (w *Worker) mergeEvidence(profileSkills []string, extracted []models.ExtractedSkill) []models.SkillEvidence {
	byNorm := make(map[string]models.SkillEvidence)
	for _, name := range profileSkills {
		norm := normalize.Skill(name)
		if norm == "" {
			continue
		}
		byNorm[norm] = models.SkillEvidence{
			Name:           name,
			NormalizedName: norm,
			Source:         models.EvidenceSourceProfile,
			Confidence:     1.0,
		}
	}
	for _, s := range extracted {
		if s.Confidence < w.cfg.MinConfidence {
			continue
		}
		norm := s.NormalizedName
		if norm == "" {
			norm = normalize.Skill(s.Name)
		}
		if norm == "" {
			continue
		}
		if existing, ok := byNorm[norm]; ok {
			if existing.Source == models.EvidenceSourceProfile || existing.Confidence >= s.Confidence*w.cfg.WeightFactor {
				continue
			}
		}
		byNorm[norm] = models.SkillEvidence{
			Name:           s.Name,
			NormalizedName: norm,
			Source:         models.EvidenceSourceExtracted,
			Confidence:     s.Confidence * w.cfg.WeightFactor,
			SkillID:        s.SkillID,
		}
	}
	evidence := make([]models.SkillEvidence, 0, len(byNorm))
	for _, ev := range byNorm {
		evidence = append(evidence, ev)
	}
	sort.Slice(evidence, func(i, j int) bool {
		return evidence[i].NormalizedName < evidence[j].NormalizedName
	})
	return evidence
}
