// Package ingest runs the asynchronous resume ingestion pipeline: three
// chained single-worker queue consumers. The Extractor turns a resume into
// text, chunks, and LLM-inferred skills; the Vectorizer embeds chunks with
// content-hash reuse; the Broadcaster replaces the candidate's stored rows,
// rebuilds the live index, and hands off to the graph-sync worker. A
// candidate becomes searchable only when the Broadcaster completes.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/embedding"
	"github.com/hireloop/talentsearch/internal/keyword"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/liveindex"
	"github.com/hireloop/talentsearch/internal/metrics"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/internal/profilestore"
	"github.com/hireloop/talentsearch/internal/queue"
)

// Config bounds the pipeline stages.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// IndexThreshold is the minimum extracted-skill confidence for
	// skill-index membership.
	IndexThreshold float64
	// CacheThreshold is the minimum confidence for the extracted-skill
	// cache hash.
	CacheThreshold float64
}

func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = defaultChunkOverlap
	}
	if c.IndexThreshold == 0 {
		c.IndexThreshold = 0.6
	}
	if c.CacheThreshold == 0 {
		c.CacheThreshold = 0.45
	}
}

// Pipeline wires the three ingestion consumers to the broker.
type Pipeline struct {
	broker   queue.Broker
	profiles profilestore.Store
	store    kv.Store
	index    *liveindex.Index
	search   *keyword.BleveIndex
	text     *TextExtractor
	skills   SkillExtractor
	embedder embedding.Embedder
	fetch    Fetcher
	stats    *metrics.Collector
	validate *validator.Validate
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

func New(
	broker queue.Broker,
	profiles profilestore.Store,
	store kv.Store,
	index *liveindex.Index,
	search *keyword.BleveIndex,
	skills SkillExtractor,
	embedder embedding.Embedder,
	fetch Fetcher,
	stats *metrics.Collector,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	cfg.ApplyDefaults()
	if fetch == nil {
		fetch = FileFetcher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		broker:   broker,
		profiles: profiles,
		store:    store,
		index:    index,
		search:   search,
		text:     NewTextExtractor(),
		skills:   skills,
		embedder: embedder,
		fetch:    fetch,
		stats:    stats,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Register attaches the three stage consumers. Each queue runs one worker,
// so stages for the same candidate never interleave.
func (p *Pipeline) Register() error {
	if err := p.broker.Consume(models.QueueExtract, p.handleExtract); err != nil {
		return err
	}
	if err := p.broker.Consume(models.QueueVectorize, p.handleVectorize); err != nil {
		return err
	}
	return p.broker.Consume(models.QueueBroadcast, p.handleBroadcast)
}

// Submit validates and enqueues an ingestion job, returning the job id.
func (p *Pipeline) Submit(ctx context.Context, payload models.IngestionJobPayload) (string, error) {
	if err := p.validate.Struct(&payload); err != nil {
		return "", fmt.Errorf("invalid ingestion payload: %w", err)
	}
	p.stats.Inc(metrics.CounterIngestions)
	return p.broker.Enqueue(ctx, models.QueueExtract, payload)
}

// reject wraps a validation failure so the broker dead-letters the job
// without burning retries.
func reject(err error) error {
	return fmt.Errorf("%v: %w", err, queue.ErrRejected)
}

func (p *Pipeline) handleExtract(ctx context.Context, job *queue.Job) error {
	var payload models.IngestionJobPayload
	if err := job.Decode(&payload); err != nil {
		return reject(err)
	}
	if err := p.validate.Struct(&payload); err != nil {
		return reject(err)
	}

	text := ""
	if payload.ResumeURL != "" {
		content, ext, err := p.fetch.Fetch(ctx, payload.ResumeURL)
		if err != nil {
			return fmt.Errorf("fetch resume for %s: %w", payload.UserID, err)
		}
		text, err = p.text.ExtractBytes(content, ext)
		if err != nil {
			return fmt.Errorf("extract resume for %s: %w", payload.UserID, err)
		}
	}
	if payload.Bio != "" {
		if text != "" {
			text += "\n\n"
		}
		text += payload.Bio
	}

	out := models.ExtractorOutput{
		UserID:    payload.UserID,
		FullText:  text,
		RawChunks: splitChunks(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap),
	}
	if text != "" {
		skills, err := p.skills.ExtractSkills(ctx, text)
		if err != nil {
			return fmt.Errorf("extract skills for %s: %w", payload.UserID, err)
		}
		out.ExtractedSkills = p.canonicalize(ctx, skills)
	}

	p.logger.Debug("extractor stage complete",
		zap.String("user_id", payload.UserID),
		zap.Int("chunks", len(out.RawChunks)),
		zap.Int("skills", len(out.ExtractedSkills)))
	if _, err := p.broker.Enqueue(ctx, models.QueueVectorize, out); err != nil {
		return fmt.Errorf("enqueue vectorize for %s: %w", payload.UserID, err)
	}
	return nil
}

// canonicalize replaces extracted skill spellings with the skill library's
// canonical names on a normalized match. Unknown skills pass through raw.
func (p *Pipeline) canonicalize(ctx context.Context, skills []models.ExtractedSkill) []models.ExtractedSkill {
	library, err := p.profiles.SkillLibrary(ctx)
	if err != nil {
		p.logger.Warn("skill library unavailable, keeping raw skill names", zap.Error(err))
		return skills
	}
	for i, s := range skills {
		if canonical, ok := library[s.NormalizedName]; ok {
			skills[i].Name = canonical
			skills[i].NormalizedName = normalize.Skill(canonical)
		}
	}
	return skills
}

func (p *Pipeline) handleVectorize(ctx context.Context, job *queue.Job) error {
	var payload models.ExtractorOutput
	if err := job.Decode(&payload); err != nil {
		return reject(err)
	}
	if err := p.validate.Struct(&payload); err != nil {
		return reject(err)
	}

	stored := make(map[string]bool)
	if hashes, err := p.store.SMembers(ctx, kv.ChunkHashesKey(payload.UserID)); err == nil {
		for _, h := range hashes {
			stored[h] = true
		}
	}

	vectors := make([]models.ChunkVector, len(payload.RawChunks))
	var pending []int
	var pendingTexts []string
	for i, chunk := range payload.RawChunks {
		vectors[i] = models.ChunkVector{
			ChunkID: fmt.Sprintf("%s#%d", payload.UserID, chunk.Index),
			Hash:    chunk.ContentHash,
		}
		if stored[chunk.ContentHash] {
			vec, err := p.loadChunkVector(ctx, payload.UserID, chunk.ContentHash)
			if err == nil {
				vectors[i].Vector = vec
				vectors[i].Reused = true
				continue
			}
			// tracked hash without a stored vector: re-embed
		}
		pending = append(pending, i)
		pendingTexts = append(pendingTexts, chunk.Content)
	}

	if len(pendingTexts) > 0 {
		embedded, err := p.embedder.EmbedBatch(ctx, pendingTexts)
		if err != nil {
			return fmt.Errorf("embed chunks for %s: %w", payload.UserID, err)
		}
		for n, i := range pending {
			vectors[i].Vector = embedded[n]
		}
	}

	out := models.VectorizerOutput{
		UserID:          payload.UserID,
		Vectors:         vectors,
		RawChunks:       payload.RawChunks,
		ExtractedSkills: payload.ExtractedSkills,
	}
	p.logger.Debug("vectorizer stage complete",
		zap.String("user_id", payload.UserID),
		zap.Int("embedded", len(pending)),
		zap.Int("reused", len(vectors)-len(pending)))
	if _, err := p.broker.Enqueue(ctx, models.QueueBroadcast, out); err != nil {
		return fmt.Errorf("enqueue broadcast for %s: %w", payload.UserID, err)
	}
	return nil
}

func (p *Pipeline) loadChunkVector(ctx context.Context, userID, hash string) ([]float32, error) {
	data, err := p.store.Get(ctx, kv.ChunkVectorKey(userID, hash))
	if err != nil {
		return nil, err
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// handleBroadcast is the go-live stage. Writes are ordered so a retry after
// a partial failure converges: chunk rows first, then index memberships,
// then the shadow profile and pool entry, then the graph-sync handoff.
func (p *Pipeline) handleBroadcast(ctx context.Context, job *queue.Job) error {
	var payload models.VectorizerOutput
	if err := job.Decode(&payload); err != nil {
		return reject(err)
	}
	if err := p.validate.Struct(&payload); err != nil {
		return reject(err)
	}

	cand, err := p.profiles.Get(ctx, payload.UserID)
	if err != nil {
		// no canonical row yet: index what the pipeline knows
		cand = &models.Candidate{ID: payload.UserID}
	}

	if err := p.replaceChunks(ctx, payload.UserID, payload.Vectors); err != nil {
		return fmt.Errorf("replace chunks for %s: %w", payload.UserID, err)
	}

	indexSkills := p.indexableSkills(cand.Skills, payload.ExtractedSkills)
	if err := p.index.ReplaceSkillIndexes(ctx, payload.UserID, indexSkills); err != nil {
		return fmt.Errorf("rebuild skill indexes for %s: %w", payload.UserID, err)
	}
	if err := p.writeExtractedSkills(ctx, payload.UserID, payload.ExtractedSkills); err != nil {
		return fmt.Errorf("cache extracted skills for %s: %w", payload.UserID, err)
	}
	if err := p.index.WriteShadowProfile(ctx, cand); err != nil {
		return fmt.Errorf("write shadow profile for %s: %w", payload.UserID, err)
	}
	if err := p.index.TouchPool(ctx, payload.UserID, p.now()); err != nil {
		return fmt.Errorf("touch pool for %s: %w", payload.UserID, err)
	}
	if err := p.search.Index(ctx, cand); err != nil {
		return fmt.Errorf("index candidate %s: %w", payload.UserID, err)
	}

	p.stats.RecordCandidateIndexed()
	p.logger.Info("candidate live",
		zap.String("user_id", payload.UserID),
		zap.Int("chunks", len(payload.Vectors)),
		zap.Int("indexed_skills", len(indexSkills)))

	sync := models.GraphSyncPayload{
		UserID:          payload.UserID,
		ProfileSkills:   cand.Skills,
		ExtractedSkills: payload.ExtractedSkills,
	}
	if _, err := p.broker.Enqueue(ctx, models.QueueGraphSync, sync); err != nil {
		return fmt.Errorf("enqueue graph sync for %s: %w", payload.UserID, err)
	}
	return nil
}

// replaceChunks moves the candidate's stored chunk vectors to exactly the
// new set, dropping rows for hashes no longer present.
func (p *Pipeline) replaceChunks(ctx context.Context, userID string, vectors []models.ChunkVector) error {
	hashKey := kv.ChunkHashesKey(userID)
	previous, err := p.store.SMembers(ctx, hashKey)
	if err != nil {
		return err
	}
	next := make(map[string]bool, len(vectors))
	for _, v := range vectors {
		next[v.Hash] = true
	}
	for _, hash := range previous {
		if next[hash] {
			continue
		}
		if err := p.store.Delete(ctx, kv.ChunkVectorKey(userID, hash)); err != nil {
			return err
		}
		if err := p.store.SRem(ctx, hashKey, hash); err != nil {
			return err
		}
	}
	for _, v := range vectors {
		if v.Reused {
			continue
		}
		data, err := json.Marshal(v.Vector)
		if err != nil {
			return err
		}
		if err := p.store.Set(ctx, kv.ChunkVectorKey(userID, v.Hash), data, 0); err != nil {
			return err
		}
	}
	hashes := make([]string, 0, len(next))
	for h := range next {
		hashes = append(hashes, h)
	}
	if len(hashes) > 0 {
		return p.store.SAdd(ctx, hashKey, hashes...)
	}
	return nil
}

// indexableSkills is the skill-index membership set: every profile-declared
// skill plus extracted skills at or above the index threshold, normalized
// and deduplicated.
func (p *Pipeline) indexableSkills(profileSkills []string, extracted []models.ExtractedSkill) []string {
	seen := make(map[string]bool)
	var skills []string
	add := func(name string) {
		norm := normalize.Skill(name)
		if norm != "" && !seen[norm] {
			seen[norm] = true
			skills = append(skills, norm)
		}
	}
	for _, s := range profileSkills {
		add(s)
	}
	for _, s := range extracted {
		if s.Confidence >= p.cfg.IndexThreshold {
			add(s.Name)
		}
	}
	return skills
}

func (p *Pipeline) writeExtractedSkills(ctx context.Context, userID string, extracted []models.ExtractedSkill) error {
	fields := make(map[string]string)
	for _, s := range extracted {
		if s.Confidence >= p.cfg.CacheThreshold {
			fields[s.NormalizedName] = strconv.FormatFloat(s.Confidence, 'f', 4, 64)
		}
	}
	key := kv.ExtractedSkillsKey(userID)
	if len(fields) == 0 {
		return p.store.Delete(ctx, key)
	}
	return p.store.HSet(ctx, key, fields, 0)
}
