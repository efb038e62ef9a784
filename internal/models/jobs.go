package models

// Queue names for the ingestion chain. Each stage owns its payload until it
// hands off to the next queue.
const (
	QueueExtract   = "ingest.extract"
	QueueVectorize = "ingest.vectorize"
	QueueBroadcast = "ingest.broadcast"
	QueueGraphSync = "graph.sync"
)

// IngestionJobPayload starts the pipeline for one candidate.
type IngestionJobPayload struct {
	UserID    string `json:"user_id" validate:"required"`
	ResumeURL string `json:"resume_url"`
	Bio       string `json:"bio"`
}

// ExtractedSkill is one skill inferred from resume text with model confidence.
type ExtractedSkill struct {
	Name           string  `json:"name" validate:"required"`
	NormalizedName string  `json:"normalized_name"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	Evidence       string  `json:"evidence,omitempty"`
	SkillID        string  `json:"skill_id,omitempty"`
}

// RawChunk is one overlapping slice of extracted resume text.
type RawChunk struct {
	Index       int    `json:"index"`
	Content     string `json:"content" validate:"required"`
	ContentHash string `json:"content_hash" validate:"required"`
}

// ExtractorOutput is the Extractor stage result, consumed by the Vectorizer.
type ExtractorOutput struct {
	UserID          string           `json:"user_id" validate:"required"`
	FullText        string           `json:"full_text"`
	ExtractedSkills []ExtractedSkill `json:"extracted_skills" validate:"dive"`
	RawChunks       []RawChunk       `json:"raw_chunks" validate:"dive"`
}

// ChunkVector pairs a chunk with its embedding. Reused chunks keep their
// previously stored vector and are flagged so the Broadcaster can skip
// re-writing identical rows.
type ChunkVector struct {
	ChunkID string    `json:"chunk_id" validate:"required"`
	Hash    string    `json:"hash" validate:"required"`
	Vector  []float32 `json:"vector"`
	Reused  bool      `json:"reused"`
}

// VectorizerOutput is the Vectorizer stage result, consumed by the Broadcaster.
type VectorizerOutput struct {
	UserID          string           `json:"user_id" validate:"required"`
	Vectors         []ChunkVector    `json:"vectors" validate:"dive"`
	RawChunks       []RawChunk       `json:"raw_chunks" validate:"dive"`
	ExtractedSkills []ExtractedSkill `json:"extracted_skills" validate:"dive"`
}

// GraphSyncPayload asks the graph-sync worker to reconcile one candidate.
type GraphSyncPayload struct {
	UserID          string           `json:"user_id" validate:"required"`
	ProfileSkills   []string         `json:"profile_skills"`
	ExtractedSkills []ExtractedSkill `json:"extracted_skills" validate:"dive"`
}
