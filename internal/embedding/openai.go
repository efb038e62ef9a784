package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hireloop/talentsearch/pkg/utils"
)

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings endpoint.
// Vectors are L2-normalized so inner product equals cosine similarity.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
	cache      *Cache
}

// NewOpenAIEmbedder creates an embedder against baseURL using model.
// An empty token is replaced with "none" for local OpenAI-compatible services.
func NewOpenAIEmbedder(baseURL, token, model string, dimensions, cacheSize int) (*OpenAIEmbedder, error) {
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	var cache *Cache
	if cacheSize > 0 {
		cache = NewCache(cacheSize)
	}
	return &OpenAIEmbedder{embedder: embedder, dimensions: dimensions, cache: cache}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vec, ok := e.cache.Get(text); ok {
			return vec, nil
		}
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	vec := vecs[0]
	utils.NormalizeL2(vec)
	if e.cache != nil {
		e.cache.Set(text, vec)
	}
	return vec, nil
}

// EmbedBatch returns embeddings for texts, in order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for _, v := range vecs {
		utils.NormalizeL2(v)
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op; the HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error { return nil }
