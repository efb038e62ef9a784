package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hireloop/talentsearch/internal/models"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100
)

// splitChunks slices text into overlapping rune windows. Overlap keeps
// phrases that straddle a boundary embeddable from at least one chunk. Each
// chunk carries a content hash for embedding reuse across re-ingestions.
func splitChunks(text string, size, overlap int) []models.RawChunk {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	var chunks []models.RawChunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, models.RawChunk{
				Index:       len(chunks),
				Content:     content,
				ContentHash: hashContent(content),
			})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
