package kv

import "fmt"

// Key builders for the namespaced keyspace. Key inputs (queries, skills) must
// already be normalized; normalization is the caller's responsibility.

// ExpansionKey caches a graph expansion. Taxonomy and policy versions are part
// of the key, so version flips invalidate without explicit deletion.
func ExpansionKey(taxonomyVersion, policyVersion int, queryHash string) string {
	return fmt.Sprintf("graph:expand:v%d:p%d:%s", taxonomyVersion, policyVersion, queryHash)
}

// L1CacheKey is the exact-match search cache entry for a query and filter set.
func L1CacheKey(normalizedQuery, filterHash string) string {
	return fmt.Sprintf("search:cache:exact:%s:%s", normalizedQuery, filterHash)
}

// SkillIndexKey holds the set of candidate ids carrying a normalized skill.
func SkillIndexKey(normalizedSkill string) string {
	return fmt.Sprintf("idx:skill:%s", normalizedSkill)
}

// PoolKey is the time-sorted set of all indexed candidate ids.
const PoolKey = "search:pool:all"

// ShadowProfileKey holds the denormalized {exp, loc, role} hash per candidate.
func ShadowProfileKey(candidateID string) string {
	return fmt.Sprintf("candidate:shadow:%s", candidateID)
}

// ExtractedSkillsKey holds extractor-inferred skills (name -> confidence) per candidate.
func ExtractedSkillsKey(candidateID string) string {
	return fmt.Sprintf("candidate:extracted-skills:%s", candidateID)
}

// SkillIndexesKey holds the set of skill-index keys a candidate is a member
// of, used for diffing on re-sync.
func SkillIndexesKey(candidateID string) string {
	return fmt.Sprintf("candidate:skill-indexes:%s", candidateID)
}

// ChunkHashesKey holds the set of stored chunk content hashes per candidate,
// used for content-addressed embedding reuse.
func ChunkHashesKey(candidateID string) string {
	return fmt.Sprintf("candidate:chunk-hashes:%s", candidateID)
}

// ChunkVectorKey stores the embedding for a chunk content hash.
func ChunkVectorKey(candidateID, contentHash string) string {
	return fmt.Sprintf("candidate:chunk-vector:%s:%s", candidateID, contentHash)
}

// DeadLetterKey records a permanently failed queue job for operator visibility.
func DeadLetterKey(queue, jobID string) string {
	return fmt.Sprintf("queue:dead:%s:%s", queue, jobID)
}
