// Package keyword provides the Bleve baseline recall index over candidate
// profiles.
package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hireloop/talentsearch/internal/models"
)

// Result is one keyword hit.
type Result struct {
	ID    string
	Score float64
}

// SearchOptions tune the keyword search.
type SearchOptions struct {
	// TitleBoost > 1 scores title matches above bio matches.
	TitleBoost float64
	// FuzzyEnabled turns on typo tolerance.
	FuzzyEnabled bool
	Fuzziness    int
}

// candidateDoc is the indexed projection of a candidate.
type candidateDoc struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Bio      string `json:"bio"`
	Skills   string `json:"skills"`
	Location string `json:"location"`
}

// BleveIndex indexes candidate profiles for baseline keyword recall.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused so unchanged candidates are not re-indexed on restart; an empty path
// builds an in-memory index. If the mapping changes in code, remove the index
// directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "react"
	// matches exactly; English stemming would fold unrelated skill names.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("bio", textFieldMapping)
	docMapping.AddFieldMappingsAt("skills", textFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("location", keywordFieldMapping)
	im.AddDocumentMapping("candidate", docMapping)
	im.DefaultType = "candidate"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("create in-memory keyword index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index upserts a candidate profile.
func (b *BleveIndex) Index(ctx context.Context, cand *models.Candidate) error {
	return b.index.Index(cand.ID, candidateDoc{
		Name:     cand.Name,
		Title:    cand.Title,
		Bio:      cand.Bio,
		Skills:   strings.Join(cand.Skills, " "),
		Location: cand.Location,
	})
}

// Search runs baseline keyword recall and returns up to limit results.
// With TitleBoost <= 1 a single match query over all fields is used;
// otherwise title and skills hits are scored above bio hits with a term
// coverage penalty for partial multi-term matches.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	titleBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	if titleBoost <= 1.0 {
		return b.searchSingle(query, limit, fuzzyEnabled, fuzziness)
	}
	return b.searchBoosted(query, limit, titleBoost, fuzzyEnabled, fuzziness)
}

func (b *BleveIndex) searchSingle(query string, limit int, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "")
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// searchBoosted merges boosted title/skills hits with bio hits additively,
// then penalizes documents that match only a subset of a multi-term query.
func (b *BleveIndex) searchBoosted(query string, limit int, titleBoost float64, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	terms := tokenizeQuery(query)

	fieldSearch := func(field string) (map[string]float64, error) {
		var q blevequery.Query
		if fuzzyEnabled {
			q = buildFuzzyQuery(query, fuzziness, field)
		} else {
			mq := bleve.NewMatchQuery(query)
			mq.SetField(field)
			q = mq
		}
		req := bleve.NewSearchRequest(q)
		req.Size = reqSize
		results, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("keyword %s search: %w", field, err)
		}
		scores := make(map[string]float64, len(results.Hits))
		for _, hit := range results.Hits {
			scores[hit.ID] = hit.Score
		}
		return scores, nil
	}

	titleScores, err := fieldSearch("title")
	if err != nil {
		return nil, err
	}
	skillScores, err := fieldSearch("skills")
	if err != nil {
		return nil, err
	}
	bioScores, err := fieldSearch("bio")
	if err != nil {
		return nil, err
	}

	coverage := make(map[string]int)
	if len(terms) > 1 {
		coverage = b.termCoverage(terms, reqSize, fuzzyEnabled, fuzziness)
	}

	scores := make(map[string]float64)
	for id, sc := range titleScores {
		scores[id] += sc * titleBoost
	}
	for id, sc := range skillScores {
		scores[id] += sc * titleBoost
	}
	for id, sc := range bioScores {
		scores[id] += sc
	}
	if len(terms) > 1 {
		for id := range scores {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			// squared coverage penalty: a 1-of-2-terms match keeps 25%
			cov := float64(matched) / float64(len(terms))
			scores[id] *= cov * cov
		}
	}

	merged := make([]*Result, 0, len(scores))
	for id, score := range scores {
		merged = append(merged, &Result{ID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// termCoverage counts how many unique query terms each candidate matches.
func (b *BleveIndex) termCoverage(terms []string, reqSize int, fuzzyEnabled bool, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzzyEnabled {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		req := bleve.NewSearchRequest(q)
		req.Size = reqSize
		results, err := b.index.Search(req)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// buildFuzzyQuery builds a disjunction of per-term fuzzy queries. An empty
// field searches all fields.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a candidate from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed candidates.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
