// Package scoring provides the pure scoring functions for graph-aware ranking:
// IDF computation, depth penalties, per-candidate graph scores, and blending.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/pkg/utils"
)

const (
	// IDF clamp bounds keep rare-skill boosts and common-skill discounts sane.
	idfMin = 0.2
	idfMax = 3.0

	topKSenior  = 20
	topKDefault = 15
)

// DepthPenalty discounts multi-hop graph matches.
func DepthPenalty(depth int) float64 {
	switch depth {
	case 1:
		return 1.0
	case 2:
		return 0.85
	case 3:
		return 0.65
	default:
		return 0.5
	}
}

// IDF returns log((n+1)/(df+1)) clamped to [0.2, 3.0].
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs < 0 {
		totalDocs = 0
	}
	if docFreq < 0 {
		docFreq = 0
	}
	return ClampIDF(math.Log(float64(totalDocs+1) / float64(docFreq+1)))
}

// ClampIDF clamps an IDF value to the valid range.
func ClampIDF(v float64) float64 {
	return utils.Clamp(v, idfMin, idfMax)
}

// TopKForSeniority returns how many match contributions count toward the
// graph score: senior candidates carry broader skill sets, so more matches count.
func TopKForSeniority(seniority string) int {
	switch strings.ToLower(strings.TrimSpace(seniority)) {
	case "senior", "lead", "staff", "principal":
		return topKSenior
	default:
		return topKDefault
	}
}

// CandidateScore is the output of ScoreCandidate.
type CandidateScore struct {
	Score   float64
	Matches []models.GraphMatchDetail
}

// ScoreCandidate scores one candidate's skills against an expansion map
// (normalized skill -> expanded entries). Each contribution is
// relationWeight x depthPenalty x clamped IDF; the top-K contributions are
// summed and squashed with tanh(sum / max(1, topK)) into [0,1], which bounds
// score growth from candidates with many shallow matches.
func ScoreCandidate(candidateSkills []string, expansion map[string][]models.ExpandedSkill, topK int) CandidateScore {
	if topK < 1 {
		topK = 1
	}
	var matches []models.GraphMatchDetail
	for _, skill := range candidateSkills {
		norm := normalize.Skill(skill)
		for _, exp := range expansion[norm] {
			contribution := exp.RelationWeight * DepthPenalty(exp.Depth) * ClampIDF(exp.IDFScore)
			matches = append(matches, models.GraphMatchDetail{
				CandidateSkill: skill,
				SeedSkill:      exp.SeedSkill,
				Depth:          exp.Depth,
				RelationType:   exp.RelationType,
				Contribution:   contribution,
			})
		}
	}
	if len(matches) == 0 {
		return CandidateScore{}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Contribution > matches[j].Contribution
	})
	kept := matches
	if len(kept) > topK {
		kept = kept[:topK]
	}
	var sum float64
	for _, m := range kept {
		sum += m.Contribution
	}
	return CandidateScore{
		Score:   math.Tanh(sum / float64(topK)),
		Matches: kept,
	}
}

// Blend combines the baseline (keyword/vector) score with the graph score.
// weight is the fraction attributed to the graph signal, clamped to [0,1].
func Blend(baseline, graphScore, weight float64) float64 {
	weight = utils.Clamp(weight, 0, 1)
	return (1-weight)*baseline + weight*graphScore
}
