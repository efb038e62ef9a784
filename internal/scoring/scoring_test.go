package scoring

import (
	"math"
	"testing"

	"github.com/hireloop/talentsearch/internal/models"
)

func TestDepthPenalty(t *testing.T) {
	cases := map[int]float64{1: 1.0, 2: 0.85, 3: 0.65, 4: 0.5, 0: 0.5, -1: 0.5}
	for depth, want := range cases {
		if got := DepthPenalty(depth); got != want {
			t.Errorf("DepthPenalty(%d) = %f, want %f", depth, got, want)
		}
	}
}

func TestIDFClamped(t *testing.T) {
	if got := IDF(1000000, 0); got != 3.0 {
		t.Errorf("rare skill IDF should clamp to 3.0, got %f", got)
	}
	if got := IDF(10, 10000); got != 0.2 {
		t.Errorf("common skill IDF should clamp to 0.2, got %f", got)
	}
	mid := IDF(100, 10)
	want := math.Log(101.0 / 11.0)
	if math.Abs(mid-want) > 1e-9 {
		t.Errorf("IDF(100,10) = %f, want %f", mid, want)
	}
}

func TestTopKForSeniority(t *testing.T) {
	if TopKForSeniority("Senior") != 20 || TopKForSeniority("lead") != 20 {
		t.Error("senior/lead should use top-20")
	}
	if TopKForSeniority("mid") != 15 || TopKForSeniority("") != 15 {
		t.Error("default should use top-15")
	}
}

func expansionFor(norm string, weight float64, depth int) map[string][]models.ExpandedSkill {
	return map[string][]models.ExpandedSkill{
		norm: {{
			SeedSkill:       "react",
			MatchedSkill:    norm,
			NormalizedSkill: norm,
			Depth:           depth,
			RelationType:    models.RelationRelatedTo,
			RelationWeight:  weight,
			IDFScore:        1.0,
		}},
	}
}

func TestScoreCandidate(t *testing.T) {
	exp := expansionFor("typescript", 1.0, 1)
	s := ScoreCandidate([]string{"TypeScript"}, exp, 15)
	if s.Score <= 0 || s.Score > 1 {
		t.Errorf("score out of range: %f", s.Score)
	}
	if len(s.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(s.Matches))
	}
	want := math.Tanh(1.0 / 15.0)
	if math.Abs(s.Score-want) > 1e-9 {
		t.Errorf("score = %f, want %f", s.Score, want)
	}
}

func TestScoreCandidateNoMatches(t *testing.T) {
	exp := expansionFor("typescript", 1.0, 1)
	s := ScoreCandidate([]string{"Go"}, exp, 15)
	if s.Score != 0 || s.Matches != nil {
		t.Errorf("non-matching candidate should score 0, got %+v", s)
	}
}

func TestScoreCandidateBounded(t *testing.T) {
	exp := make(map[string][]models.ExpandedSkill)
	skills := make([]string, 50)
	for i := range skills {
		name := "skill" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		skills[i] = name
		exp[name] = []models.ExpandedSkill{{
			SeedSkill: "x", NormalizedSkill: name, Depth: 1,
			RelationType: models.RelationRelatedTo, RelationWeight: 1.0, IDFScore: 3.0,
		}}
	}
	s := ScoreCandidate(skills, exp, 15)
	if s.Score < 0 || s.Score > 1 {
		t.Errorf("score must stay in [0,1], got %f", s.Score)
	}
	if len(s.Matches) > 15 {
		t.Errorf("matches should be capped at top-K, got %d", len(s.Matches))
	}
}

func TestBlend(t *testing.T) {
	if got := Blend(0.4, 0.8, 0.5); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Blend = %f, want 0.6", got)
	}
	if got := Blend(0.4, 0.8, 2.0); got != 0.8 {
		t.Errorf("weight should clamp to 1, got %f", got)
	}
	if got := Blend(0.4, 0.8, -1); got != 0.4 {
		t.Errorf("weight should clamp to 0, got %f", got)
	}
	// blended score lies between baseline and graph score
	b := Blend(0.2, 0.9, 0.3)
	if b < 0.2 || b > 0.9 {
		t.Errorf("blend outside [baseline, graph]: %f", b)
	}
}
