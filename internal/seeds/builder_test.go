package seeds

import (
	"reflect"
	"testing"
)

func TestBuildDeterministic(t *testing.T) {
	a := Build("Senior React Developer", nil)
	b := Build("Senior React Developer", nil)
	if !reflect.DeepEqual(a.StrictSeeds, b.StrictSeeds) {
		t.Errorf("strict seeds not deterministic: %v vs %v", a.StrictSeeds, b.StrictSeeds)
	}
	if !reflect.DeepEqual(a.ContainsSeeds, b.ContainsSeeds) {
		t.Errorf("contains seeds not deterministic: %v vs %v", a.ContainsSeeds, b.ContainsSeeds)
	}
}

func TestBuildStripsRoleTokens(t *testing.T) {
	s := Build("Senior React Developer", nil)
	for _, seed := range s.StrictSeeds {
		if seed == "senior" || seed == "developer" {
			t.Errorf("role token %q should have been removed", seed)
		}
	}
	if len(s.StrictSeeds) != 1 || s.StrictSeeds[0] != "react" {
		t.Errorf("expected single seed [react], got %v", s.StrictSeeds)
	}
}

func TestBuildEmptyQuery(t *testing.T) {
	s := Build("", nil)
	if !s.Empty() {
		t.Error("empty query should yield empty seeds")
	}
	if len(s.PhraseSeeds) != 0 || len(s.TokenSeeds) != 0 || len(s.ContainsSeeds) != 0 {
		t.Errorf("expected all-empty seed sets, got %+v", s)
	}
}

func TestBuildCommaPhrasesAndNgrams(t *testing.T) {
	s := Build("machine learning, data pipelines", nil)
	wantPhrases := map[string]bool{"machine learning": true, "data pipelines": true}
	found := 0
	for _, p := range s.PhraseSeeds {
		if wantPhrases[p] {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected both comma phrases, got %v", s.PhraseSeeds)
	}
	for _, tok := range s.TokenSeeds {
		if tok == "machine learning" {
			t.Error("token seeds should be single tokens")
		}
	}
}

func TestBuildContainsSeeds(t *testing.T) {
	s := Build("go react typescript", nil)
	for _, c := range s.ContainsSeeds {
		if len(c) < 4 {
			t.Errorf("contains seed %q shorter than 4", c)
		}
	}
	// longest-first ordering
	for i := 1; i < len(s.ContainsSeeds); i++ {
		if len(s.ContainsSeeds[i]) > len(s.ContainsSeeds[i-1]) {
			t.Errorf("contains seeds not longest-first: %v", s.ContainsSeeds)
		}
	}
}

func TestBuildHints(t *testing.T) {
	s := Build("backend", []string{"Kubernetes"})
	var found bool
	for _, seed := range s.StrictSeeds {
		if seed == "kubernetes" {
			found = true
		}
	}
	if !found {
		t.Errorf("hint keyword should appear in strict seeds: %v", s.StrictSeeds)
	}
}

func TestBuildCaps(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += string(rune('a'+i%26)) + "xxx" + string(rune('a'+(i/26))) + " "
	}
	s := Build(long, nil)
	if len(s.StrictSeeds) > maxStrictSeeds {
		t.Errorf("strict seeds over cap: %d", len(s.StrictSeeds))
	}
	if len(s.ContainsSeeds) > maxContainsSeeds {
		t.Errorf("contains seeds over cap: %d", len(s.ContainsSeeds))
	}
}
