// Package seeds turns free-text queries into normalized graph lookup seeds.
package seeds

import (
	"sort"
	"strings"

	"github.com/hireloop/talentsearch/internal/normalize"
)

const (
	maxStrictSeeds   = 30
	maxContainsSeeds = 12
	minContainsLen   = 4
)

// stopwords are dropped before n-gram construction. Generic role tokens are
// included so "senior react developer" seeds on "react", not on "developer".
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "in": true,
	"for": true, "with": true, "to": true, "or": true, "at": true, "on": true,
	"engineer": true, "engineers": true, "developer": true, "developers": true,
	"programmer": true, "specialist": true, "expert": true, "consultant": true,
	"senior": true, "junior": true, "lead": true, "staff": true, "principal": true,
	"mid": true, "level": true, "years": true, "experience": true,
}

// Seeds holds the normalized lookup seeds for one query.
type Seeds struct {
	PhraseSeeds []string
	TokenSeeds  []string
	// StrictSeeds is the order-preserving union of phrase and token seeds,
	// capped, used by the exact-match traversal tier.
	StrictSeeds []string
	// ContainsSeeds are longer token seeds used only by the substring
	// fallback tier, sorted longest-first.
	ContainsSeeds []string
}

// Empty reports whether no seeds were produced.
func (s *Seeds) Empty() bool {
	return len(s.StrictSeeds) == 0
}

// Build produces seeds from a raw query and optional hint keywords.
// Deterministic for identical input; an empty query yields all-empty seeds.
func Build(query string, hints []string) *Seeds {
	s := &Seeds{}
	var phrases []string
	for _, part := range strings.Split(query, ",") {
		if p := normalize.Skill(part); p != "" {
			phrases = append(phrases, p)
		}
	}
	for _, h := range hints {
		if p := normalize.Skill(h); p != "" {
			phrases = append(phrases, p)
		}
	}

	seenPhrase := map[string]bool{}
	seenToken := map[string]bool{}
	for _, phrase := range phrases {
		tokens := keepMeaningful(normalize.Tokens(phrase))
		if len(tokens) == 0 {
			continue
		}
		joined := strings.Join(tokens, " ")
		if !seenPhrase[joined] {
			seenPhrase[joined] = true
			s.PhraseSeeds = append(s.PhraseSeeds, joined)
		}
		for _, tok := range tokens {
			if !seenToken[tok] {
				seenToken[tok] = true
				s.TokenSeeds = append(s.TokenSeeds, tok)
			}
		}
		for _, g := range ngrams(tokens, 2) {
			if !seenPhrase[g] {
				seenPhrase[g] = true
				s.PhraseSeeds = append(s.PhraseSeeds, g)
			}
		}
		for _, g := range ngrams(tokens, 3) {
			if !seenPhrase[g] {
				seenPhrase[g] = true
				s.PhraseSeeds = append(s.PhraseSeeds, g)
			}
		}
	}

	s.StrictSeeds = dedupeCapped(append(append([]string{}, s.PhraseSeeds...), s.TokenSeeds...), maxStrictSeeds)

	for _, tok := range s.TokenSeeds {
		if len(tok) >= minContainsLen {
			s.ContainsSeeds = append(s.ContainsSeeds, tok)
		}
	}
	// Longest-first so the most specific substring matches are tried inside caps.
	sort.SliceStable(s.ContainsSeeds, func(i, j int) bool {
		return len(s.ContainsSeeds[i]) > len(s.ContainsSeeds[j])
	})
	if len(s.ContainsSeeds) > maxContainsSeeds {
		s.ContainsSeeds = s.ContainsSeeds[:maxContainsSeeds]
	}
	return s
}

func keepMeaningful(tokens []string) []string {
	kept := tokens[:0]
	for _, t := range tokens {
		if !stopwords[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

func dedupeCapped(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
