// Package normalize canonicalizes skill and role strings for use as cache and graph keys.
package normalize

import (
	"strings"
	"unicode"
)

// Skill canonicalizes a skill or role name: lowercase, punctuation stripped
// (keeping word-internal characters like +, #, and .), whitespace collapsed.
// The result is stable across repeated calls and safe as a key segment.
func Skill(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '+' || r == '#' || r == '.' || r == '-':
			// "c++", "c#", ".net", "scikit-learn"
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '/' || r == ',':
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// drop other punctuation
		}
	}
	return strings.TrimRight(strings.TrimSpace(b.String()), ".")
}

// Query canonicalizes a free-text query for cache keying: same rules as Skill.
func Query(q string) string {
	return Skill(q)
}

// Tokens splits a normalized string into its space-separated tokens.
func Tokens(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
