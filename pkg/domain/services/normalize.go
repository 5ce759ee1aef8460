package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText strips diacritics, case-folds, replaces punctuation outside
// [a-z0-9 % / , . -] with spaces and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	// transformers carry state, build one per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '%', r == '/', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		case r == '\\':
			b.WriteRune('/')
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeName is the lookup key for trade names and active substances.
// Two spellings denote the same record iff their keys are equal.
func NormalizeName(s string) string {
	cleaned := strings.ReplaceAll(NormalizeText(s), ",", " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// MatchesSynonym reports whether key equals the normalized form of any synonym
func MatchesSynonym(key string, synonyms []string) bool {
	if key == "" {
		return false
	}
	for _, syn := range synonyms {
		if NormalizeName(syn) == key {
			return true
		}
	}
	return false
}
