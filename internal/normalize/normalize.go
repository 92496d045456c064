// Package normalize provides lexical canonicalization and the
// opposite-concept veto used by the algorithmic dedup stage.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Keeps word characters, whitespace and the accented letters used in the
	// Spanish question bank. Everything else (punctuation, symbols) is noise.
	nonWord    = regexp.MustCompile(`[^\w\sáéíóúüñ]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lower-cases, strips punctuation and collapses whitespace.
// Deterministic and idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWord.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ConflictPair is a pair of regexes matching logically opposed phrasings.
// A text matching the positive side and another matching the negative side
// assess opposite facts and must never be treated as duplicates, however
// similar their wording.
type ConflictPair struct {
	Positive *regexp.Regexp
	Negative *regexp.Regexp
}

// ConflictPairs is the rule table for the veto. Kept as data so the rule set
// can be tested and extended independently of the matching logic.
var ConflictPairs = []ConflictPair{
	{
		Positive: regexp.MustCompile(`\b(verdadera|correcta|cierta|válida)\b`),
		Negative: regexp.MustCompile(`\b(falsa|incorrecta|excepto|inválida)\b`),
	},
	{
		Positive: regexp.MustCompile(`\b(mejor|ventaja|beneficio|indicación|indicado)\b`),
		Negative: regexp.MustCompile(`\b(peor|desventaja|riesgo|contraindicación|contraindicado)\b`),
	},
	{
		Positive: regexp.MustCompile(`\b(se asocia|se relaciona|es causa)\b`),
		Negative: regexp.MustCompile(`\b(no se asocia|no se relaciona|no es causa)\b`),
	},
	{
		Positive: regexp.MustCompile(`\b(primera línea|de elección)\b`),
		Negative: regexp.MustCompile(`\b(última línea|no se recomienda)\b`),
	},
}

// HasConflictingKeywords reports whether one text matches the positive side
// of a conflict pair while the other matches the negative side, in either
// direction. Symmetric by construction.
func HasConflictingKeywords(textA, textB string) bool {
	a := strings.ToLower(textA)
	b := strings.ToLower(textB)

	for _, pair := range ConflictPairs {
		if pair.Positive.MatchString(a) && pair.Negative.MatchString(b) {
			return true
		}
		if pair.Negative.MatchString(a) && pair.Positive.MatchString(b) {
			return true
		}
	}
	return false
}

// WordOverlap computes sharedWords / min(|a|, |b|) over words longer than
// three characters, on already-normalized texts. Returns 0 when either side
// has no qualifying words.
func WordOverlap(normA, normB string) float64 {
	wordsA := significantWords(normA)
	wordsB := significantWords(normB)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	shared := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			shared++
		}
	}

	min := len(wordsA)
	if len(wordsB) < min {
		min = len(wordsB)
	}
	return float64(shared) / float64(min)
}

func significantWords(norm string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(norm) {
		if len([]rune(w)) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}
