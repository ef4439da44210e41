// Package similarity implements the word-level fuzzy matching used by the
// auto-reply classifier: classic edit distance over accent-folded words.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minWordLen filters out short tokens; below 4 runes the edit distance is
// too noisy to mean anything ("que" vs "qué" vs "quo").
const minWordLen = 4

// Distance returns the Levenshtein distance between a and b
// (insert/delete/substitute, unit cost).
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity maps edit distance into [0,1]. Two empty strings are identical,
// so the 0/0 case is defined as 1.
func Similarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(maxLen)
}

// FindBestTriggerMatch compares every word of text against every word of
// every trigger and returns the trigger whose word scored the highest
// similarity strictly above threshold. Triggers are evaluated in
// lexicographic order, so ties resolve deterministically to the smallest key.
func FindBestTriggerMatch(text string, triggers []string, threshold float64) (string, bool) {
	words := tokenize(text)
	if len(words) == 0 {
		return "", false
	}

	sorted := make([]string, len(triggers))
	copy(sorted, triggers)
	sort.Strings(sorted)

	bestScore := threshold
	bestTrigger := ""
	found := false

	for _, trigger := range sorted {
		for _, tw := range tokenize(trigger) {
			for _, w := range words {
				if score := Similarity(w, tw); score > bestScore {
					bestScore = score
					bestTrigger = trigger
					found = true
				}
			}
		}
	}
	return bestTrigger, found
}

// tokenize splits into lowercased accent-folded words of at least minWordLen
// runes.
func tokenize(s string) []string {
	var out []string
	for _, w := range strings.Fields(foldAccents(strings.ToLower(s))) {
		if len([]rune(w)) >= minWordLen {
			out = append(out, w)
		}
	}
	return out
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
