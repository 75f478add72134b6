// Package fuzzy provides the identity matching primitives shared by consistency
// validation, watchlist screening and policy-number recovery. Comparisons are
// token-set based: word order and subset relations between names do not lower
// the score.
package fuzzy

import (
	"sort"
	"strings"
)

// DefaultThreshold is the similarity cutoff used when two strings are
// considered to refer to the same identity.
const DefaultThreshold = 0.85

// honorific prefixes stripped before comparison. Matched as whole leading
// tokens after punctuation removal, so "Mr." and "MR" both qualify.
var titles = map[string]struct{}{
	"mr":    {},
	"mrs":   {},
	"ms":    {},
	"miss":  {},
	"mx":    {},
	"dr":    {},
	"prof":  {},
	"sir":   {},
	"madam": {},
	"shri":  {},
	"smt":   {},
}

// Similarity returns a score in [0,1] describing how closely two identity
// strings match. Empty input on either side yields 0.0, never an error.
func Similarity(a, b string) float64 {
	ta := normalizeTokens(a)
	tb := normalizeTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	return tokenSetRatio(ta, tb)
}

// IsMatch reports whether two identity strings match at the default threshold.
func IsMatch(a, b string) bool {
	return IsMatchThreshold(a, b, DefaultThreshold)
}

// IsMatchThreshold reports whether two identity strings match at the given
// similarity threshold.
func IsMatchThreshold(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// NormalizePolicyNumber strips all non-alphanumeric characters and uppercases.
// The same normalization must be applied when policies are stored and when
// they are looked up, otherwise exact matches silently fail.
func NormalizePolicyNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeTokens lowercases, removes punctuation and strips leading honorific
// titles, returning the remaining word tokens.
func normalizeTokens(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	tokens := strings.Fields(b.String())

	for len(tokens) > 0 {
		if _, ok := titles[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	return tokens
}

// tokenSetRatio computes the classic token-set similarity: the sorted token
// intersection is compared against each side's full sorted token string, and
// the best of the three pairwise ratios wins. A shared core of tokens scores
// 1.0 even when one side carries extra words.
func tokenSetRatio(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	var inter, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(inter, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := ratio(full1, full2)
	if core != "" {
		if r := ratio(core, full1); r > best {
			best = r
		}
		if r := ratio(core, full2); r > best {
			best = r
		}
	}
	return best
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// ratio is a normalized Levenshtein similarity in [0,1].
func ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance using a two-row rolling buffer.
func levenshtein(a, b string) int {
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
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
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
