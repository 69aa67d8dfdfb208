// Package fuzzy scores approximate string similarity on a 0-100 scale.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares a header or category string for matching:
//  1. Unicode NFKC folding
//  2. Lowercasing and trimming
//  3. Replacing underscores with spaces
//  4. Collapsing runs of whitespace
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits s into lowercase alphanumeric tokens. Punctuation separates
// tokens, so "кіл-ть" yields ["кіл", "ть"].
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(norm.NFKC.String(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Ratio returns the edit-distance similarity of a and b, rounded to an integer
// in 0..100. Two empty strings score 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.Distance(a, b, nil)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}

// TokenSortRatio compares a and b after sorting their tokens, so word order
// does not affect the score.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedJoin(Tokens(a)), sortedJoin(Tokens(b)))
}

// TokenSetRatio compares a and b as token sets: duplicates and order are
// ignored, and a string whose tokens are a subset of the other's scores 100.
func TokenSetRatio(a, b string) int {
	ta, tb := uniq(Tokens(a)), uniq(Tokens(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}

	base := sortedJoin(common)
	withA := strings.TrimSpace(base + " " + sortedJoin(onlyA))
	withB := strings.TrimSpace(base + " " + sortedJoin(onlyB))

	best := Ratio(withA, withB)
	if base != "" {
		best = max(best, Ratio(base, withA), Ratio(base, withB))
	}
	return best
}

func sortedJoin(tokens []string) string {
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	return strings.Join(out, " ")
}

func uniq(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
