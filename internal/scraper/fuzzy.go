package scraper

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// normalize lowercases s, turns punctuation into spaces and collapses runs
// of whitespace.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func sortTokens(s string) string {
	tokens := strings.Fields(normalize(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the 0..100 similarity of two strings, based on the indel
// distance (substitutions cost two).
func Ratio(a, b string) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return int(math.Round(100 * float64(total-dist) / float64(total)))
}

// TokenSortRatio compares a and b after normalising and sorting their
// words, so word order does not matter.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(a), sortTokens(b))
}
