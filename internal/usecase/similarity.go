package usecase

import (
	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityRatio returns the character-level sequence similarity of a and b
// (2*M/T over the longest matching blocks), in [0, 1]. Identical strings score 1.
func SimilarityRatio(a, b string) float64 {
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return clampScore(m.Ratio())
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
