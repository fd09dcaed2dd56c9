package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for query preprocessing
var (
	// Parenthesised segments are color/variant noise, e.g. "(obsidian)", "(sort)"
	parentheticalPattern = regexp.MustCompile(`\(.*?\)`)

	// Generic marketing words that hurt search results
	marketingWordPattern = regexp.MustCompile(`(?i)\bsmartphone\b|\bLTE\b`)

	// Anything that is not a word character or whitespace
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

	// Maximal alphabetic and numeric runs inside a token
	fusedRunPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalQuery strips noise from a raw product display name to form the search query.
// Removes parenthesised segments and the standalone words "smartphone" and "LTE".
func CanonicalQuery(productName string) string {
	if productName == "" {
		return ""
	}

	name := parentheticalPattern.ReplaceAllString(productName, "")
	name = marketingWordPattern.ReplaceAllString(name, "")
	name = multiSpacePattern.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Normalize lowercases text, folds accents, spells out "+" as "plus", replaces
// punctuation with spaces and collapses whitespace. Normalize is idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	if folded, _, err := transform.String(stripAccents, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(s, "+", " plus ")
	s = punctuationPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// TokenSet is an unordered, deduplicated set of normalized tokens
type TokenSet map[string]struct{}

// Has reports whether the token is in the set
func (ts TokenSet) Has(token string) bool {
	_, ok := ts[token]
	return ok
}

// Slice returns the tokens in no particular order
func (ts TokenSet) Slice() []string {
	out := make([]string, 0, len(ts))
	for t := range ts {
		out = append(out, t)
	}
	return out
}

// SplitFused breaks a token into its maximal alphabetic and numeric runs.
// "flip7" yields ["flip", "7"]; a token with a single run yields that run.
func SplitFused(token string) []string {
	return fusedRunPattern.FindAllString(token, -1)
}

// Tokens normalizes text and builds its token set: every whitespace token plus
// its fused sub-parts, so "Flip 7" and "Flip7" share "flip" and "7".
func Tokens(text string) TokenSet {
	set := make(TokenSet)
	for _, token := range strings.Fields(Normalize(text)) {
		set[token] = struct{}{}
		for _, part := range SplitFused(token) {
			set[part] = struct{}{}
		}
	}
	return set
}

// splitParts decomposes a token into its alphabetic-part and numeric-part sets
func splitParts(token string) (alpha, numeric map[string]bool) {
	alpha = make(map[string]bool)
	numeric = make(map[string]bool)
	for _, part := range SplitFused(token) {
		if isNumeric(part) {
			numeric[part] = true
		} else {
			alpha[part] = true
		}
	}
	return alpha, numeric
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if !unicode.IsNumber(c) {
			return false
		}
	}
	return len(s) > 0
}
