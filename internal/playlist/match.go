// Package playlist implements group-pattern filtering and M3U synthesis.
package playlist

import (
	"strings"
)

// Matches reports whether a group label satisfies a filter pattern.
// Matching is case-insensitive and comes in three forms:
//
//   - pattern contains a space: both sides are split into whitespace tokens
//     and each pattern token must match the label token at the same position
//     (glob when the token has a wildcard, substring otherwise). A pattern
//     with more tokens than the label never matches.
//   - pattern contains a wildcard (* or ?): glob match against the whole label.
//   - otherwise: substring containment.
func Matches(label, pattern string) bool {
	return matchLower(strings.ToLower(label), strings.ToLower(pattern))
}

// matchLower is the allocation-light core: both inputs must already be
// lower-cased. Filter pre-lowers its patterns once per request so the hot
// loop only lowers each label once.
func matchLower(label, pattern string) bool {
	if strings.ContainsRune(pattern, ' ') {
		patternTokens := strings.Fields(pattern)
		labelTokens := strings.Fields(label)
		if len(patternTokens) > len(labelTokens) {
			return false
		}
		for i, tok := range patternTokens {
			if hasWildcard(tok) {
				if !glob(tok, labelTokens[i]) {
					return false
				}
			} else if !strings.Contains(labelTokens[i], tok) {
				return false
			}
		}
		return true
	}
	if hasWildcard(pattern) {
		return glob(pattern, label)
	}
	return strings.Contains(label, pattern)
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// glob matches with * (any run of characters, including none) and ? (any
// single character). Unlike path.Match, every other character is literal,
// so labels containing slashes or brackets behave predictably.
func glob(pattern, s string) bool {
	p, t := []rune(pattern), []rune(s)
	px, tx := 0, 0
	starPx, starTx := -1, 0
	for tx < len(t) {
		switch {
		case px < len(p) && (p[px] == '?' || p[px] == t[tx]):
			px++
			tx++
		case px < len(p) && p[px] == '*':
			starPx, starTx = px, tx
			px++
		case starPx >= 0:
			// Backtrack: let the last * absorb one more character.
			starTx++
			px, tx = starPx+1, starTx
		default:
			return false
		}
	}
	for px < len(p) && p[px] == '*' {
		px++
	}
	return px == len(p)
}
