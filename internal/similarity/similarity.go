// Package similarity scores canonical address strings against each other.
//
// The score combines a whole-string edit distance with a token alignment
// that rewards query tokens found in the candidate. A query that names only
// part of a street ("route de la claie 21") still scores well against the
// full name ("route de la claie aux moines 21"), while a candidate that merely
// shares short words scores poorly. House numbers only count when they match
// exactly.
//
// All functions are pure and safe for concurrent use.
package similarity

import (
	"strings"
)

// Weights of the two components of Similarity.
const (
	editWeight  = 0.35
	tokenWeight = 0.65
)

// recallWeight is how much query coverage counts relative to candidate
// coverage in the token alignment.
const recallWeight = 3.0

// prefixCredit is awarded when one token is a truncation of the other
// ("seuj" for "seujet").
const prefixCredit = 0.85

// minPrefixRunes is the shortest truncation that earns prefixCredit.
const minPrefixRunes = 2

// Similarity returns a score in [0,1] for a query against a candidate, both
// already normalized. Equal strings score exactly 1.0; an empty string scores
// 0 against anything else. The function is not symmetric: missing candidate
// tokens cost less than missing query tokens.
func Similarity(query, candidate string) float64 {
	if query == candidate {
		return 1.0
	}
	if query == "" || candidate == "" {
		return 0
	}

	lev := NormalizedLevenshtein(query, candidate)
	tok := tokenAlignment(strings.Fields(query), strings.Fields(candidate))

	// lev < 1 for unequal strings, so the blend stays below an exact match.
	return editWeight*lev + tokenWeight*tok
}

// tokenAlignment matches every token on each side to its best partner on the
// other and returns the length-weighted coverage, blending recall (query
// side) and precision (candidate side).
func tokenAlignment(query, candidate []string) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	recall := coverage(query, candidate)
	precision := coverage(candidate, query)
	return (recallWeight*recall + precision) / (recallWeight + 1)
}

// coverage is the length-weighted mean of each token's best match in others.
func coverage(tokens, others []string) float64 {
	var total, matched float64
	for _, t := range tokens {
		w := float64(runeLen(t))
		total += w
		best := 0.0
		for _, o := range others {
			if s := tokenSimilarity(t, o); s > best {
				best = s
				if best == 1.0 {
					break
				}
			}
		}
		matched += w * best
	}
	if total == 0 {
		return 0
	}
	return matched / total
}

// tokenSimilarity scores two single tokens. Numeric tokens only match
// exactly; word tokens get prefix credit or a squared edit similarity, which
// pushes unrelated short words towards zero.
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if isNumeric(a) || isNumeric(b) {
		return 0
	}

	fuzzy := NormalizedLevenshtein(a, b)
	fuzzy *= fuzzy

	if isTruncation(a, b) || isTruncation(b, a) {
		return max(fuzzy, prefixCredit)
	}
	return fuzzy
}

// isTruncation reports whether short is a proper prefix of long with at
// least minPrefixRunes runes.
func isTruncation(short, long string) bool {
	return len(short) < len(long) &&
		runeLen(short) >= minPrefixRunes &&
		strings.HasPrefix(long, short)
}

func isNumeric(token string) bool {
	return token != "" && token[0] >= '0' && token[0] <= '9'
}
