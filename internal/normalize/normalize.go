// Package normalize maps raw address strings to the canonical form used for
// comparison. Normalization is pure and safe for concurrent use; the
// abbreviation table is fixed when the Normalizer is built.
//
// Pipeline, in order:
//  1. lowercase
//  2. accent folding (NFD, drop combining marks, NFC)
//  3. abbreviation expansion on whole tokens ("qu" -> "quai")
//  4. numeric noise stripping ("10.afsdfsf" -> "10", "4a-5-6" -> "4a",
//     "4a, 5, 6" -> "4a")
//  5. separator collapsing (apostrophes dropped, other punctuation -> space)
//
// The canonical form is never shown to callers; matches always carry the
// original candidate text.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Form is the precomputed comparison form of one string.
type Form struct {
	// Canonical is the fully normalized text, abbreviations expanded.
	Canonical string
	// Surface is the same pipeline without abbreviation expansion. Scoring
	// uses it to tell "quai" typed in full from "qu" expanded.
	Surface string
}

// Normalizer converts raw strings into Forms.
type Normalizer struct {
	table   compiledTable
	reorder bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLeadingNumberReorder moves a leading house number to the end of the
// address ("76 chemin des clos" -> "chemin des clos 76"). Enabled by default.
func WithLeadingNumberReorder(enabled bool) Option {
	return func(n *Normalizer) {
		n.reorder = enabled
	}
}

// New creates a Normalizer over the given abbreviation table.
// The table is copied; later changes to its maps have no effect.
func New(table Table, opts ...Option) *Normalizer {
	n := &Normalizer{
		table:   compile(table),
		reorder: true,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Default returns a Normalizer over DefaultTable.
func Default() *Normalizer {
	return New(DefaultTable())
}

// Normalize returns the canonical form of text.
func (n *Normalizer) Normalize(text string) string {
	return n.Form(text).Canonical
}

// Form returns both comparison levels of text.
func (n *Normalizer) Form(text string) Form {
	raw := n.tokens(text)
	if len(raw) == 0 {
		return Form{}
	}

	expanded := make([]string, len(raw))
	for i, tok := range raw {
		if isDigit(tok[0]) {
			expanded[i] = tok
			continue
		}
		expanded[i] = n.table.expand(tok)
	}

	return Form{
		Canonical: strings.Join(expanded, " "),
		Surface:   strings.Join(raw, " "),
	}
}

// tokens runs case folding, accent folding, noise stripping and separator
// collapsing, returning the unexpanded tokens.
func (n *Normalizer) tokens(text string) []string {
	folded := foldText(text)
	if folded == "" {
		return nil
	}

	var out []string
	for _, field := range strings.Fields(folded) {
		if isDigit(field[0]) {
			// A number list ("4a, 5, 6") keeps only its first entry.
			if len(out) > 0 && isDigit(out[len(out)-1][0]) {
				continue
			}
			// Anything glued to a house number carries no signal.
			out = append(out, houseNumber(field))
			continue
		}
		out = append(out, splitWord(field)...)
	}

	if n.reorder && len(out) > 1 && isHouseNumber(out[0]) && !isHouseNumber(out[1]) {
		out = append(out[1:], out[0])
	}
	return out
}

// foldText lowercases and strips diacritics. A fresh transformer is built per
// call because chained transformers keep internal state.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// splitWord drops apostrophes ("d'amont" -> "damont") and splits on any other
// non-alphanumeric rune.
func splitWord(field string) []string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range field {
		switch {
		case isApostrophe(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return parts
}

// houseNumber keeps the leading digits of a token plus one trailing letter
// when that letter stands alone ("9a", "4a-5-6" -> "4a"), discarding the rest
// ("10.afsdfsf" -> "10", "10afsdfsf" -> "10").
func houseNumber(token string) string {
	end := 0
	for end < len(token) && isDigit(token[end]) {
		end++
	}
	rest := []rune(token[end:])
	if len(rest) > 0 && unicode.IsLetter(rest[0]) && (len(rest) == 1 || !unicode.IsLetter(rest[1])) {
		return token[:end] + string(rest[0])
	}
	return token[:end]
}

// isHouseNumber reports whether a token looks like "76", "4a" or "a4".
func isHouseNumber(token string) bool {
	if token == "" {
		return false
	}
	if isDigit(token[0]) {
		return true
	}
	r := []rune(token)
	if len(r) < 2 || !unicode.IsLetter(r[0]) {
		return false
	}
	for _, c := range r[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '`', '´':
		return true
	}
	return false
}
