package similarity

import "github.com/Aman-CERP/addrmatch/internal/normalize"

// Jaro-Winkler prefix bonus settings.
const (
	winklerScale     = 0.1
	winklerMaxPrefix = 4
)

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0,1].
// It favours strings sharing a prefix, which suits short names such as
// place names.
func JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	jaro := jaroRunes(ra, rb)

	prefix := 0
	for prefix < min(len(ra), len(rb), winklerMaxPrefix) && ra[prefix] == rb[prefix] {
		prefix++
	}
	return jaro + float64(prefix)*winklerScale*(1-jaro)
}

func jaroRunes(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i], bMatched[j] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3
}

// JaroWinklerScorer scores canonical forms with JaroWinkler. It is used to
// resolve place names, where a shared prefix matters more than word order.
type JaroWinklerScorer struct{}

// Score returns JaroWinkler of the canonical forms.
func (JaroWinklerScorer) Score(query, candidate normalize.Form) float64 {
	return JaroWinkler(query.Canonical, candidate.Canonical)
}
