package similarity

import (
	"math"

	"github.com/Aman-CERP/addrmatch/internal/normalize"
)

// DefaultSurfaceWeight is the share of the score taken from the unexpanded
// surface forms.
const DefaultSurfaceWeight = 0.2

// Scorer compares normalized Forms. The canonical level decides the match;
// the surface level separates "quai" typed in full from "qu" that only became
// "quai" through abbreviation expansion, so an expansion-only match scores
// just under 1.0.
type Scorer struct {
	surfaceWeight float64
}

// NewScorer returns a Scorer with the given surface weight, clamped to [0,1].
func NewScorer(surfaceWeight float64) Scorer {
	switch {
	case surfaceWeight < 0 || math.IsNaN(surfaceWeight):
		surfaceWeight = 0
	case surfaceWeight > 1:
		surfaceWeight = 1
	}
	return Scorer{surfaceWeight: surfaceWeight}
}

// DefaultScorer returns a Scorer using DefaultSurfaceWeight.
func DefaultScorer() Scorer {
	return NewScorer(DefaultSurfaceWeight)
}

// Score returns a value in [0,1]. It is exactly 1.0 when both levels are
// equal, which makes every candidate a perfect match for itself.
func (s Scorer) Score(query, candidate normalize.Form) float64 {
	if query == candidate {
		return 1.0
	}
	canonical := Similarity(query.Canonical, candidate.Canonical)
	if s.surfaceWeight == 0 {
		return canonical
	}
	surface := NormalizedLevenshtein(query.Surface, candidate.Surface)
	return (1-s.surfaceWeight)*canonical + s.surfaceWeight*surface
}
