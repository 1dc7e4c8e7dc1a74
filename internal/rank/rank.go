// Package rank provides a bounded top-K accumulator for match results.
package rank

import (
	"math"
	"sort"
)

// Match is one ranked candidate.
type Match struct {
	Text    string  // Original candidate text, never the normalized form
	Score   float64 // Similarity in [0,1]
	Shard   int     // Position of the candidate's shard in the search order
	Ordinal int     // Position of the candidate within its shard
	Source  string  // Shard identifier (empty for in-memory candidates)
}

// Less reports whether a ranks before b.
//
// Priority:
//  1. Higher score
//  2. Earlier candidate in global order: lower shard, then lower ordinal
//
// Global order is the order of the candidates concatenated shard by shard,
// so sharded and unsharded searches break ties identically.
func Less(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Shard != b.Shard {
		return a.Shard < b.Shard
	}
	return a.Ordinal < b.Ordinal
}

// Set keeps the best Keep matches scoring at or above a sensitivity floor.
// It is not safe for concurrent use; each worker owns its own Set.
type Set struct {
	sensitivity float64
	keep        int
	items       []Match // sorted by Less
}

// New creates a Set. A keep of zero (or less) yields a Set that never
// accepts anything.
func New(sensitivity float64, keep int) *Set {
	if keep < 0 {
		keep = 0
	}
	return &Set{
		sensitivity: sensitivity,
		keep:        keep,
		items:       make([]Match, 0, min(keep, 64)),
	}
}

// Offer considers m for inclusion. Scores strictly below the sensitivity
// floor are ignored. When the set is full, m replaces the lowest ranked
// entry only if it ranks strictly before it, so the final contents do not
// depend on the order of offers.
func (s *Set) Offer(m Match) {
	if s.keep == 0 || math.IsNaN(m.Score) || m.Score < s.sensitivity {
		return
	}

	if len(s.items) == s.keep {
		if !Less(m, s.items[len(s.items)-1]) {
			return
		}
		s.items = s.items[:len(s.items)-1]
	}

	// Insert after any entry m does not rank before (stable for equal keys).
	i := sort.Search(len(s.items), func(i int) bool {
		return Less(m, s.items[i])
	})
	s.items = append(s.items, Match{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = m
}

// OfferAll offers every match in ms.
func (s *Set) OfferAll(ms []Match) {
	for _, m := range ms {
		s.Offer(m)
	}
}

// Len returns the number of kept matches.
func (s *Set) Len() int {
	return len(s.items)
}

// Results returns a snapshot of the kept matches, best first.
// The slice is never nil and later offers do not affect it.
func (s *Set) Results() []Match {
	out := make([]Match, len(s.items))
	copy(out, s.items)
	return out
}
