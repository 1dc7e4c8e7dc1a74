// Package matcher scores one query against an in-memory candidate list.
package matcher

import (
	"github.com/Aman-CERP/addrmatch/internal/normalize"
	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/similarity"
)

// Scorer compares a normalized query with a normalized candidate.
type Scorer interface {
	Score(query, candidate normalize.Form) float64
}

var _ Scorer = similarity.Scorer{}

// CandidateEntry is a candidate with its precomputed comparison form.
// Entries are immutable once built and may be shared between Matchers.
type CandidateEntry struct {
	Text    string
	Form    normalize.Form
	Ordinal int
}

// BuildEntries normalizes texts once, numbering them in input order.
func BuildEntries(n *normalize.Normalizer, texts []string) []CandidateEntry {
	entries := make([]CandidateEntry, len(texts))
	for i, text := range texts {
		entries[i] = CandidateEntry{
			Text:    text,
			Form:    n.Form(text),
			Ordinal: i,
		}
	}
	return entries
}

// Matcher owns the candidate entries of one session.
type Matcher struct {
	cfg         Config
	entries     []CandidateEntry
	normalizer  *normalize.Normalizer
	scorer      Scorer
	shard       int
	source      string
	firstLetter bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithNormalizer sets the normalizer used for the query (and, in New, the
// candidates). Defaults to normalize.Default().
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Matcher) {
		if n != nil {
			m.normalizer = n
		}
	}
}

// WithScorer replaces the default similarity scorer.
func WithScorer(s Scorer) Option {
	return func(m *Matcher) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithShard tags every match with the shard it came from. index is the
// shard's position in the search order and breaks ties between shards.
func WithShard(index int, source string) Option {
	return func(m *Matcher) {
		m.shard = index
		m.source = source
	}
}

// WithFirstLetterFilter only scores candidates whose canonical form starts
// with the same letter as the query.
func WithFirstLetterFilter() Option {
	return func(m *Matcher) {
		m.firstLetter = true
	}
}

// New validates cfg and builds a Matcher over candidates.
func New(cfg Config, candidates []string, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newMatcher(cfg, opts)
	m.entries = BuildEntries(m.normalizer, candidates)
	return m, nil
}

// NewFromEntries builds a Matcher over already normalized entries. The
// entries must have been built with the same normalizer.
func NewFromEntries(cfg Config, entries []CandidateEntry, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newMatcher(cfg, opts)
	m.entries = entries
	return m, nil
}

func newMatcher(cfg Config, opts []Option) *Matcher {
	m := &Matcher{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	if m.normalizer == nil {
		m.normalizer = normalize.Default()
	}
	if m.scorer == nil {
		m.scorer = similarity.DefaultScorer()
	}
	return m
}

// Len returns the number of candidates.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// FindMatches returns the best matches for query, best first. It never fails;
// an empty result is a non-nil empty slice.
func (m *Matcher) FindMatches(query string) []rank.Match {
	set := rank.New(m.cfg.Sensitivity, m.cfg.Keep)
	if m.cfg.Keep == 0 || len(m.entries) == 0 {
		return set.Results()
	}
	m.OfferTo(m.normalizer.Form(query), set)
	return set.Results()
}

// OfferTo scores every candidate against an already normalized query and
// offers the results to set. Sharded search uses it to fill one Set per
// worker across several shards.
func (m *Matcher) OfferTo(q normalize.Form, set *rank.Set) {
	first, hasFirst := firstRune(q.Canonical)

	for i := range m.entries {
		e := &m.entries[i]
		if m.firstLetter && hasFirst {
			if r, ok := firstRune(e.Form.Canonical); !ok || r != first {
				continue
			}
		}
		set.Offer(rank.Match{
			Text:    e.Text,
			Score:   m.scorer.Score(q, e.Form),
			Shard:   m.shard,
			Ordinal: e.Ordinal,
			Source:  m.source,
		})
	}
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
