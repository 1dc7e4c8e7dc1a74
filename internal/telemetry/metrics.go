// Package telemetry keeps in-memory statistics about the queries a long
// running addrmatch server answers. Nothing leaves the process; the MCP
// server logs a summary when it stops.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketUnder10ms  LatencyBucket = "lt_10ms"
	BucketUnder50ms  LatencyBucket = "lt_50ms"
	BucketUnder100ms LatencyBucket = "lt_100ms"
	BucketUnder500ms LatencyBucket = "lt_500ms"
	BucketSlow       LatencyBucket = "ge_500ms"
)

// LatencyToBucket maps a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch ms := d.Milliseconds(); {
	case ms < 10:
		return BucketUnder10ms
	case ms < 50:
		return BucketUnder50ms
	case ms < 100:
		return BucketUnder100ms
	case ms < 500:
		return BucketUnder500ms
	default:
		return BucketSlow
	}
}

// Event is one answered query.
type Event struct {
	Tool    string
	Query   string
	Results int
	Latency time.Duration
}

// Ring is a fixed-capacity FIFO that overwrites its oldest item.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	size  int
}

// NewRing creates a ring holding up to capacity items (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{items: make([]T, max(capacity, 1))}
}

// Add appends item, evicting the oldest when full.
func (r *Ring[T]) Add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	r.size = min(r.size+1, len(r.items))
}

// Items returns the items oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.size)
	start := (r.head - r.size + len(r.items)) % len(r.items)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

// TokenCount is a query token and how often it was seen.
type TokenCount struct {
	Token string `json:"token"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Since             time.Time               `json:"since"`
	TotalQueries      int64                   `json:"total_queries"`
	ToolCounts        map[string]int64        `json:"tool_counts"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	ZeroResultQueries []string                `json:"zero_result_queries"`
	Latency           map[LatencyBucket]int64 `json:"latency"`
	TopTokens         []TokenCount            `json:"top_tokens"`
	RepeatCount       int64                   `json:"repeat_count"`
}

// ZeroResultRate returns the share of queries without a match, 0-1.
func (s Snapshot) ZeroResultRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries)
}

// Config sizes the bounded collections of Metrics.
type Config struct {
	TopTokens     int // Distinct tokens tracked
	ZeroResults   int // Zero-result queries kept
	RecentQueries int // Window for repeat detection
}

// DefaultConfig returns the default sizes.
func DefaultConfig() Config {
	return Config{TopTokens: 100, ZeroResults: 100, RecentQueries: 500}
}

// Metrics aggregates Events. Safe for concurrent use.
type Metrics struct {
	mu          sync.Mutex
	since       time.Time
	total       int64
	tools       map[string]int64
	zeroCount   int64
	zeroResults *Ring[string]
	latency     map[LatencyBucket]int64
	tokens      *lru.Cache[string, int64]
	recent      *lru.Cache[string, struct{}]
	repeats     int64
}

// New creates Metrics. Non-positive sizes fall back to the defaults.
func New(cfg Config) *Metrics {
	def := DefaultConfig()
	if cfg.TopTokens <= 0 {
		cfg.TopTokens = def.TopTokens
	}
	if cfg.ZeroResults <= 0 {
		cfg.ZeroResults = def.ZeroResults
	}
	if cfg.RecentQueries <= 0 {
		cfg.RecentQueries = def.RecentQueries
	}

	// lru.New only fails for non-positive sizes.
	tokens, _ := lru.New[string, int64](cfg.TopTokens)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueries)

	return &Metrics{
		since:       time.Now(),
		tools:       make(map[string]int64),
		zeroResults: NewRing[string](cfg.ZeroResults),
		latency:     make(map[LatencyBucket]int64),
		tokens:      tokens,
		recent:      recent,
	}
}

// Record adds one event.
func (m *Metrics) Record(e Event) {
	key := strings.ToLower(strings.TrimSpace(e.Query))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.tools[e.Tool]++
	m.latency[LatencyToBucket(e.Latency)]++
	if e.Results == 0 {
		m.zeroCount++
		m.zeroResults.Add(e.Query)
	}
	for _, tok := range Tokens(key) {
		n, _ := m.tokens.Get(tok)
		m.tokens.Add(tok, n+1)
	}
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

// Snapshot copies the current state. Top tokens are ordered by count,
// then alphabetically.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Since:             m.since,
		TotalQueries:      m.total,
		ToolCounts:        make(map[string]int64, len(m.tools)),
		ZeroResultCount:   m.zeroCount,
		ZeroResultQueries: m.zeroResults.Items(),
		Latency:           make(map[LatencyBucket]int64, len(m.latency)),
		RepeatCount:       m.repeats,
	}
	for k, v := range m.tools {
		s.ToolCounts[k] = v
	}
	for k, v := range m.latency {
		s.Latency[k] = v
	}
	for _, tok := range m.tokens.Keys() {
		if n, ok := m.tokens.Peek(tok); ok {
			s.TopTokens = append(s.TopTokens, TokenCount{Token: tok, Count: n})
		}
	}
	sort.Slice(s.TopTokens, func(i, j int) bool {
		if s.TopTokens[i].Count != s.TopTokens[j].Count {
			return s.TopTokens[i].Count > s.TopTokens[j].Count
		}
		return s.TopTokens[i].Token < s.TopTokens[j].Token
	})
	return s
}

// Tokens splits a query into the words worth counting: three runes or
// more and not purely numeric, so house numbers do not crowd out streets.
func Tokens(query string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(f) < 3 || isNumeric(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
