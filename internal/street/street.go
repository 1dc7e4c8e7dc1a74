// Package street matches Swiss street addresses against official street
// lists grouped by postcode or by place.
//
// Data layout under the data directory:
//
//	plzs/<postcode>      one street per line, e.g. plzs/1201
//	places/<place>       one street per line, e.g. places/bercher
//	places.txt           every known place name, one per line
//
// Place names map to file names by replacing ' ' with '_' and '/' with
// "%2C".
//
// A lookup first searches the requested location's file with a strict
// sensitivity. When that finds nothing (or the location is unknown) the
// whole directory is searched: first only streets starting with the same
// letter as the query, then all streets.
package street

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/normalize"
	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/shard"
	"github.com/Aman-CERP/addrmatch/internal/similarity"
	"github.com/Aman-CERP/addrmatch/internal/source"
)

// Default street matching settings.
const (
	DefaultSensitivity      = 0.6
	DefaultFileSensitivity  = 0.87
	DefaultPlaceSensitivity = 0.7
	DefaultKeep             = 50
)

// Layout directory and file names under the data directory.
const (
	PostcodeDirName = "plzs"
	PlaceDirName    = "places"
	PlacesFileName  = "places.txt"
)

// Config controls street matching.
type Config struct {
	DataDir          string  // Root of the street data
	Sensitivity      float64 // Directory-wide search floor
	FileSensitivity  float64 // Floor when searching the requested location's file
	PlaceSensitivity float64 // Floor when resolving a place name
	Keep             int     // Candidates kept per search
	Workers          int     // Worker pool size for directory search
}

// DefaultConfig returns the default street settings for dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		Sensitivity:      DefaultSensitivity,
		FileSensitivity:  DefaultFileSensitivity,
		PlaceSensitivity: DefaultPlaceSensitivity,
		Keep:             DefaultKeep,
		Workers:          runtime.NumCPU(),
	}
}

func (c Config) dirConfig() matcher.Config {
	return matcher.Config{Sensitivity: c.Sensitivity, Keep: c.Keep, Workers: c.Workers}
}

func (c Config) fileConfig() matcher.Config {
	return matcher.Config{Sensitivity: c.FileSensitivity, Keep: c.Keep, Workers: 1}
}

func (c Config) placeConfig() matcher.Config {
	return matcher.Config{Sensitivity: c.PlaceSensitivity, Keep: 1, Workers: 1}
}

// Validate checks every sensitivity and the sharded settings.
func (c Config) Validate() error {
	for _, mc := range []matcher.Config{c.fileConfig(), c.placeConfig()} {
		if err := mc.Validate(); err != nil {
			return err
		}
	}
	return c.dirConfig().ValidateSharded()
}

// Street is a street address that carries a house number.
type Street struct {
	Value string
}

// NewStreet checks that text contains a house number.
func NewStreet(text string) (Street, error) {
	if !strings.ContainsFunc(text, unicode.IsDigit) {
		return Street{}, amerrors.ValidationError(amerrors.ErrCodeMissingHouseNumber,
			"street must contain a house number, got: '"+text+"'").
			WithSuggestion("Add the house number, e.g. 'Bernstrasse 7'")
	}
	return Street{Value: strings.TrimSpace(text)}, nil
}

// MatchedStreet is the outcome of a street lookup.
type MatchedStreet struct {
	// Street is the official street text, empty when nothing matched.
	Street string `json:"street,omitempty"`
	// Score is the similarity of the winning candidate.
	Score float64 `json:"score,omitempty"`
	// Source is the requested location's file, set only when the winner
	// came from that file.
	Source string `json:"source,omitempty"`
}

// Found reports whether a street matched.
func (m MatchedStreet) Found() bool {
	return m.Street != ""
}

// Matcher resolves streets within a data directory.
type Matcher struct {
	cfg        Config
	normalizer *normalize.Normalizer
	files      source.Files
	searcher   *shard.Searcher
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithNormalizer sets the normalizer used for streets and places.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Matcher) {
		if n != nil {
			m.normalizer = n
		}
	}
}

// WithSearcher sets the directory searcher, e.g. one with a shard cache.
func WithSearcher(s *shard.Searcher) Option {
	return func(m *Matcher) {
		m.searcher = s
	}
}

// New validates cfg and creates a Matcher.
func New(cfg Config, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	if m.normalizer == nil {
		m.normalizer = normalize.Default()
	}
	if m.searcher == nil {
		m.searcher = shard.NewSearcher(m.files, shard.WithNormalizer(m.normalizer))
	}
	return m, nil
}

// MatchByPostcode finds street within postcode, falling back to every
// postcode when needed. An empty postcode searches everything.
func (m *Matcher) MatchByPostcode(ctx context.Context, street, postcode string) (MatchedStreet, error) {
	s, err := NewStreet(street)
	if err != nil {
		return MatchedStreet{}, err
	}
	dir := filepath.Join(m.cfg.DataDir, PostcodeDirName)
	file := ""
	if postcode = strings.TrimSpace(postcode); postcode != "" {
		file = filepath.Join(dir, postcode)
	}
	return m.find(ctx, s, dir, file)
}

// MatchByPlace finds street within place. The place name may be misspelled;
// it is resolved against places.txt first. An empty or unknown place
// searches every place.
func (m *Matcher) MatchByPlace(ctx context.Context, street, place string) (MatchedStreet, error) {
	s, err := NewStreet(street)
	if err != nil {
		return MatchedStreet{}, err
	}
	dir := filepath.Join(m.cfg.DataDir, PlaceDirName)
	file := ""
	if strings.TrimSpace(place) != "" {
		resolved, err := m.ResolvePlace(ctx, place)
		switch {
		case err != nil && !amerrors.IsSourceError(err):
			return MatchedStreet{}, err
		case err != nil:
			// Without a places list every place is searched.
			slog.Warn("places_list_unavailable", amerrors.LogAttrs(err)...)
		case resolved != "":
			file = filepath.Join(dir, PlaceFileName(resolved))
		}
	}
	return m.find(ctx, s, dir, file)
}

// ResolvePlace returns the known place name closest to place, or "" when
// none reaches the place sensitivity.
func (m *Matcher) ResolvePlace(ctx context.Context, place string) (string, error) {
	places, err := m.files.Load(ctx, filepath.Join(m.cfg.DataDir, PlacesFileName))
	if err != nil {
		return "", err
	}
	pm, err := matcher.New(m.cfg.placeConfig(), places,
		matcher.WithNormalizer(m.normalizer),
		matcher.WithScorer(similarity.JaroWinklerScorer{}))
	if err != nil {
		return "", err
	}
	matches := pm.FindMatches(place)
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0].Text, nil
}

// PlaceFileName maps a place name to its file name.
func PlaceFileName(place string) string {
	return strings.NewReplacer(" ", "_", "/", "%2C").Replace(place)
}

func (m *Matcher) find(ctx context.Context, s Street, dir, file string) (MatchedStreet, error) {
	if file == "" {
		return m.searchDir(ctx, s, dir, "")
	}

	texts, err := m.files.Load(ctx, file)
	if err != nil {
		if !amerrors.IsSourceError(err) {
			return MatchedStreet{}, err
		}
		// Unknown location: search everywhere.
		return m.searchDir(ctx, s, dir, file)
	}

	fm, err := matcher.New(m.cfg.fileConfig(), texts,
		matcher.WithNormalizer(m.normalizer),
		matcher.WithShard(0, file))
	if err != nil {
		return MatchedStreet{}, err
	}
	if matches := fm.FindMatches(s.Value); len(matches) > 0 {
		return MatchedStreet{Street: matches[0].Text, Score: matches[0].Score, Source: file}, nil
	}
	return m.searchDir(ctx, s, dir, file)
}

func (m *Matcher) searchDir(ctx context.Context, s Street, dir, file string) (MatchedStreet, error) {
	cfg := m.cfg.dirConfig()

	matches, err := m.searcher.SearchDir(ctx, s.Value, dir, cfg, matcher.WithFirstLetterFilter())
	if err != nil {
		return MatchedStreet{}, err
	}
	if len(matches) == 0 {
		matches, err = m.searcher.SearchDir(ctx, s.Value, dir, cfg)
		if err != nil {
			return MatchedStreet{}, err
		}
	}
	return fromMatches(matches, file), nil
}

// fromMatches reports the winner. Source is set when an equally good match
// for the same street came from the requested file.
func fromMatches(matches []rank.Match, file string) MatchedStreet {
	if len(matches) == 0 {
		return MatchedStreet{}
	}
	top := matches[0]
	out := MatchedStreet{Street: top.Text, Score: top.Score}
	if file == "" {
		return out
	}
	for _, mt := range matches {
		if mt.Text == top.Text && mt.Score == top.Score && mt.Source == file {
			out.Source = file
			break
		}
	}
	return out
}
