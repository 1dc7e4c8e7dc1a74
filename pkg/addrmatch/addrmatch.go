// Package addrmatch is the public API of the fuzzy address matcher.
//
// A Matcher ranks an in-memory candidate list against noisy queries:
//
//	m, err := addrmatch.NewMatcher(0.6, 5, []string{"quai du seujet 36", "rue du seujet 12"})
//	if err != nil {
//	    return err
//	}
//	results := m.FindMatches("qu du seujet 36")
//	// results[0].Text == "quai du seujet 36"
//
// FindMatchesInDir searches a directory of candidate files, one address per
// line, with a pool of workers and returns one globally ranked list.
//
// Results are ordered by descending score. Equal scores keep the order of
// the candidates (files in name order, lines in file order). An empty
// result is a non-nil empty slice, never an error.
//
// # Thread Safety
//
// A Matcher is immutable after construction and safe for concurrent use.
package addrmatch

import (
	"context"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/shard"
)

// Result is one ranked candidate.
type Result struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Matcher matches queries against a fixed candidate list.
type Matcher struct {
	m *matcher.Matcher
}

// NewMatcher builds a Matcher. sensitivity is the minimum score a candidate
// needs, between 0 and 1 inclusive. keep caps the number of results; zero
// makes every search return nothing.
//
// It returns a configuration error (see IsConfigError) when sensitivity or
// keep is out of range.
func NewMatcher(sensitivity float64, keep int, candidates []string) (*Matcher, error) {
	m, err := matcher.New(matcher.Config{Sensitivity: sensitivity, Keep: keep}, candidates)
	if err != nil {
		return nil, err
	}
	return &Matcher{m: m}, nil
}

// FindMatches returns the best candidates for text.
func (m *Matcher) FindMatches(text string) []Result {
	return toResults(m.m.FindMatches(text))
}

// FindMatchesInDir searches every regular file directly inside dir with
// the given number of workers. Hidden files and subdirectories are ignored.
//
// It returns a configuration error for invalid settings (workers must be
// at least 1) and a source error (see IsSourceError) when dir or one of
// its files cannot be read.
func FindMatchesInDir(ctx context.Context, sensitivity float64, keep int, text, dir string, workers int) ([]Result, error) {
	matches, err := shard.FindMatchesInDir(ctx, sensitivity, keep, text, dir, workers)
	if err != nil {
		return nil, err
	}
	return toResults(matches), nil
}

// IsConfigError reports whether err was caused by invalid settings.
func IsConfigError(err error) bool {
	return amerrors.IsConfigError(err)
}

// IsSourceError reports whether err was caused by an unreadable
// candidate source.
func IsSourceError(err error) bool {
	return amerrors.IsSourceError(err)
}

// ErrorCode returns the stable code of err, such as
// "ERR_101_INVALID_SENSITIVITY", or "" for errors from outside addrmatch.
func ErrorCode(err error) string {
	return amerrors.GetCode(err)
}

func toResults(matches []rank.Match) []Result {
	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{Text: m.Text, Score: m.Score}
	}
	return out
}
