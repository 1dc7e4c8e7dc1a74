// Package batch matches a TSV file of addresses in chunks and appends the
// results to an output file.
//
// Input rows are "index\tstreet\tplace". Output rows are
// "index\tstreet\tplace\tmatched\tsource", where matched is the official
// street (empty when nothing matched) and source the place file it came
// from (empty unless it was the requested place).
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

// DefaultChunkSize is the number of rows matched and written together.
const DefaultChunkSize = 1000

// Resolver matches one street within a place.
type Resolver interface {
	MatchByPlace(ctx context.Context, street, place string) (street.MatchedStreet, error)
}

var _ Resolver = (*street.Matcher)(nil)

// Stats summarizes a run.
type Stats struct {
	Rows    int `json:"rows"`
	Matched int `json:"matched"`
	Skipped int `json:"skipped"`
	Chunks  int `json:"chunks"`
}

// Processor runs batches.
type Processor struct {
	resolver  Resolver
	chunkSize int
	workers   int
	progress  func(Stats)
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkSize sets the rows per chunk. Non-positive values are ignored.
func WithChunkSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithWorkers sets how many rows of a chunk are matched concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProgress registers fn to receive the running totals after every
// chunk is written.
func WithProgress(fn func(Stats)) Option {
	return func(p *Processor) {
		p.progress = fn
	}
}

// New creates a Processor.
func New(resolver Resolver, opts ...Option) *Processor {
	p := &Processor{
		resolver:  resolver,
		chunkSize: DefaultChunkSize,
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type row struct {
	index, street, place string
	line                 int
}

// Run reads rows from in and appends matched rows to outPath, one locked
// append per chunk. Malformed rows and streets without a house number are
// skipped. Any other error stops the run; chunks already written stay.
func (p *Processor) Run(ctx context.Context, in io.Reader, outPath string) (Stats, error) {
	var stats Stats
	start := time.Now()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	chunk := make([]row, 0, p.chunkSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Rows++

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			stats.Skipped++
			slog.Debug("batch_row_malformed", slog.Int("line", lineNo))
			continue
		}
		chunk = append(chunk, row{index: fields[0], street: fields[1], place: fields[2], line: lineNo})

		if len(chunk) == p.chunkSize {
			if err := p.flush(ctx, chunk, outPath, &stats); err != nil {
				return stats, err
			}
			chunk = chunk[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, "batch input", err)
	}
	if len(chunk) > 0 {
		if err := p.flush(ctx, chunk, outPath, &stats); err != nil {
			return stats, err
		}
	}

	slog.Info("batch_completed",
		slog.Int("rows", stats.Rows),
		slog.Int("matched", stats.Matched),
		slog.Int("skipped", stats.Skipped),
		slog.Int("chunks", stats.Chunks),
		slog.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// flush matches one chunk and appends it to the output.
func (p *Processor) flush(ctx context.Context, chunk []row, outPath string, stats *Stats) error {
	results := make([]*street.MatchedStreet, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, r := range chunk {
		g.Go(func() error {
			mat, err := p.resolver.MatchByPlace(gctx, r.street, r.place)
			if err != nil {
				if amerrors.GetCategory(err) == amerrors.CategoryValidation {
					slog.Debug("batch_row_skipped",
						append(amerrors.LogAttrs(err), slog.Int("line", r.line))...)
					return nil
				}
				return fmt.Errorf("line %d: %w", r.line, err)
			}
			results[i] = &mat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var b strings.Builder
	for i, r := range chunk {
		mat := results[i]
		if mat == nil {
			stats.Skipped++
			continue
		}
		if mat.Found() {
			stats.Matched++
		}
		source := ""
		if mat.Source != "" {
			source = filepath.Base(mat.Source)
		}
		b.WriteString(strings.Join([]string{r.index, r.street, r.place, mat.Street, source}, "\t"))
		b.WriteByte('\n')
	}

	if err := appendLocked(outPath, b.String()); err != nil {
		return err
	}
	stats.Chunks++
	slog.Debug("batch_chunk_written",
		slog.Int("chunk", stats.Chunks),
		slog.Int("rows", len(chunk)))
	if p.progress != nil {
		p.progress(*stats)
	}
	return nil
}

// appendLocked appends data to path while holding the file's lock.
func appendLocked(path, data string) error {
	lock := NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if _, err := f.WriteString(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
