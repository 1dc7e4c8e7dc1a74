// Package shard runs one query over many candidate shards in parallel and
// merges the per-shard rankings into one global top-K.
//
// A fixed pool of workers consumes a queue of shard indices. Each worker
// owns its own rank.Set; nothing is shared while shards are scanned. After
// all workers finish, a single-threaded merge re-offers every local result
// into a fresh Set. Because ties are broken by (shard index, position in
// shard), the result equals an unsharded search over the shards
// concatenated in order, for any shard or worker count.
package shard

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/normalize"
	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/source"
	"github.com/Aman-CERP/addrmatch/internal/watcher"
)

// Searcher searches shards served by a source.Store.
type Searcher struct {
	store      source.Store
	normalizer *normalize.Normalizer
	scorer     matcher.Scorer
	cache      *lru.Cache[string, []matcher.CandidateEntry]
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithNormalizer sets the normalizer for queries and candidates.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Searcher) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithScorer replaces the default scorer.
func WithScorer(sc matcher.Scorer) Option {
	return func(s *Searcher) {
		s.scorer = sc
	}
}

// WithCache keeps the normalized entries of up to size shards between
// searches. A size of zero or less disables caching.
func WithCache(size int) Option {
	return func(s *Searcher) {
		if size <= 0 {
			s.cache = nil
			return
		}
		cache, err := lru.New[string, []matcher.CandidateEntry](size)
		if err != nil {
			slog.Warn("shard_cache_disabled", slog.String("error", err.Error()))
			return
		}
		s.cache = cache
	}
}

// NewSearcher creates a Searcher over store.
func NewSearcher(store source.Store, opts ...Option) *Searcher {
	s := &Searcher{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.normalizer == nil {
		s.normalizer = normalize.Default()
	}
	return s
}

// SearchDir lists the shards at location and searches them in sorted order.
// An unreadable location is a source error.
func (s *Searcher) SearchDir(ctx context.Context, query, location string, cfg matcher.Config, extra ...matcher.Option) ([]rank.Match, error) {
	if err := cfg.ValidateSharded(); err != nil {
		return nil, err
	}
	shards, err := s.store.List(ctx, location)
	if err != nil {
		return nil, asSourceError(location, err)
	}
	return s.Search(ctx, query, shards, cfg, extra...)
}

// Search runs query over shards with cfg.Workers workers and returns the
// merged top cfg.Keep matches. The order of shards is the global candidate
// order used for tie-breaking.
//
// By default the first shard that cannot be loaded fails the whole call and
// cancels the remaining work. With cfg.TolerateShardErrors the failed shard
// is logged and left out.
//
// extra options are applied to every per-shard Matcher, for example
// matcher.WithFirstLetterFilter.
func (s *Searcher) Search(ctx context.Context, query string, shards []string, cfg matcher.Config, extra ...matcher.Option) ([]rank.Match, error) {
	if err := cfg.ValidateSharded(); err != nil {
		return nil, err
	}

	start := time.Now()
	workers := min(cfg.Workers, len(shards))
	slog.Debug("shard_search_started",
		slog.Int("shards", len(shards)),
		slog.Int("workers", workers),
		slog.Float64("sensitivity", cfg.Sensitivity),
		slog.Int("keep", cfg.Keep))

	q := s.normalizer.Form(query)

	jobs := make(chan int, len(shards))
	for i := range shards {
		jobs <- i
	}
	close(jobs)

	// One result slot per worker; workers never touch each other's slot.
	slots := make([][]rank.Match, workers)
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := rank.New(cfg.Sensitivity, cfg.Keep)
			for idx := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				id := shards[idx]

				entries, err := s.entries(gctx, id)
				if err != nil {
					if cfg.TolerateShardErrors && !isCancellation(err) {
						failed.Add(1)
						slog.Warn("shard_failed",
							append(amerrors.LogAttrs(asSourceError(id, err)), slog.String("shard", id))...)
						continue
					}
					return asSourceError(id, err)
				}

				m, err := matcher.NewFromEntries(cfg, entries, s.matcherOptions(idx, id, extra)...)
				if err != nil {
					return err
				}
				m.OfferTo(q, local)
			}
			slots[w] = local.Results()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Debug("shard_search_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	merged := rank.New(cfg.Sensitivity, cfg.Keep)
	for _, slot := range slots {
		merged.OfferAll(slot)
	}
	results := merged.Results()

	slog.Debug("shard_search_completed",
		slog.Int("results", len(results)),
		slog.Int64("failed_shards", failed.Load()),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

func (s *Searcher) matcherOptions(idx int, id string, extra []matcher.Option) []matcher.Option {
	opts := []matcher.Option{
		matcher.WithNormalizer(s.normalizer),
		matcher.WithShard(idx, id),
	}
	if s.scorer != nil {
		opts = append(opts, matcher.WithScorer(s.scorer))
	}
	return append(opts, extra...)
}

// entries returns the normalized candidates of one shard, from the cache
// when possible.
func (s *Searcher) entries(ctx context.Context, id string) ([]matcher.CandidateEntry, error) {
	if s.cache != nil {
		if entries, ok := s.cache.Get(id); ok {
			return entries, nil
		}
	}

	texts, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	entries := matcher.BuildEntries(s.normalizer, texts)

	if s.cache != nil {
		s.cache.Add(id, entries)
	}
	return entries, nil
}

// Invalidate drops the cached entries of a shard. Paths are compared in
// absolute form so watcher events match relative shard ids.
func (s *Searcher) Invalidate(id string) {
	if s.cache == nil {
		return
	}
	target := absPath(id)
	for _, key := range s.cache.Keys() {
		if key == id || absPath(key) == target {
			s.cache.Remove(key)
			slog.Debug("cache_invalidated", slog.String("shard", key))
		}
	}
}

// CachedShards returns the number of shards currently cached.
func (s *Searcher) CachedShards() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Watch invalidates cached shards under dir whenever their files change.
// It blocks until ctx is cancelled.
func (s *Searcher) Watch(ctx context.Context, dir string, opts watcher.Options) error {
	w := watcher.New(opts)
	defer func() { _ = w.Stop() }()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx, dir) }()

	slog.Info("shard_watch_started",
		slog.String("dir", dir),
		slog.String("mode", w.Mode()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil && !isCancellation(err) {
				return err
			}
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, e := range batch {
				s.Invalidate(e.Path)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("shard_watch_error", slog.String("error", err.Error()))
		}
	}
}

// FindMatchesInDir searches every file in dir, one shard per file, with the
// given number of workers.
func FindMatchesInDir(ctx context.Context, sensitivity float64, keep int, text, dir string, workers int) ([]rank.Match, error) {
	cfg := matcher.Config{Sensitivity: sensitivity, Keep: keep, Workers: workers}
	return NewSearcher(source.Files{}).SearchDir(ctx, text, dir, cfg)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// asSourceError keeps structured source errors and wraps anything else.
func asSourceError(id string, err error) error {
	if isCancellation(err) {
		return err
	}
	var e *amerrors.Error
	if stderrors.As(err, &e) {
		return err
	}
	return amerrors.SourceError(amerrors.ErrCodeShardFailed, id, err)
}
