package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches the shard files directly inside one directory.
// Subdirectories are not shards and are not watched.
type DirWatcher struct {
	fsWatcher      *fsnotify.Watcher
	debouncer      *Debouncer
	events         chan []ShardEvent
	errors         chan error
	stopCh         chan struct{}
	dir            string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// New creates a watcher. It tries fsnotify first and falls back to polling.
func New(opts Options) *DirWatcher {
	opts = opts.withDefaults()

	w := &DirWatcher{
		debouncer: NewDebouncer(opts.Debounce),
		events:    make(chan []ShardEvent, opts.BatchBuffer),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	if !opts.ForcePolling {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			w.fsWatcher = fsw
		} else {
			slog.Warn("fsnotify_unavailable_polling",
				slog.String("error", err.Error()),
				slog.Duration("interval", opts.PollInterval))
		}
	}
	return w
}

// Start watches dir until Stop is called or ctx is cancelled. It blocks.
func (w *DirWatcher) Start(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.dir = absDir
	w.mu.Unlock()

	go w.forwardDebounced(ctx)

	if w.fsWatcher == nil {
		err := poll(ctx, absDir, w.opts.PollInterval, w.stopCh, w.debouncer.Add, w.emitError)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("poll %s: %w", absDir, err)
		}
		return err
	}
	return w.runFsnotify(ctx, absDir)
}

func (w *DirWatcher) runFsnotify(ctx context.Context, dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handleFsnotifyEvent converts and filters fsnotify events.
func (w *DirWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}

	var change Change
	switch {
	case event.Op.Has(fsnotify.Create):
		change = Added
	case event.Op.Has(fsnotify.Write):
		change = Modified
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		change = Removed
	default:
		// chmod
		return
	}

	w.debouncer.Add(ShardEvent{Path: event.Name, Change: change, Seen: time.Now()})
}

// forwardDebounced moves debounced batches to the public channel.
func (w *DirWatcher) forwardDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emitEvents(batch)
		}
	}
}

func (w *DirWatcher) emitEvents(batch []ShardEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("watcher_buffer_full",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *DirWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes its channels. Safe to call multiple times.
func (w *DirWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *DirWatcher) Events() <-chan []ShardEvent {
	return w.events
}

// Errors returns the channel of non-fatal watcher errors.
func (w *DirWatcher) Errors() <-chan error {
	return w.errors
}

// Mode returns "fsnotify" or "polling".
func (w *DirWatcher) Mode() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// DroppedBatches returns the number of batches dropped on a full buffer.
func (w *DirWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}
