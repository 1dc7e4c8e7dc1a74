package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path. Events for the same path within
// the window are merged:
//   - added then modified stays added
//   - added then removed cancels out
//   - removed then added becomes modified
//   - otherwise the latest change wins
type Debouncer struct {
	window  time.Duration
	pending map[string]pendingEvent
	mu      sync.Mutex
	output  chan []ShardEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   ShardEvent
	first Change
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]pendingEvent),
		output:  make(chan []ShardEvent, 10),
	}
}

// Add queues an event, restarting the window.
func (d *Debouncer) Add(event ShardEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	existing, ok := d.pending[event.Path]
	if !ok {
		d.pending[event.Path] = pendingEvent{event: event, first: event.Change}
	} else if merged, keep := coalesce(existing, event); keep {
		existing.event = merged
		d.pending[event.Path] = existing
	} else {
		delete(d.pending, event.Path)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges next into existing. keep is false when the two cancel out.
func coalesce(existing pendingEvent, next ShardEvent) (merged ShardEvent, keep bool) {
	switch {
	case existing.first == Added && next.Change == Modified:
		return existing.event, true
	case existing.first == Added && next.Change == Removed:
		return ShardEvent{}, false
	case existing.first == Removed && next.Change == Added:
		next.Change = Modified
		return next, true
	default:
		return next, true
	}
}

// flush emits pending events as one batch sorted by path.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]ShardEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]pendingEvent)
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer_output_full",
			slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []ShardEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
