package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// snapshotDir records the state of every shard file directly inside dir.
func snapshotDir(dir string) (map[string]fileSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	state := make(map[string]fileSnapshot, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || ignored(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		state[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return state, nil
}

// diffSnapshots returns the events that turn prev into curr.
func diffSnapshots(prev, curr map[string]fileSnapshot, now time.Time) []ShardEvent {
	var events []ShardEvent
	for path, snap := range curr {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, ShardEvent{Path: path, Change: Added, Seen: now})
		case old != snap:
			events = append(events, ShardEvent{Path: path, Change: Modified, Seen: now})
		}
	}
	for path := range prev {
		if _, ok := curr[path]; !ok {
			events = append(events, ShardEvent{Path: path, Change: Removed, Seen: now})
		}
	}
	return events
}

// poll scans dir every interval until ctx is done or stop is closed.
func poll(ctx context.Context, dir string, interval time.Duration, stop <-chan struct{},
	emit func(ShardEvent), emitErr func(error)) error {
	state, err := snapshotDir(dir)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case now := <-ticker.C:
			curr, err := snapshotDir(dir)
			if err != nil {
				emitErr(err)
				continue
			}
			for _, e := range diffSnapshots(state, curr, now) {
				emit(e)
			}
			state = curr
		}
	}
}
