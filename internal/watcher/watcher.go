package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Change is what happened to a shard file.
type Change uint8

const (
	Added Change = iota + 1
	Modified
	// Removed covers deletes and renames out of the directory.
	Removed
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// ShardEvent reports one changed shard file by absolute path.
type ShardEvent struct {
	Path   string
	Change Change
	Seen   time.Time
}

// Options tunes a DirWatcher. Zero fields take the values of DefaultOptions.
type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	BatchBuffer  int

	// ForcePolling skips fsnotify, e.g. on network mounts.
	ForcePolling bool
}

// DefaultOptions returns a 200ms debounce, a 5s poll interval and room for
// 100 pending batches.
func DefaultOptions() Options {
	return Options{
		Debounce:     200 * time.Millisecond,
		PollInterval: 5 * time.Second,
		BatchBuffer:  100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.BatchBuffer <= 0 {
		o.BatchBuffer = d.BatchBuffer
	}
	return o
}

// ignored filters dotfiles, editor swap files and backups.
func ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}
