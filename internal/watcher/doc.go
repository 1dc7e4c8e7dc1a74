// Package watcher reports changes to the shard files of a candidate
// directory so cached candidate entries can be dropped.
//
// fsnotify is used when available; otherwise the directory is polled.
// Events are debounced so an editor saving a file in several steps produces
// one change per path.
//
// Usage:
//
//	w := watcher.New(watcher.DefaultOptions())
//	go func() { _ = w.Start(ctx, "/data/streets") }()
//	defer w.Stop()
//
//	for batch := range w.Events() {
//	    for _, e := range batch {
//	        cache.Invalidate(e.Path)
//	    }
//	}
package watcher
