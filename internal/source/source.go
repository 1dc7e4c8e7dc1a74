// Package source loads raw candidate strings from files, directories and
// SQLite databases. Each shard is one source identifier: a file path for
// directory sources, a shard name for SQLite sources.
package source

import "context"

// Loader yields the raw candidate strings of one shard, in stored order.
type Loader interface {
	Load(ctx context.Context, id string) ([]string, error)
}

// Lister enumerates the shard identifiers under a location.
// Identifiers are returned in a stable, sorted order.
type Lister interface {
	List(ctx context.Context, location string) ([]string, error)
}

// Store is a source that can both list and load shards.
type Store interface {
	Loader
	Lister
}
