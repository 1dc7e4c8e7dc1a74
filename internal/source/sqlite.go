package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

// SQLite serves candidates from a table of (shard, text) rows. Rows keep
// their insertion order within a shard.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) a candidate database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, path, err)
	}

	// Readers run in parallel from the shard pool; a single writer is enough.
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // Readers do not block the importer
		"PRAGMA busy_timeout = 5000",  // 5 second timeout for lock contention
		"PRAGMA synchronous = NORMAL", // Balance durability and performance
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, path,
				fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	s := &SQLite{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, path,
			fmt.Errorf("failed to initialize schema: %w", err))
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candidates (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		shard TEXT NOT NULL,
		text  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_candidates_shard ON candidates(shard, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Import appends texts to a shard in one transaction.
func (s *SQLite) Import(ctx context.Context, shard string, texts []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO candidates(shard, text) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, text := range texts {
		if _, err := stmt.ExecContext(ctx, shard, text); err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	slog.Debug("candidates_imported",
		slog.String("db", s.path),
		slog.String("shard", shard),
		slog.Int("count", len(texts)))
	return nil
}

// Load returns the candidates of one shard. An unknown shard is an error,
// distinct from a shard with no rows.
func (s *SQLite) Load(ctx context.Context, shard string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM candidates WHERE shard = ? ORDER BY id`, shard)
	if err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, shard, err)
	}
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, shard, err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, shard, err)
	}
	if len(texts) == 0 {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceNotFound, shard,
			fmt.Errorf("no such shard in %s", s.path))
	}
	return texts, nil
}

// List returns every shard name in the database, sorted. The location
// argument is ignored; a database is its own location.
func (s *SQLite) List(ctx context.Context, _ string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT shard FROM candidates ORDER BY shard`)
	if err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, s.path, err)
	}
	defer rows.Close()

	shards := []string{}
	for rows.Next() {
		var shard string
		if err := rows.Scan(&shard); err != nil {
			return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, s.path, err)
		}
		shards = append(shards, shard)
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, s.path, err)
	}
	return shards, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
