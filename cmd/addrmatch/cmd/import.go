package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/source"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <db> <dir>",
		Short: "Import a directory of candidate files into a SQLite database",
		Long: `Copy every candidate file in a directory into a SQLite database, one shard
per file. The shard is named after the file without its extension.

Importing the same directory twice appends the candidates again.`,
		Example: `  addrmatch import streets.db data/plzs
  addrmatch dir "qu du seujet 36" --db streets.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], args[1])
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, dbPath, dir string) error {
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	files, err := source.Files{}.List(ctx, dir)
	if err != nil {
		return err
	}

	db, err := source.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	total := 0
	for i, path := range files {
		texts, err := source.Files{}.Load(ctx, path)
		if err != nil {
			return err
		}
		if err := db.Import(ctx, source.ShardName(path), texts); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		total += len(texts)
		if !jsonOutput() {
			out.Progress(i+1, len(files), source.ShardName(path))
		}
	}

	if jsonOutput() {
		return out.JSON(map[string]any{"db": dbPath, "shards": len(files), "candidates": total})
	}
	out.Successf("Imported %d candidates from %d files into %s", total, len(files), dbPath)
	return nil
}
