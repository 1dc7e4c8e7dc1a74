package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/shard"
	"github.com/Aman-CERP/addrmatch/internal/source"
)

func newDirCmd() *cobra.Command {
	var (
		opts     matchOptions
		dir      string
		db       string
		tolerate bool
	)

	cmd := &cobra.Command{
		Use:   "dir <query>",
		Short: "Match a query against a sharded candidate set",
		Long: `Search every shard of a candidate set in parallel and print one ranking.

With --dir each regular file directly inside the directory is a shard.
With --db each shard of a SQLite database built by 'addrmatch import' is.
Equal scores are ordered by shard name, then by position in the shard.`,
		Example: `  addrmatch dir "qu du seujet 36" --dir data/plzs
  addrmatch dir "qu du seujet 36" --db streets.db --workers 8
  addrmatch dir "hagenstr 5" --dir data/places --tolerate-errors`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDir(cmd, strings.Join(args, " "), dir, db, tolerate, &opts)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of candidate files")
	cmd.Flags().StringVar(&db, "db", "", "SQLite candidate database")
	cmd.Flags().BoolVar(&tolerate, "tolerate-errors", false, "Skip unreadable shards instead of failing")
	bindMatchFlags(cmd, &opts, true)
	cmd.MarkFlagsMutuallyExclusive("dir", "db")
	cmd.MarkFlagsOneRequired("dir", "db")

	return cmd
}

func runDir(cmd *cobra.Command, query, dir, db string, tolerate bool, opts *matchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	mc := opts.apply(cmd, cfg)
	if cmd.Flags().Changed("tolerate-errors") {
		mc.TolerateShardErrors = tolerate
	}

	var store source.Store = source.Files{}
	location := dir
	if db != "" {
		sqlite, err := source.OpenSQLite(db)
		if err != nil {
			return err
		}
		defer func() { _ = sqlite.Close() }()
		store = sqlite
		location = db
	}

	searcher := shard.NewSearcher(store, shard.WithNormalizer(cfg.Normalizer()))
	matches, err := searcher.SearchDir(cmd.Context(), query, location, mc)
	if err != nil {
		return err
	}
	slog.Debug("dir_search_complete",
		slog.String("location", location),
		slog.Int("results", len(matches)))
	return out.Matches(query, matches)
}
