package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/batch"
)

func newBatchCmd() *cobra.Command {
	var (
		chunkSize int
		workers   int
		dataDir   string
	)

	cmd := &cobra.Command{
		Use:   "batch <input.tsv> <output.tsv>",
		Short: "Match a TSV file of streets by place",
		Long: `Match every row of a TSV file and append the results to an output file.

Input rows are "index<TAB>street<TAB>place". Output rows repeat them and
add the official street and the place file it came from:
"index<TAB>street<TAB>place<TAB>matched<TAB>source".

Rows are processed in chunks; each chunk is appended under a file lock, so
several runs may share one output file. Rows without a house number are
skipped.`,
		Example: `  addrmatch batch addresses.tsv matched.tsv
  addrmatch batch addresses.tsv matched.tsv --chunk-size 500 --workers 4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], args[1], chunkSize, workers, dataDir)
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", batch.DefaultChunkSize, "Rows matched and written together")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Rows of a chunk matched concurrently")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Street data directory (default: street.data_dir)")

	return cmd
}

func runBatch(cmd *cobra.Command, inPath, outPath string, chunkSize, workers int, dataDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Street.DataDir = dataDir
	} else {
		cfg.Street.DataDir = projectPath(cfg.Street.DataDir)
	}
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	m, err := newStreetMatcher(cfg)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = in.Close() }()

	opts := []batch.Option{batch.WithChunkSize(chunkSize), batch.WithWorkers(workers)}
	if !jsonOutput() {
		opts = append(opts, batch.WithProgress(func(s batch.Stats) {
			out.Progress(s.Rows, 0, "rows")
		}))
	}

	stats, err := batch.New(m, opts...).Run(cmd.Context(), in, outPath)
	if !jsonOutput() && stats.Chunks > 0 {
		out.ProgressDone()
	}
	if err != nil {
		return err
	}

	if jsonOutput() {
		return out.JSON(stats)
	}
	out.Successf("%d rows, %d matched, %d skipped -> %s", stats.Rows, stats.Matched, stats.Skipped, outPath)
	return nil
}
