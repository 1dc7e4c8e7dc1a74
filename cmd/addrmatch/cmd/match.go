package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/config"
	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/source"
)

// matchOptions holds flags shared by match and dir.
type matchOptions struct {
	sensitivity float64
	keep        int
	workers     int
}

// apply overrides the configured match settings with flags the user set.
func (o *matchOptions) apply(cmd *cobra.Command, cfg *config.Config) matcher.Config {
	mc := cfg.MatchConfig()
	if cmd.Flags().Changed("sensitivity") {
		mc.Sensitivity = o.sensitivity
	}
	if cmd.Flags().Changed("keep") {
		mc.Keep = o.keep
	}
	if cmd.Flags().Changed("workers") {
		mc.Workers = o.workers
	}
	return mc
}

func newMatchCmd() *cobra.Command {
	var (
		opts       matchOptions
		file       string
		candidates []string
	)

	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Match a query against a candidate list",
		Long: `Rank candidate addresses by similarity to the query.

Candidates are read from a file (one per line) or given with --candidate.`,
		Example: `  addrmatch match "qu du seujet 36" --file streets.txt
  addrmatch match "hagenstr 5" -c "haggenstrasse 5" -c "hagenweg 5" --keep 1
  addrmatch match "rt de la claie 21" --file streets.txt --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, strings.Join(args, " "), file, candidates, &opts)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "File with one candidate per line")
	cmd.Flags().StringArrayVarP(&candidates, "candidate", "c", nil, "Candidate address (repeatable)")
	bindMatchFlags(cmd, &opts, false)
	cmd.MarkFlagsMutuallyExclusive("file", "candidate")
	cmd.MarkFlagsOneRequired("file", "candidate")

	return cmd
}

// bindMatchFlags registers the sensitivity, keep and optionally workers flags.
func bindMatchFlags(cmd *cobra.Command, o *matchOptions, withWorkers bool) {
	cmd.Flags().Float64VarP(&o.sensitivity, "sensitivity", "s", matcher.DefaultSensitivity, "Minimum score between 0 and 1")
	cmd.Flags().IntVarP(&o.keep, "keep", "k", matcher.DefaultKeep, "Maximum number of matches")
	if withWorkers {
		cmd.Flags().IntVarP(&o.workers, "workers", "w", 0, "Parallel workers (default: match.workers)")
	}
}

func runMatch(cmd *cobra.Command, query, file string, candidates []string, opts *matchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	if file != "" {
		candidates, err = source.Files{}.Load(cmd.Context(), file)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(query) == "" {
		return amerrors.ValidationError(amerrors.ErrCodeInvalidInput, "query must not be empty")
	}

	m, err := matcher.New(opts.apply(cmd, cfg), candidates, matcher.WithNormalizer(cfg.Normalizer()))
	if err != nil {
		return err
	}
	return out.Matches(query, m.FindMatches(query))
}
