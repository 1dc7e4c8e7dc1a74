package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/config"
	"github.com/Aman-CERP/addrmatch/internal/shard"
	"github.com/Aman-CERP/addrmatch/internal/source"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

func newStreetCmd() *cobra.Command {
	var (
		postcode string
		place    string
		dataDir  string
	)

	cmd := &cobra.Command{
		Use:   "street <street with house number>",
		Short: "Find the official Swiss street for an address",
		Long: `Look up a street with house number in the street data directory.

The requested postcode (plzs/<postcode>) or place (places/<place>) is
searched first with a strict sensitivity. When nothing matches there, every
location is searched. The location is printed only when the match came from
the requested one.

The place name may be misspelled; it is resolved against places.txt.`,
		Example: `  addrmatch street "aarstr. 76" --plz 3005
  addrmatch street "ch de st-cierges 3" --place bercher
  addrmatch street "bernstrasse 7" --data-dir /srv/streets --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreet(cmd, strings.Join(args, " "), postcode, place, dataDir)
		},
	}

	cmd.Flags().StringVar(&postcode, "plz", "", "Postcode to search first")
	cmd.Flags().StringVar(&place, "place", "", "Place to search first")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Street data directory (default: street.data_dir)")
	cmd.MarkFlagsMutuallyExclusive("plz", "place")

	return cmd
}

func runStreet(cmd *cobra.Command, query, postcode, place, dataDir string) error {
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

	var res street.MatchedStreet
	if place != "" {
		res, err = m.MatchByPlace(cmd.Context(), query, place)
	} else {
		res, err = m.MatchByPostcode(cmd.Context(), query, postcode)
	}
	if err != nil {
		return err
	}
	return out.Street(query, res)
}

// newStreetMatcher builds a street matcher sharing one cached searcher.
func newStreetMatcher(cfg *config.Config) (*street.Matcher, error) {
	normalizer := cfg.Normalizer()
	searcher := shard.NewSearcher(source.Files{},
		shard.WithNormalizer(normalizer),
		shard.WithCache(cfg.Cache.Size))
	return street.New(cfg.StreetConfig(),
		street.WithNormalizer(normalizer),
		street.WithSearcher(searcher))
}
