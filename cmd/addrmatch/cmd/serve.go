package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/config"
	"github.com/Aman-CERP/addrmatch/internal/logging"
	"github.com/Aman-CERP/addrmatch/internal/mcp"
	"github.com/Aman-CERP/addrmatch/internal/shard"
	"github.com/Aman-CERP/addrmatch/internal/source"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve the match_address, match_street and normalize_address tools over
the Model Context Protocol.

stdout carries JSON-RPC only; logs go to ~/.addrmatch/logs/addrmatch.log
(see 'addrmatch logs'). Directories passed to match_address are resolved
against --project and may not leave it. match_street is available when
street.data_dir exists.`,
		Example: `  addrmatch serve
  addrmatch serve --project /srv/addresses`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport: stdio (default: server.transport)")

	return cmd
}

func runServe(ctx context.Context, transport string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// --debug already routed logs to the file.
	if loggingCleanup == nil {
		cleanup, err := logging.SetupMCPMode(mcpLoggingConfig(cfg))
		if err != nil {
			return err
		}
		defer cleanup()
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}

	normalizer := cfg.Normalizer()
	searcher := shard.NewSearcher(source.Files{},
		shard.WithNormalizer(normalizer),
		shard.WithCache(cfg.Cache.Size))
	opts := []mcp.Option{mcp.WithRootPath(root), mcp.WithSearcher(searcher)}

	streetCfg := cfg.StreetConfig()
	streetCfg.DataDir = projectPath(streetCfg.DataDir)
	if info, err := os.Stat(streetCfg.DataDir); err == nil && info.IsDir() {
		streets, err := street.New(streetCfg,
			street.WithNormalizer(normalizer),
			street.WithSearcher(searcher))
		if err != nil {
			return err
		}
		opts = append(opts,
			mcp.WithStreetMatcher(streets),
			mcp.WithWatchDirs(
				filepath.Join(streetCfg.DataDir, street.PostcodeDirName),
				filepath.Join(streetCfg.DataDir, street.PlaceDirName)))
	} else {
		slog.Warn("street_data_missing", slog.String("data_dir", streetCfg.DataDir))
	}

	srv, err := mcp.NewServer(cfg, opts...)
	if err != nil {
		return err
	}

	if transport == "" {
		transport = cfg.Server.Transport
	}
	return srv.Serve(ctx, transport)
}

// mcpLoggingConfig maps the logging section onto the logger settings.
func mcpLoggingConfig(cfg *config.Config) logging.Config {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	if cfg.Logging.MaxSizeMB > 0 {
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxFiles > 0 {
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	return logCfg
}
