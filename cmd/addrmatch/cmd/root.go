// Package cmd provides the CLI commands for addrmatch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/addrmatch/internal/config"
	"github.com/Aman-CERP/addrmatch/internal/logging"
	"github.com/Aman-CERP/addrmatch/internal/output"
	"github.com/Aman-CERP/addrmatch/internal/profiling"
	"github.com/Aman-CERP/addrmatch/pkg/version"
)

// Global flags
var (
	debugMode      bool
	formatFlag     string
	projectDir     string
	loggingCleanup func()

	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the addrmatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addrmatch",
		Short: "Fuzzy address matching",
		Long: `addrmatch finds the canonical address behind a noisy, abbreviated or
misspelled one ("qu du seujet 36" -> "quai du seujet 36").

Candidates come from a list, a directory of files (one address per line)
or a SQLite database. Results are ranked by similarity and filtered by a
minimum score, the sensitivity.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("addrmatch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.addrmatch/logs/")
	cmd.PersistentFlags().StringVar(&formatFlag, "format", "text", "Output format: text, json")
	cmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "Directory to load .addrmatch.yaml from")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write an execution trace to this file")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newDirCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStreetCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when --debug is set and starts any
// requested profiles.
func startLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = session
	}
	if !debugMode {
		return nil
	}
	cfg := logging.DebugConfig()
	cfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug_logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Short()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	var profErr error
	if profileSession != nil {
		profErr = profileSession.Stop()
		profileSession = nil
	}
	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	if profErr != nil {
		return fmt.Errorf("failed to write profiles: %w", profErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the effective configuration for projectDir.
func loadConfig() (*config.Config, error) {
	return config.Load(projectDir)
}

// newWriter creates an output writer honoring --format.
func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	return output.New(cmd.OutOrStdout(), format), nil
}

// projectPath resolves a configured relative path against --project.
func projectPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// jsonOutput reports whether --format json was requested.
func jsonOutput() bool {
	format, err := output.ParseFormat(formatFlag)
	return err == nil && format == output.FormatJSON
}
