package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/addrmatch/configs"
	"github.com/Aman-CERP/addrmatch/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage addrmatch configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/addrmatch/config.yaml)
  3. Project config (.addrmatch.yaml)
  4. Environment variables (ADDRMATCH_*)`,
		Example: `  # Create .addrmatch.yaml in the current directory
  addrmatch config init

  # Create the user config, backing up an existing one
  addrmatch config init --user --force

  # Show effective configuration
  addrmatch config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Write the commented configuration template to .addrmatch.yaml in the
project directory, or to the user config with --user.

An existing file is kept unless --force is given. With --user --force the
previous user config is backed up first; see 'addrmatch config restore'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, user, force)
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show configuration",
		Long: `Show the effective configuration after merging all sources, or a single
source with --source.`,
		Example: `  addrmatch config show
  addrmatch config show --source user
  addrmatch config show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the user config from a backup",
		Long: `Replace the user config with a backup. Without an argument the newest
backup is used. The current config is backed up before it is replaced.`,
		Example: `  addrmatch config restore --list
  addrmatch config restore`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, args, list)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")

	return cmd
}

func runConfigInit(cmd *cobra.Command, user, force bool) error {
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	path := filepath.Join(projectDir, config.ProjectConfigName)
	if user {
		path = config.GetUserConfigPath()
	} else if existing := config.ProjectConfigPath(projectDir); existing != "" {
		path = existing
	}

	if fileExists(path) && !force {
		out.Warningf("Configuration already exists: %s", path)
		out.Status("", "Use --force to overwrite it")
		return nil
	}

	if user && fileExists(path) {
		backup, err := config.BackupUserConfig()
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Status("", "Backup: "+backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Successf("Created %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, source string) error {
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	var cfg *config.Config
	switch source {
	case "merged":
		cfg, err = loadConfig()
	case "user":
		if !config.UserConfigExists() {
			out.Warningf("No user configuration at %s", config.GetUserConfigPath())
			return nil
		}
		cfg, err = config.LoadFile(config.GetUserConfigPath())
	case "project":
		path := config.ProjectConfigPath(projectDir)
		if path == "" {
			out.Warningf("No project configuration in %s", projectDir)
			return nil
		}
		cfg, err = config.LoadFile(path)
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}
	if err != nil {
		return err
	}

	if jsonOutput() {
		return out.JSON(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigRestore(cmd *cobra.Command, args []string, list bool) error {
	out, err := newWriter(cmd)
	if err != nil {
		return err
	}

	backups, err := config.ListUserConfigBackups()
	if err != nil {
		return err
	}

	if list {
		if jsonOutput() {
			return out.JSON(map[string]any{"backups": backups})
		}
		if len(backups) == 0 {
			out.Warning("No backups found")
			return nil
		}
		for _, b := range backups {
			out.Status("", b)
		}
		return nil
	}

	var backup string
	switch {
	case len(args) == 1:
		backup = args[0]
	case len(backups) > 0:
		backup = backups[0]
	default:
		return fmt.Errorf("no backups found in %s", config.GetUserConfigDir())
	}

	if err := config.RestoreUserConfig(backup); err != nil {
		return err
	}
	out.Successf("Restored %s from %s", config.GetUserConfigPath(), backup)
	return nil
}
