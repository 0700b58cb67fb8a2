package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/deckstore/internal/config"
	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
	"github.com/Aman-CERP/deckstore/internal/output"
)

// noSetup marks commands that must work without a loadable configuration.
var noSetup = map[string]string{"skipSetup": "true"}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/deckstore/config.yaml)
  3. --config file
  4. Environment variables (DECKSTORE_*)`,
		Example: `  # Create user config with defaults
  deckstore config init

  # Show effective configuration
  deckstore config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(e))
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create the user configuration file",
		Annotations: noSetup,
		Example: `  deckstore config init
  deckstore config init --force   # back up the existing file, then reset it`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			path := config.GetUserConfigPath()

			if config.UserConfigExists() {
				if !force {
					out.Warning("User configuration already exists")
					out.Statusf("", "Location: %s", path)
					out.Status("", "Use --force to back it up and write fresh defaults")
					return nil
				}
				backup, err := config.BackupConfig(path)
				if err != nil {
					return err
				}
				out.Statusf("", "Backup: %s", backup)
			}

			if err := config.NewConfig().WriteYAML(path); err != nil {
				return err
			}
			out.Success("Created user configuration")
			out.Statusf("", "Location: %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (a backup is kept)")
	return cmd
}

func newConfigShowCmd(e *env) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources, or only the
built-in defaults with --source defaults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			var desc string
			switch source {
			case "merged":
				cfg, desc = e.cfg, "merged (defaults + user + --config + env)"
			case "defaults":
				cfg, desc = config.NewConfig(), "defaults"
			default:
				return dserrors.InvalidArgument("invalid source %q (use: merged, defaults)", source)
			}

			out := output.New(cmd.OutOrStdout())
			if e.jsonOutput() {
				return out.JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out.Statusf("", "Configuration source: %s", desc)
			out.Newline()
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the user config file path",
		Annotations: noSetup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:         "restore [backup]",
		Short:       "Restore the user config from a backup (default: newest)",
		Annotations: noSetup,
		Args:        cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			path := config.GetUserConfigPath()
			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			if list {
				for _, b := range backups {
					out.Status("", b)
				}
				return nil
			}

			var from string
			switch {
			case len(args) == 1:
				from = args[0]
			case len(backups) > 0:
				from = backups[0]
			default:
				return dserrors.New(dserrors.ErrCodeConfigNotFound, "no configuration backups found", nil).
					WithSuggestion("backups are written by 'deckstore config init --force'")
			}
			if err := config.RestoreConfig(path, from); err != nil {
				return err
			}
			out.Successf("Restored %s from %s", path, from)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")
	return cmd
}
