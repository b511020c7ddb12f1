package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/edmindex/configs"
	"github.com/Aman-CERP/edmindex/internal/config"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/internal/output"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/edmindex/config.yaml)
  3. Project config (.edmindex.yaml)
  4. Environment variables (EDMINDEX_*)
  5. Command-line flags`,
		Example: `  # Create the user config with defaults
  edmindex config init

  # Show the effective configuration
  edmindex config show --json`,
	}

	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		Long: `Create ~/.config/edmindex/config.yaml (or $XDG_CONFIG_HOME/edmindex/config.yaml)
with default settings.

With --force an existing file is backed up, then rewritten with its settings
kept and any new defaults filled in.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(opts.stdout(cmd), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration (a backup is kept)")

	return cmd
}

func runConfigInit(out *output.Writer, force bool) error {
	path := config.GetUserConfigPath()

	if config.UserConfigExists() && !force {
		out.Warning("User configuration already exists")
		out.KeyValue("Location", path, 10)
		out.Newline()
		out.Status("", "Use --force to rewrite it with new defaults (your settings are kept)")
		return nil
	}

	if !config.UserConfigExists() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return edmerrors.IOError("failed to create config directory", err).WithDetail("path", path)
		}
		if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o600); err != nil {
			return edmerrors.IOError("failed to write configuration", err).WithDetail("path", path)
		}
		out.Success("Created user configuration")
		out.KeyValue("Location", path, 10)
	} else {
		// Force: back up, keep the user's values, fill in new defaults.
		backup, err := config.BackupUserConfig()
		if err != nil {
			return edmerrors.IOError("failed to back up configuration", err)
		}
		cfg, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		if err := cfg.WriteYAML(path); err != nil {
			return edmerrors.IOError("failed to write configuration", err).WithDetail("path", path)
		}
		out.Success("Configuration rewritten")
		out.KeyValue("Location", path, 10)
		out.KeyValue("Backup", backup, 10)
	}

	out.Newline()
	out.Status("", "Set server.url and server.api_key, then run 'edmindex config show' to verify")
	return nil
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging all sources and flags.
The API key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			redacted := opts.cfg.Redacted()
			if jsonOutput {
				return opts.stdout(cmd).JSON(redacted)
			}
			data, err := yaml.Marshal(redacted)
			if err != nil {
				return edmerrors.InternalError("failed to render configuration", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the user config file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
