// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xblaunpack/xblaunpack/internal/config"
)

// newConfigCommand creates the `xblaunpack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage xblaunpack configuration",
		Long: `Manage xblaunpack configuration.

Configuration is stored in:
  - Linux: ~/.config/xblaunpack/config.cue
  - macOS: ~/Library/Application Support/xblaunpack/config.cue
  - Windows: %APPDATA%\xblaunpack\config.cue

A config.cue in the current directory is used when the per-user file is
missing. Environment variables such as XBLAUNPACK_NAMING_FORMAT override
values from the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, path, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	value := func(v any) string { return valueStyle.Render(fmt.Sprint(v)) }
	list := func(items []string) string {
		if len(items) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(strings.Join(items, ", "))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("naming"))
	fmt.Fprintf(w, "  format: %s %s\n", value(cfg.Naming.Format), SubtitleStyle.Render("e.g. "+cfg.Naming.Format.Example()))

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("extract"))
	fmt.Fprintf(w, "  probe_timeout: %s\n", value(cfg.Extract.ProbeTimeout))
	fmt.Fprintf(w, "  timeout: %s\n", value(cfg.Extract.Timeout))
	fmt.Fprintf(w, "  order: %s\n", list(cfg.Extract.Order))
	fmt.Fprintf(w, "  disable: %s\n", list(cfg.Extract.Disable))
	if len(cfg.Extract.Custom) == 0 {
		fmt.Fprintf(w, "  custom: %s\n", SubtitleStyle.Render("(none)"))
	} else {
		fmt.Fprintln(w, "  custom:")
		for _, cb := range cfg.Extract.Custom {
			fmt.Fprintf(w, "    - %s: %s\n", valueStyle.Render(cb.Name), cb.Command)
		}
	}

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("output"))
	fmt.Fprintf(w, "  marker_suffix: %s\n", value(cfg.Output.MarkerSuffix))
	fmt.Fprintf(w, "  overwrite: %s\n", value(cfg.Output.Overwrite))

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(cfg.UI.ColorScheme))
	fmt.Fprintf(w, "  verbose: %s\n", value(cfg.UI.Verbose))
	fmt.Fprintf(w, "  progress: %s\n", value(cfg.UI.Progress))

	return nil
}

func initConfig(app *App, force bool) error {
	path, err := config.CreateDefaultConfig(app.configDir, force)
	if errors.Is(err, config.ErrConfigFileExists) {
		fmt.Fprintf(app.stderr, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return &ExitError{Code: ExitUsage, Err: err}
	}
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	path, err := config.DefaultPath(app.configDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", filepath.Dir(path))
	fmt.Fprintf(app.stdout, "Config file: %s\n", path)
	return nil
}
