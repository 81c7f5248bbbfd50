// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for xblaunpack.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xblaunpack/xblaunpack/internal/config"
	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/issue"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
	"github.com/xblaunpack/xblaunpack/internal/tui"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App so tests can swap the prompts, streams and backends.
	App struct {
		Config  config.Provider
		Prompts Prompter

		stdout    io.Writer
		stderr    io.Writer
		goos      string
		configDir string
		cliOpts   []extract.CLIOption

		// Persistent flag values.
		cfgFile string
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  config.Provider
		Prompts Prompter
		Stdout  io.Writer
		Stderr  io.Writer
		// GOOS selects the native backends (default: runtime.GOOS).
		GOOS string
		// ConfigDir overrides the per-user config directory.
		ConfigDir string
		// CLIOptions are applied to every command-line backend.
		CLIOptions []extract.CLIOption
	}

	// Prompter asks the user for the inputs that were not given as
	// arguments or flags.
	Prompter interface {
		ChooseDirectory(ctx context.Context, opts tui.DirOptions) (string, error)
		ChooseFormat(ctx context.Context, opts tui.FormatOptions) (sanitize.Format, error)
		Confirm(ctx context.Context, opts tui.ConfirmOptions) (bool, error)
	}

	tuiPrompter struct{}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Prompts:   deps.Prompts,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
		goos:      deps.GOOS,
		configDir: deps.ConfigDir,
		cliOpts:   deps.CLIOptions,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Prompts == nil {
		app.Prompts = tuiPrompter{}
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.goos == "" {
		app.goos = runtime.GOOS
	}
	return app
}

func (tuiPrompter) ChooseDirectory(ctx context.Context, opts tui.DirOptions) (string, error) {
	return tui.ChooseDirectory(ctx, opts)
}

func (tuiPrompter) ChooseFormat(ctx context.Context, opts tui.FormatOptions) (sanitize.Format, error) {
	return tui.ChooseFormat(ctx, opts)
}

func (tuiPrompter) Confirm(ctx context.Context, opts tui.ConfirmOptions) (bool, error) {
	return tui.Confirm(ctx, opts)
}

// NewRootCommand builds the xblaunpack command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xblaunpack",
		Short: "Batch-unpack Xbox 360 XBLA archives",
		Long: TitleStyle.Render("xblaunpack") + SubtitleStyle.Render(" - Batch-unpack Xbox 360 XBLA archives") + `

xblaunpack extracts every .zip, .rar and .7z archive in a directory,
finds the innermost game file in each one, moves it to the output
directory under a sanitized name and writes a marker file next to it.

Extraction uses unrar, 7z or unzip when installed and falls back to a
built-in extractor, so one broken archive never stops the batch.

` + SubtitleStyle.Render("Examples:") + `
  xblaunpack unpack ~/Downloads/xbla ~/xbla            Unpack a directory
  xblaunpack unpack in out --format dash              Use dashes for spaces
  xblaunpack unpack                                   Choose directories interactively
  xblaunpack backends                                 Show usable extraction backends
  xblaunpack sanitize "Game Name (USA).zip"           Preview an output name
  xblaunpack config init                              Create a default config file`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $HOME/.config/xblaunpack/config.cue)")

	rootCmd.AddCommand(
		newUnpackCommand(app),
		newBackendsCommand(app),
		newSanitizeCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree, runs it and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the command tree and returns the process exit status.
func Main() int {
	app := NewApp(Dependencies{})
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return ExitUsage
	}
	return ExitOK
}

// loadConfig loads the effective configuration and applies its UI settings.
// Load failures are usage errors.
func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.cfgFile,
		ConfigDirPath:  a.configDir,
	})
	if err != nil {
		a.printError(err)
		return nil, "", &ExitError{Code: ExitUsage, Err: err}
	}
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	applyColorScheme(cfg.UI.ColorScheme)
	return cfg, path, nil
}

// newLogger creates the process logger on the App's stderr.
func (a *App) newLogger() *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           log.InfoLevel,
	})
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// printError writes err to stderr, with hints when it is actionable.
func (a *App) printError(err error) {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
}

// renderIssue writes the catalog entry linked to err to stderr. Errors
// without a linked entry render nothing.
func (a *App) renderIssue(cfg *config.Config, err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	iss := ae.CatalogIssue()
	if iss == nil {
		return
	}
	scheme := config.ColorSchemeAuto
	if cfg != nil {
		scheme = cfg.UI.ColorScheme
	}
	rendered, err := iss.Render(glamourStyle(scheme, isTerminal(a.stderr)))
	if err != nil {
		rendered = string(iss.MarkdownMsg())
	}
	fmt.Fprint(a.stderr, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
