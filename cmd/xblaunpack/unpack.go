// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/xblaunpack/xblaunpack/internal/config"
	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/issue"
	"github.com/xblaunpack/xblaunpack/internal/pipeline"
	"github.com/xblaunpack/xblaunpack/internal/progress"
	"github.com/xblaunpack/xblaunpack/internal/report"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
	"github.com/xblaunpack/xblaunpack/internal/tui"
)

// unpackFlags holds the flag values of one unpack invocation.
type unpackFlags struct {
	format          string
	dryRun          bool
	reportPath      string
	deleteOriginals bool
	overwrite       bool
	noProgress      bool
}

// newUnpackCommand creates the `xblaunpack unpack` command.
func newUnpackCommand(app *App) *cobra.Command {
	var flags unpackFlags

	cmd := &cobra.Command{
		Use:   "unpack [input-dir [output-dir]]",
		Short: "Unpack every archive in a directory",
		Long: `Unpack every .zip, .rar and .7z archive found directly in input-dir.

For each archive the innermost file is moved to output-dir under a
sanitized version of the archive name, and a marker file named
<name>.xbox360 is written next to it. Archives that fail are reported
and the batch continues. Missing directories are asked for
interactively; the output directory is created when needed.

Exit status is 0 when every archive was unpacked, 2 when some failed,
3 when no extraction backend is usable and 130 when interrupted.`,
		Example: `  xblaunpack unpack ~/Downloads/xbla ~/xbla
  xblaunpack unpack in out --format keep-spaces --report report.toml
  xblaunpack unpack in out --dry-run`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(cmd.Context(), app, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "space handling: keep-spaces, underscore, dash or remove-spaces (default from config)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the planned output names without extracting")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "write a TOML report of the batch to this file")
	cmd.Flags().BoolVar(&flags.deleteOriginals, "delete-originals", false, "delete archives that were unpacked successfully")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "re-unpack archives whose output already exists")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

func runUnpack(ctx context.Context, app *App, args []string, flags unpackFlags) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	interactive := len(args) < 2

	inputDir, outputDir, err := app.unpackDirs(ctx, args)
	if err != nil {
		return promptError(err)
	}
	format, err := app.unpackFormat(ctx, cfg, flags.format, interactive)
	if err != nil {
		return err
	}

	items, err := pipeline.Enumerate(inputDir)
	if err != nil {
		return app.usageError(cfg, issue.NewErrorContext().
			WithOperation("list archives").
			WithResource(inputDir).
			WithSuggestion("Check that the input directory exists and is readable").
			WithIssue(issue.InputDirNotFoundId).
			Wrap(err).
			BuildError())
	}
	if len(items) == 0 {
		logger.Warn("no archives found", "dir", inputDir, "extensions", strings.Join(sanitize.ArchiveExtensions(), " "))
		if app.verbose {
			app.renderIssue(cfg, issue.NewErrorContext().
				WithOperation("find archives").
				WithResource(inputDir).
				WithIssue(issue.NoArchivesFoundId).
				BuildError())
		}
		return nil
	}

	if flags.dryRun {
		return printPlan(app.stdout, items, outputDir, format, cfg.Output.MarkerSuffix)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return app.usageError(cfg, issue.NewErrorContext().
			WithOperation("create output directory").
			WithResource(outputDir).
			WithSuggestion("Choose a directory you can write to").
			WithIssue(issue.OutputDirNotWritableId).
			Wrap(err).
			BuildError())
	}

	backends, err := app.resolveBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	ex := extract.NewExtractor(backends,
		extract.WithLogger(logger),
		extract.WithTimeout(cfg.Extract.Timeout),
	)
	names := backendNames(ex.Backends())
	logger.Info("starting batch", "archives", len(items), "input", inputDir, "output", outputDir,
		"format", format, "backends", strings.Join(names, ","))

	logObs := progress.NewLog(logger, len(items))
	observers := progress.Multi{logObs}
	var bar *progress.Bar
	if cfg.UI.Progress && !flags.noProgress && isTerminal(app.stdout) {
		bar = progress.NewBar(app.stdout, len(items))
		observers = append(observers, bar)
	}

	p := pipeline.New(outputDir, ex,
		pipeline.WithLogger(logger),
		pipeline.WithObserver(observers),
		pipeline.WithFormat(format),
		pipeline.WithMarkerSuffix(cfg.Output.MarkerSuffix),
		pipeline.WithOverwrite(cfg.Output.Overwrite || flags.overwrite),
	)
	sum := p.Run(ctx, items)
	if bar != nil {
		_ = bar.Finish() //nolint:errcheck // the bar only decorates the terminal
	}
	finished, failedCount := logObs.Tally()
	logger.Info("batch finished", "archives", finished, "failed", failedCount, "pending", sum.Pending)

	printSummary(app.stdout, sum)

	if flags.reportPath != "" {
		rep := report.New(sum, report.Meta{
			InputDir:  inputDir,
			OutputDir: outputDir,
			Format:    format.String(),
			Backends:  names,
		}, time.Now())
		if err := rep.WriteFile(flags.reportPath); err != nil {
			app.printError(issue.NewErrorContext().
				WithOperation("write report").
				WithResource(flags.reportPath).
				WithSuggestion("Check that the report's directory exists and is writable").
				Wrap(err).
				BuildError())
		} else {
			logger.Info("report written", "path", flags.reportPath)
		}
	}

	if sum.Cancelled {
		return &ExitError{Code: ExitInterrupted, Err: fmt.Errorf("interrupted with %d archives not started", sum.Pending)}
	}

	if err := app.deleteOriginals(ctx, sum, flags.deleteOriginals, interactive, logger); err != nil {
		return promptError(err)
	}

	if failed := sum.Failed(); len(failed) > 0 {
		err := issue.NewErrorContext().
			WithOperation("unpack every archive").
			WithSuggestion("Rerun with --verbose to see each backend's output").
			WithIssue(issue.ItemsFailedId).
			Wrap(fmt.Errorf("%d of %d archives failed", len(failed), len(sum.Results))).
			BuildError()
		if app.verbose {
			app.renderIssue(cfg, err)
		}
		return &ExitError{Code: ExitItemsFailed, Err: err}
	}
	return nil
}

// unpackDirs takes the input and output directories from args, asking for
// the missing ones. Both are returned absolute.
func (a *App) unpackDirs(ctx context.Context, args []string) (inputDir, outputDir string, err error) {
	if len(args) > 0 {
		inputDir = args[0]
	} else {
		inputDir, err = a.Prompts.ChooseDirectory(ctx, tui.DirOptions{
			Title:       "Input directory",
			Description: "The directory containing the downloaded archives",
			MustExist:   true,
			Config:      tui.DefaultConfig(),
		})
		if err != nil {
			return "", "", err
		}
	}

	if len(args) > 1 {
		outputDir = args[1]
	} else {
		outputDir, err = a.Prompts.ChooseDirectory(ctx, tui.DirOptions{
			Title:       "Output directory",
			Description: "Created if it does not exist",
			Start:       inputDir,
			Config:      tui.DefaultConfig(),
		})
		if err != nil {
			return "", "", err
		}
	}

	if inputDir, err = filepath.Abs(inputDir); err != nil {
		return "", "", err
	}
	if outputDir, err = filepath.Abs(outputDir); err != nil {
		return "", "", err
	}
	return inputDir, outputDir, nil
}

// unpackFormat picks the naming format: the flag, then an interactive
// choice, then the config value.
func (a *App) unpackFormat(ctx context.Context, cfg *config.Config, flagValue string, interactive bool) (sanitize.Format, error) {
	if flagValue != "" {
		f := sanitize.Format(flagValue)
		if valid, errs := f.IsValid(); !valid {
			return "", a.usageError(cfg, issue.NewErrorContext().
				WithOperation("parse --format").
				WithSuggestion("Use one of: keep-spaces, underscore, dash, remove-spaces").
				WithIssue(issue.InvalidFormatId).
				Wrap(errors.Join(errs...)).
				BuildError())
		}
		return f, nil
	}

	if !interactive {
		return cfg.Naming.Format, nil
	}
	f, err := a.Prompts.ChooseFormat(ctx, tui.FormatOptions{
		Title:   "How should spaces in names be handled?",
		Default: cfg.Naming.Format,
		Config:  tui.DefaultConfig(),
	})
	if err != nil {
		return "", promptError(err)
	}
	return f, nil
}

// deleteOriginals removes the source archive of every item this run
// unpacked. Skipped items are kept: their artifact predates the run and may
// come from another archive. It runs only when requested by flag or
// confirmed interactively.
func (a *App) deleteOriginals(ctx context.Context, sum pipeline.Summary, requested, interactive bool, logger *log.Logger) error {
	var done []pipeline.Result
	for _, res := range sum.Succeeded() {
		if !res.Skipped {
			done = append(done, res)
		}
	}
	if len(done) == 0 {
		return nil
	}

	if !requested {
		if !interactive {
			return nil
		}
		ok, err := a.Prompts.Confirm(ctx, tui.ConfirmOptions{
			Title:       fmt.Sprintf("Delete the %d archives that were unpacked?", len(done)),
			Description: "Failed archives are always kept",
			Default:     false,
			Config:      tui.DefaultConfig(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	deleted := 0
	for _, res := range done {
		if err := os.Remove(res.Item.Path); err != nil {
			logger.Warn("failed to delete archive", "archive", res.Item.Name, "error", err)
			continue
		}
		deleted++
		logger.Debug("deleted archive", "archive", res.Item.Name)
	}
	logger.Info("deleted original archives", "count", deleted)
	return nil
}

// usageError prints err and maps it to the usage exit code.
func (a *App) usageError(cfg *config.Config, err error) error {
	a.printError(err)
	if a.verbose {
		a.renderIssue(cfg, err)
	}
	return &ExitError{Code: ExitUsage, Err: err}
}

// promptError maps an aborted prompt to the interrupted exit code.
func promptError(err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case errors.Is(err, tui.ErrCancelled):
		return &ExitError{Code: ExitInterrupted, Err: err}
	default:
		return &ExitError{Code: ExitUsage, Err: err}
	}
}

func backendNames(backends []extract.Backend) []string {
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name())
	}
	return names
}

// printPlan prints where each archive would go without touching the disk.
// Archives whose names cannot be sanitized, or collide with an earlier
// archive's name, make the run fail like a real one.
func printPlan(w io.Writer, items []pipeline.Item, outputDir string, format sanitize.Format, markerSuffix string) error {
	p := pipeline.New(outputDir, nil,
		pipeline.WithFormat(format),
		pipeline.WithMarkerSuffix(markerSuffix),
	)

	fmt.Fprintln(w, TitleStyle.Render("Dry run")+SubtitleStyle.Render(fmt.Sprintf(" - %d archives, nothing is extracted", len(items))))
	fmt.Fprintln(w)

	failed := 0
	claims := pipeline.NewClaims()
	for _, item := range items {
		_, artifact, marker, err := p.Plan(item)
		if err == nil {
			err = claims.Claim(item.Name, filepath.Base(artifact), filepath.Base(marker))
		}
		if err != nil {
			failed++
			fmt.Fprintf(w, "  %s %s  %s\n", ErrorStyle.Render("✗"), item.Name, ErrorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintf(w, "  %s %s\n      → %s\n      → %s\n", SuccessStyle.Render("✓"), item.Name, CmdStyle.Render(artifact), SubtitleStyle.Render(marker))
	}

	if failed > 0 {
		return &ExitError{Code: ExitItemsFailed, Err: fmt.Errorf("%d of %d archives have no usable output name", failed, len(items))}
	}
	return nil
}

// printSummary renders the end-of-batch tally.
func printSummary(w io.Writer, sum pipeline.Summary) {
	unpacked, skipped := 0, 0
	for _, res := range sum.Succeeded() {
		if res.Skipped {
			skipped++
		} else {
			unpacked++
		}
	}
	failed := sum.Failed()

	lines := []string{
		TitleStyle.Render("Summary"),
		fmt.Sprintf("%s %d unpacked", SuccessStyle.Render("✓"), unpacked),
	}
	if skipped > 0 {
		lines = append(lines, fmt.Sprintf("%s %d already unpacked", WarningStyle.Render("↷"), skipped))
	}
	if len(failed) > 0 {
		lines = append(lines, fmt.Sprintf("%s %d failed", ErrorStyle.Render("✗"), len(failed)))
		for _, res := range failed {
			line := fmt.Sprintf("    %s (%s)", res.Item.Name, res.Stage)
			if res.ScratchDir != "" {
				line += SubtitleStyle.Render(" partial output kept in " + res.ScratchDir)
			}
			lines = append(lines, line)
		}
	}
	if sum.Cancelled {
		lines = append(lines, fmt.Sprintf("%s %d not started (interrupted)", WarningStyle.Render("■"), sum.Pending))
	}

	fmt.Fprintln(w, summaryBoxStyle.Render(strings.Join(lines, "\n")))
}
