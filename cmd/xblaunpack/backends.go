// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/xblaunpack/xblaunpack/internal/config"
	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/issue"
)

// newBackendsCommand creates the `xblaunpack backends` command.
func newBackendsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Show extraction backends and whether they are usable",
		Long: `Probe every candidate extraction backend in rank order and report
which ones are usable on this host.

Candidates are the native tools (unrar, 7z and, except on Windows, unzip),
then custom backends from the config file, then the built-in extractor.
extract.order and extract.disable in the config file change the ranking.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackends(cmd.Context(), app)
		},
	}
}

func runBackends(ctx context.Context, app *App) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	candidates, err := app.candidates(cfg)
	if err != nil {
		return err
	}

	resolver := extract.NewResolver(
		extract.WithLogger(logger),
		extract.WithProbeTimeout(cfg.Extract.ProbeTimeout),
	)
	results := resolver.Probe(ctx, candidates)
	usable := printProbeResults(app.stdout, results, app.verbose)

	if usable == 0 {
		err := noBackendError(&extract.ConfigurationError{Probes: results})
		app.renderIssue(cfg, err)
		return &ExitError{Code: ExitNoBackend, Err: err}
	}
	return nil
}

// noBackendError links a resolution failure to its catalog entry.
func noBackendError(err error) error {
	return issue.NewErrorContext().
		WithOperation("find a usable extraction backend").
		WithSuggestion("Install unrar or 7-Zip, or remove \"archives\" from extract.disable").
		WithSuggestion("Run 'xblaunpack backends' to see why each candidate was rejected").
		WithIssue(issue.NoBackendAvailableId).
		Wrap(err).
		BuildError()
}

// printProbeResults lists the probe outcomes with the rank each usable
// backend will have and returns how many are usable. With verbose set the
// command line of each usable command-line backend is shown too.
func printProbeResults(w io.Writer, results []extract.ProbeResult, verbose bool) int {
	fmt.Fprintln(w, TitleStyle.Render("Extraction backends"))
	fmt.Fprintln(w)

	rank := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "  %s  %-10s %s\n", ErrorStyle.Render("✗"), res.Name, SubtitleStyle.Render(res.Err.Error()))
			continue
		}
		rank++
		fmt.Fprintf(w, "%d %s  %s %s\n", rank, SuccessStyle.Render("✓"), CmdStyle.Render(fmt.Sprintf("%-10s", res.Name)), SubtitleStyle.Render(res.Elapsed.Round(time.Millisecond).String()))
		if cli, ok := res.Backend.(*extract.CLIBackend); ok && verbose {
			fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render(commandLine(cli)))
		}
	}
	if len(results) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no candidates: every backend is disabled)"))
	}
	return rank
}

// commandLine shows how a command-line backend is invoked, with placeholders
// for the archive and destination.
func commandLine(b *extract.CLIBackend) string {
	return strings.Join(append([]string{b.Binary()}, b.Args("<archive>", "<dest>")...), " ")
}

// candidates builds the ranked candidate list from the config's order,
// disable and custom entries.
func (a *App) candidates(cfg *config.Config) ([]extract.Backend, error) {
	custom := make([]extract.Backend, 0, len(cfg.Extract.Custom))
	for _, cb := range cfg.Extract.Custom {
		b, err := extract.NewTemplateBackend(cb.Name, cb.Command, cb.Probe, a.cliOpts...)
		if err != nil {
			return nil, a.backendConfigError(cfg, err)
		}
		custom = append(custom, b)
	}

	candidates, err := extract.Candidates(extract.CandidateOptions{
		GOOS:       a.goos,
		Custom:     custom,
		Order:      cfg.Extract.Order,
		Disable:    cfg.Extract.Disable,
		CLIOptions: a.cliOpts,
	})
	if err != nil {
		return nil, a.backendConfigError(cfg, err)
	}
	return candidates, nil
}

func (a *App) backendConfigError(cfg *config.Config, err error) error {
	ae := issue.NewErrorContext().
		WithOperation("configure extraction backends").
		WithSuggestion("Run 'xblaunpack backends' with a valid config to list backend names").
		WithSuggestion("Check extract.order, extract.disable and extract.custom in the config file").
		WithIssue(issue.InvalidBackendConfigId).
		Wrap(err).
		BuildError()
	a.printError(ae)
	if a.verbose {
		a.renderIssue(cfg, ae)
	}
	return &ExitError{Code: ExitUsage, Err: ae}
}

// resolveBackends probes the candidates and returns the usable ones. When none
// is usable the NoBackendAvailable issue is rendered.
func (a *App) resolveBackends(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]extract.Backend, error) {
	candidates, err := a.candidates(cfg)
	if err != nil {
		return nil, err
	}

	resolver := extract.NewResolver(
		extract.WithLogger(logger),
		extract.WithProbeTimeout(cfg.Extract.ProbeTimeout),
	)
	usable, err := resolver.Resolve(ctx, candidates)
	if err != nil {
		logger.Error("no extraction backend available", "error", err)
		err = noBackendError(err)
		a.renderIssue(cfg, err)
		return nil, &ExitError{Code: ExitNoBackend, Err: err}
	}
	return usable, nil
}
