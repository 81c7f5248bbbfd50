// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xblaunpack/xblaunpack/internal/issue"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

// newSanitizeCommand creates the `xblaunpack sanitize` command.
func newSanitizeCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sanitize <filename>...",
		Short: "Preview the output name of archive filenames",
		Long: `Print the name each archive would be unpacked to.

The archive extension is removed and unsafe characters are replaced by
the format's separator (or dropped for keep-spaces and remove-spaces).
Names that end up empty or match a Windows device name are rejected.`,
		Example: `  xblaunpack sanitize "Game Name (USA).zip"
  xblaunpack sanitize --format dash *.rar`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSanitize(cmd.Context(), app, args, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "space handling: keep-spaces, underscore, dash or remove-spaces (default from config)")

	return cmd
}

func runSanitize(ctx context.Context, app *App, names []string, flagValue string) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	format, err := app.unpackFormat(ctx, cfg, flagValue, false)
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		out, err := sanitize.Name(name, format)
		if err != nil {
			failed++
			fmt.Fprintf(app.stdout, "%s %s  %s\n", ErrorStyle.Render("✗"), name, ErrorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintf(app.stdout, "%s %s → %s\n", SuccessStyle.Render("✓"), name, CmdStyle.Render(out))
	}

	if failed > 0 {
		err := issue.NewErrorContext().
			WithOperation("sanitize names").
			WithSuggestion("Rename the archive so it keeps at least one letter or digit").
			Wrap(fmt.Errorf("%d of %d names cannot be sanitized", failed, len(names))).
			BuildError()
		return &ExitError{Code: ExitUsage, Err: err}
	}
	return nil
}
