// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/xblaunpack/xblaunpack/internal/config"
	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/issue"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
	"github.com/xblaunpack/xblaunpack/internal/tui"
)

type (
	testApp struct {
		app    *App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}

	// fakePrompter answers prompts from fixed values and records the questions.
	fakePrompter struct {
		dirs    []string
		format  sanitize.Format
		confirm bool
		err     error
		asked   []string
	}
)

func (p *fakePrompter) ChooseDirectory(_ context.Context, opts tui.DirOptions) (string, error) {
	p.asked = append(p.asked, opts.Title)
	if p.err != nil {
		return "", p.err
	}
	dir := p.dirs[0]
	p.dirs = p.dirs[1:]
	return dir, nil
}

func (p *fakePrompter) ChooseFormat(_ context.Context, opts tui.FormatOptions) (sanitize.Format, error) {
	p.asked = append(p.asked, opts.Title)
	return p.format, p.err
}

func (p *fakePrompter) Confirm(_ context.Context, opts tui.ConfirmOptions) (bool, error) {
	p.asked = append(p.asked, opts.Title)
	return p.confirm, p.err
}

// newTestApp builds an App whose native tools are all missing from PATH, so
// only the built-in extractor is usable, and whose config directory is empty
// unless configDir is given.
func newTestApp(t *testing.T, configDir string, prompts Prompter) *testApp {
	t.Helper()

	if configDir == "" {
		configDir = t.TempDir()
	}
	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.app = NewApp(Dependencies{
		Prompts:   prompts,
		Stdout:    ta.stdout,
		Stderr:    ta.stderr,
		GOOS:      "linux",
		ConfigDir: configDir,
		CLIOptions: []extract.CLIOption{
			extract.WithLookPath(func(string) (string, error) {
				return "", &exec.Error{Name: "tool", Err: exec.ErrNotFound}
			}),
		},
	})
	return ta
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()

	root := NewRootCommand(ta.app)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(context.Background())
}

// exitCode returns the code an error would exit with.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestExitError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &ExitError{Code: ExitItemsFailed, Err: cause}
	if err.Error() != "boom" || !errors.Is(err, cause) {
		t.Errorf("ExitError = %v, want wrapped cause", err)
	}
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("plain = %q", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("Check the file").
		Wrap(plain).
		BuildError()
	got := formatErrorForDisplay(ae, false)
	if !strings.Contains(got, "load configuration") || !strings.Contains(got, "Check the file") {
		t.Errorf("actionable = %q", got)
	}
}

func TestGlamourStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme config.ColorScheme
		tty    bool
		want   string
	}{
		{config.ColorSchemeDark, true, "dark"},
		{config.ColorSchemeLight, true, "light"},
		{config.ColorSchemeAuto, true, "auto"},
		{config.ColorSchemeDark, false, "notty"},
	}
	for _, tt := range tests {
		if got := glamourStyle(tt.scheme, tt.tty); got != tt.want {
			t.Errorf("glamourStyle(%s, %v) = %q, want %q", tt.scheme, tt.tty, got, tt.want)
		}
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "", nil)
	if err := ta.run(t, "explode"); err == nil {
		t.Error("unknown command succeeded")
	}
}
