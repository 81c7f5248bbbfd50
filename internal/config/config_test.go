// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/xblaunpack/xblaunpack/internal/issue"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
	"github.com/xblaunpack/xblaunpack/internal/testutil"
)

func loadFrom(t *testing.T, content string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, path, content)
	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	return cfg, err
}

func TestLoad_Defaults(t *testing.T) { //nolint:paralleltest // reads process environment
	dir := t.TempDir()
	defer testutil.MustChdir(t, dir)()

	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: filepath.Join(dir, "cfg")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	want := DefaultConfig()
	if cfg.Naming.Format != want.Naming.Format ||
		cfg.Extract.ProbeTimeout != 5*time.Second ||
		cfg.Extract.Timeout != time.Minute ||
		cfg.Output.MarkerSuffix != ".xbox360" ||
		cfg.Output.Overwrite ||
		cfg.UI.ColorScheme != ColorSchemeAuto ||
		!cfg.UI.Progress {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	cfg, err := loadFrom(t, `
naming: format: "dash"
extract: {
	probe_timeout: "2s"
	timeout:       "1m30s"
	order: ["7z", "archives"]
	disable: ["unzip"]
	custom: [{name: "bsdtar", command: "bsdtar -xf \"$ARCHIVE\" -C \"$DEST\"", probe: "bsdtar --version"}]
}
output: {
	marker_suffix: ".x360"
	overwrite:     true
}
ui: progress: false
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Naming.Format != sanitize.FormatDash {
		t.Errorf("Format = %q, want dash", cfg.Naming.Format)
	}
	if cfg.Extract.ProbeTimeout != 2*time.Second || cfg.Extract.Timeout != 90*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.Extract.ProbeTimeout, cfg.Extract.Timeout)
	}
	if !slices.Equal(cfg.Extract.Order, []string{"7z", "archives"}) || !slices.Equal(cfg.Extract.Disable, []string{"unzip"}) {
		t.Errorf("order/disable = %v/%v", cfg.Extract.Order, cfg.Extract.Disable)
	}
	if len(cfg.Extract.Custom) != 1 || cfg.Extract.Custom[0].Probe != "bsdtar --version" {
		t.Errorf("custom = %+v", cfg.Extract.Custom)
	}
	if cfg.Output.MarkerSuffix != ".x360" || !cfg.Output.Overwrite {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.UI.Progress || cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ui = %+v, want progress off and default color scheme", cfg.UI)
	}
}

func TestLoad_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown format", content: `naming: format: "camel"`, want: "naming.format"},
		{name: "unknown field", content: `naming: style: "dash"`, want: "style"},
		{name: "bad duration", content: `extract: timeout: "soon"`, want: "extract.timeout"},
		{name: "wrong type", content: `output: overwrite: "yes"`, want: "output.overwrite"},
		{name: "custom without command", content: `extract: custom: [{name: "x"}]`, want: "command"},
		{name: "suffix with separator", content: `output: marker_suffix: "a/b"`, want: "marker_suffix"},
		{name: "syntax error", content: `naming: {`, want: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadFrom(t, tt.content)
			if err == nil {
				t.Fatal("Load() error = nil, want schema error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Load() error = %T, want ActionableError linked to ConfigLoadFailed", err)
			}
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Parallel()

	_, err := loadFrom(t, `
extract: {
	timeout: "0s"
	custom: [{name: "7z", command: "7zz x \"$ARCHIVE\" -o\"$DEST\""}]
}
`)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, ErrInvalidDuration) || !errors.Is(err, ErrInvalidCustomBackend) {
		t.Errorf("Load() error = %v, want duration and custom backend errors", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want not found", err)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) { //nolint:paralleltest // mutates process environment
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `naming: format: "dash"`)
	t.Setenv("XBLAUNPACK_NAMING_FORMAT", "remove-spaces")
	t.Setenv("XBLAUNPACK_EXTRACT_TIMEOUT", "2m")
	t.Setenv("XBLAUNPACK_EXTRACT_DISABLE", "unrar,unzip")
	t.Setenv("XBLAUNPACK_OUTPUT_OVERWRITE", "true")

	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.Naming.Format != sanitize.FormatRemoveSpaces {
		t.Errorf("Format = %q, want env override", cfg.Naming.Format)
	}
	if cfg.Extract.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %s, want 2m", cfg.Extract.Timeout)
	}
	if !slices.Equal(cfg.Extract.Disable, []string{"unrar", "unzip"}) {
		t.Errorf("Disable = %v", cfg.Extract.Disable)
	}
	if !cfg.Output.Overwrite {
		t.Error("Overwrite = false, want env override")
	}
}

func TestLoad_LocalFallback(t *testing.T) { //nolint:paralleltest // changes working directory
	dir := t.TempDir()
	defer testutil.MustChdir(t, dir)()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `ui: verbose: true`)

	cfg, path, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: filepath.Join(dir, "empty")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "config.cue" || !cfg.UI.Verbose {
		t.Errorf("path = %q, verbose = %v, want local file", path, cfg.UI.Verbose)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "xblaunpack")
	path, err := CreateDefaultConfig(dir, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	// The generated file must load back to the defaults.
	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, testutil.MustReadFile(t, path))
	}
	if cfg.Naming.Format != sanitize.FormatUnderscore || cfg.Extract.Timeout != time.Minute {
		t.Errorf("reloaded config = %+v", cfg)
	}

	if _, err := CreateDefaultConfig(dir, false); !errors.Is(err, ErrConfigFileExists) {
		t.Errorf("second CreateDefaultConfig() error = %v, want ErrConfigFileExists", err)
	}
	if _, err := CreateDefaultConfig(dir, true); err != nil {
		t.Errorf("forced CreateDefaultConfig() error = %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Naming.Format = sanitize.FormatKeepSpaces
	cfg.Extract.Order = []string{"archives"}
	cfg.Extract.Disable = []string{"unrar"}
	cfg.Extract.Custom = []CustomBackend{{Name: "bsdtar", Command: `bsdtar -xf "$ARCHIVE" -C "$DEST"`}}
	cfg.UI.ColorScheme = ColorSchemeDark

	loaded, err := loadFrom(t, GenerateCUE(cfg))
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v", err)
	}
	if loaded.Naming.Format != cfg.Naming.Format ||
		!slices.Equal(loaded.Extract.Order, cfg.Extract.Order) ||
		len(loaded.Extract.Custom) != 1 ||
		loaded.Extract.Custom[0].Command != cfg.Extract.Custom[0].Command ||
		loaded.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("round trip = %+v", loaded)
	}
}

func TestConfigDir_EnvOverride(t *testing.T) { //nolint:paralleltest // t.Setenv
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Errorf("ConfigDir() = %q, %v, want %q", got, err, dir)
	}

	path, err := DefaultPath("")
	if err != nil || path != filepath.Join(dir, "config.cue") {
		t.Errorf("DefaultPath() = %q, %v", path, err)
	}
}
