// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	for _, cs := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if ok, errs := cs.IsValid(); !ok {
			t.Errorf("%s.IsValid() = false, %v", cs, errs)
		}
	}
	ok, errs := ColorScheme("neon").IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidColorScheme) {
		t.Errorf("IsValid(neon) = %v, %v", ok, errs)
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "bad format", modify: func(c *Config) { c.Naming.Format = "camel" }, want: sanitize.ErrInvalidFormat},
		{name: "zero probe timeout", modify: func(c *Config) { c.Extract.ProbeTimeout = 0 }, want: ErrInvalidDuration},
		{name: "negative timeout", modify: func(c *Config) { c.Extract.Timeout = -time.Second }, want: ErrInvalidDuration},
		{name: "empty marker suffix", modify: func(c *Config) { c.Output.MarkerSuffix = "" }, want: ErrInvalidMarkerSuffix},
		{name: "marker suffix with separator", modify: func(c *Config) { c.Output.MarkerSuffix = `x\y` }, want: ErrInvalidMarkerSuffix},
		{name: "bad color scheme", modify: func(c *Config) { c.UI.ColorScheme = "neon" }, want: ErrInvalidColorScheme},
		{
			name:   "custom shadows builtin",
			modify: func(c *Config) { c.Extract.Custom = []CustomBackend{{Name: "unrar", Command: "x"}} },
			want:   ErrInvalidCustomBackend,
		},
		{
			name: "custom defined twice",
			modify: func(c *Config) {
				c.Extract.Custom = []CustomBackend{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}}
			},
			want: ErrInvalidCustomBackend,
		},
		{
			name:   "custom without command",
			modify: func(c *Config) { c.Extract.Custom = []CustomBackend{{Name: "a", Command: " "}} },
			want:   ErrInvalidCustomBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(cfg)
			ok, errs := cfg.IsValid()
			if tt.want == nil {
				if !ok {
					t.Errorf("IsValid() = false, %v", errs)
				}
				return
			}
			if ok || len(errs) != 1 {
				t.Fatalf("IsValid() = %v, %v, want one aggregate error", ok, errs)
			}
			if !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", errs[0])
			}
			var cfgErr *InvalidConfigError
			if !errors.As(errs[0], &cfgErr) || !errors.Is(errors.Join(cfgErr.FieldErrors...), tt.want) {
				t.Errorf("field errors = %v, want %v", cfgErr.FieldErrors, tt.want)
			}
		})
	}
}
