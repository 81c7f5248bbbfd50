// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xblaunpack/xblaunpack/internal/extract"
	"github.com/xblaunpack/xblaunpack/internal/pipeline"
	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDuration is the sentinel error wrapped by InvalidDurationError.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidMarkerSuffix is the sentinel error wrapped by InvalidMarkerSuffixError.
	ErrInvalidMarkerSuffix = errors.New("invalid marker suffix")
	// ErrInvalidCustomBackend is the sentinel error wrapped by InvalidCustomBackendError.
	ErrInvalidCustomBackend = errors.New("invalid custom backend")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidDurationError is returned when a timeout is not positive.
	InvalidDurationError struct {
		Field string
		Value time.Duration
	}

	// InvalidMarkerSuffixError is returned when the marker suffix is empty or
	// contains a path separator.
	InvalidMarkerSuffixError struct {
		Value string
	}

	// InvalidCustomBackendError is returned when a custom backend entry is
	// malformed or its name is taken.
	InvalidCustomBackendError struct {
		Name   string
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It collects field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Naming controls how archive names become output names.
		Naming NamingConfig `json:"naming" mapstructure:"naming"`
		// Extract configures backend resolution and extraction limits.
		Extract ExtractConfig `json:"extract" mapstructure:"extract"`
		// Output configures the produced files.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// NamingConfig controls output name sanitization.
	NamingConfig struct {
		// Format is the space replacement policy.
		Format sanitize.Format `json:"format" mapstructure:"format"`
	}

	// ExtractConfig configures the extraction backends.
	ExtractConfig struct {
		// ProbeTimeout bounds each backend availability check.
		ProbeTimeout time.Duration `json:"probe_timeout" mapstructure:"probe_timeout"`
		// Timeout bounds each extraction attempt.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// Order, when set, is the exact backend ranking by name.
		Order []string `json:"order" mapstructure:"order"`
		// Disable lists backend names to exclude.
		Disable []string `json:"disable" mapstructure:"disable"`
		// Custom defines additional command-line backends.
		Custom []CustomBackend `json:"custom" mapstructure:"custom"`
	}

	// CustomBackend is a user-defined command-line backend.
	CustomBackend struct {
		// Name identifies the backend in order, disable and logs.
		Name string `json:"name" mapstructure:"name"`
		// Command is a shell-word template using $ARCHIVE and $DEST.
		Command string `json:"command" mapstructure:"command"`
		// Probe is an optional availability check command.
		Probe string `json:"probe" mapstructure:"probe"`
	}

	// OutputConfig configures the produced files.
	OutputConfig struct {
		// MarkerSuffix is appended to the artifact name to form the marker name.
		MarkerSuffix string `json:"marker_suffix" mapstructure:"marker_suffix"`
		// Overwrite reprocesses items whose artifact and marker already exist.
		Overwrite bool `json:"overwrite" mapstructure:"overwrite"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Progress shows a progress bar when stdout is a terminal
		Progress bool `json:"progress" mapstructure:"progress"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Naming: NamingConfig{
			Format: sanitize.FormatUnderscore,
		},
		Extract: ExtractConfig{
			ProbeTimeout: extract.DefaultProbeTimeout,
			Timeout:      extract.DefaultTimeout,
		},
		Output: OutputConfig{
			MarkerSuffix: pipeline.DefaultMarkerSuffix,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Progress:    true,
		},
	}
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface.
func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid %s %s: must be positive", e.Field, e.Value)
}

// Unwrap returns ErrInvalidDuration for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// Error implements the error interface.
func (e *InvalidMarkerSuffixError) Error() string {
	return fmt.Sprintf("invalid marker suffix %q: must be non-empty and contain no path separator", e.Value)
}

// Unwrap returns ErrInvalidMarkerSuffix for errors.Is() compatibility.
func (e *InvalidMarkerSuffixError) Unwrap() error { return ErrInvalidMarkerSuffix }

// Error implements the error interface.
func (e *InvalidCustomBackendError) Error() string {
	return fmt.Sprintf("invalid custom backend %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidCustomBackend for errors.Is() compatibility.
func (e *InvalidCustomBackendError) Unwrap() error { return ErrInvalidCustomBackend }

// IsValid returns whether the ExtractConfig has valid fields. Backend names
// in Order and Disable are checked later against the resolved candidates.
func (c ExtractConfig) IsValid() (bool, []error) {
	var errs []error
	if c.ProbeTimeout <= 0 {
		errs = append(errs, &InvalidDurationError{Field: "extract.probe_timeout", Value: c.ProbeTimeout})
	}
	if c.Timeout <= 0 {
		errs = append(errs, &InvalidDurationError{Field: "extract.timeout", Value: c.Timeout})
	}

	builtin := map[string]bool{
		extract.NameUnrar:    true,
		extract.NameSevenZip: true,
		extract.NameUnzip:    true,
		extract.NameLibrary:  true,
	}
	seen := make(map[string]bool)
	for _, cb := range c.Custom {
		switch {
		case strings.TrimSpace(cb.Name) == "":
			errs = append(errs, &InvalidCustomBackendError{Name: cb.Name, Reason: "name is required"})
		case builtin[cb.Name]:
			errs = append(errs, &InvalidCustomBackendError{Name: cb.Name, Reason: "name is reserved for a built-in backend"})
		case seen[cb.Name]:
			errs = append(errs, &InvalidCustomBackendError{Name: cb.Name, Reason: "name is defined twice"})
		case strings.TrimSpace(cb.Command) == "":
			errs = append(errs, &InvalidCustomBackendError{Name: cb.Name, Reason: "command is required"})
		}
		seen[cb.Name] = true
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the OutputConfig has valid fields.
func (c OutputConfig) IsValid() (bool, []error) {
	if c.MarkerSuffix == "" || strings.ContainsAny(c.MarkerSuffix, `/\`) {
		return false, []error{&InvalidMarkerSuffixError{Value: c.MarkerSuffix}}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields.
// It delegates to each section's validation and collects every field error.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Naming.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Extract.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Output.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so
// errors.Is matches both the aggregate and each field sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
