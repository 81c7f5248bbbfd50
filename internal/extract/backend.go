// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// NameUnrar is the specialized RAR tool.
	NameUnrar = "unrar"
	// NameSevenZip is the general-purpose 7-Zip tool.
	NameSevenZip = "7z"
	// NameUnzip is the Info-ZIP unzip tool.
	NameUnzip = "unzip"
	// NameLibrary is the built-in multi-format fallback.
	NameLibrary = "archives"

	// DefaultProbeTimeout bounds each availability probe.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultTimeout bounds each extraction attempt.
	DefaultTimeout = 60 * time.Second

	// outputTailLines is how many trailing lines of tool output are kept in errors.
	outputTailLines = 5
	// outputTailBytes caps the kept tool output.
	outputTailBytes = 512
)

// ErrNoBackend is returned when no extraction backend is usable at all.
var ErrNoBackend = errors.New("no extraction backend available")

type (
	// Backend is one concrete way to unpack an archive.
	Backend interface {
		// Name identifies the backend in logs, config and reports.
		Name() string
		// Probe reports whether the backend is usable on this host.
		// It must honor ctx and have no side effects.
		Probe(ctx context.Context) error
		// Extract unpacks archivePath into destDir, which already exists.
		// A nil error means success.
		Extract(ctx context.Context, archivePath, destDir string) error
	}

	// BackendError describes one failed extraction attempt.
	BackendError struct {
		// Backend is the failing backend's name.
		Backend string
		// ExitCode is the tool's exit status, or -1 when it did not exit normally.
		ExitCode int
		// Output is the tail of the tool's captured stderr (or stdout).
		Output string
		// Err is the underlying error.
		Err error
	}

	// ConfigurationError is returned by Resolve when every candidate failed
	// its probe. It wraps ErrNoBackend.
	ConfigurationError struct {
		Probes []ProbeResult
	}

	// Option configures a Resolver or an Extractor.
	Option func(*options)

	options struct {
		logger       *log.Logger
		probeTimeout time.Duration
		timeout      time.Duration
	}
)

// Error implements the error interface.
func (e *BackendError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Backend)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, ": exit status %d", e.ExitCode)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Output)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Probes) == 0 {
		return ErrNoBackend.Error() + ": no candidates configured"
	}
	names := make([]string, 0, len(e.Probes))
	for _, p := range e.Probes {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%s: tried %s", ErrNoBackend, strings.Join(names, ", "))
}

// Unwrap returns ErrNoBackend for errors.Is() compatibility.
func (e *ConfigurationError) Unwrap() error { return ErrNoBackend }

// WithLogger sets the logger used for probe and attempt diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProbeTimeout bounds each availability probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

// WithTimeout bounds each extraction attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:       log.New(io.Discard),
		probeTimeout: DefaultProbeTimeout,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tail keeps the last few lines of tool output for error messages.
func tail(out string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	lines := strings.Split(out, "\n")
	if len(lines) > outputTailLines {
		lines = lines[len(lines)-outputTailLines:]
	}
	out = strings.Join(lines, " | ")
	if len(out) > outputTailBytes {
		out = "..." + out[len(out)-outputTailBytes:]
	}
	return out
}
