// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// waitDelay bounds how long Extract waits for output pipes after the tool
// was killed, so a grandchild holding the pipe open cannot stall the batch.
const waitDelay = 2 * time.Second

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves a command name to an executable path.
	LookPathFunc func(file string) (string, error)

	// ArgsFunc builds a tool's argument list for one extraction.
	ArgsFunc func(archivePath, destDir string) []string

	// CLIOption configures a CLIBackend.
	CLIOption func(*CLIBackend)

	// CLIBackend runs an external command-line tool. The tool succeeds iff it
	// exits with status zero. Its output is captured, never streamed.
	CLIBackend struct {
		name   string
		binary string
		// probeArgs == nil means the probe only checks PATH.
		probeArgs   []string
		args        ArgsFunc
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
	}
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) CLIOption {
	return func(b *CLIBackend) {
		b.execCommand = fn
	}
}

// WithLookPath sets a custom PATH lookup for testing.
func WithLookPath(fn LookPathFunc) CLIOption {
	return func(b *CLIBackend) {
		b.lookPath = fn
	}
}

// NewCLIBackend creates a backend for an arbitrary tool.
func NewCLIBackend(name, binary string, probeArgs []string, args ArgsFunc, opts ...CLIOption) *CLIBackend {
	b := &CLIBackend{
		name:        name,
		binary:      binary,
		probeArgs:   probeArgs,
		args:        args,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewUnrarBackend creates the unrar backend. unrar needs a trailing
// separator to treat the destination as a directory.
func NewUnrarBackend(opts ...CLIOption) *CLIBackend {
	return NewCLIBackend(NameUnrar, "unrar", []string{}, func(archivePath, destDir string) []string {
		return []string{"x", "-o-", "-y", archivePath, withTrailingSeparator(destDir)}
	}, opts...)
}

// NewSevenZipBackend creates the 7-Zip backend.
func NewSevenZipBackend(opts ...CLIOption) *CLIBackend {
	return NewCLIBackend(NameSevenZip, "7z", []string{"i"}, func(archivePath, destDir string) []string {
		return []string{"x", "-y", "-o" + destDir, archivePath}
	}, opts...)
}

// NewUnzipBackend creates the Info-ZIP unzip backend.
func NewUnzipBackend(opts ...CLIOption) *CLIBackend {
	return NewCLIBackend(NameUnzip, "unzip", []string{"-v"}, func(archivePath, destDir string) []string {
		return []string{"-q", archivePath, "-d", destDir}
	}, opts...)
}

// NewTemplateBackend creates a backend from a shell-word command template.
// $ARCHIVE and $DEST are expanded per extraction; quote them ("$ARCHIVE")
// so paths with spaces stay a single argument. Other variables come from the
// environment. probe is an optional template run without ARCHIVE/DEST; when
// empty, only the command's presence in PATH is checked.
func NewTemplateBackend(name, command, probe string, opts ...CLIOption) (*CLIBackend, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("custom backend: name is required")
	}

	fields, err := expandTemplate(command, "ARCHIVE", "DEST")
	if err != nil {
		return nil, fmt.Errorf("custom backend %s: command: %w", name, err)
	}
	if !strings.Contains(command, "ARCHIVE") || !strings.Contains(command, "DEST") {
		return nil, fmt.Errorf("custom backend %s: command must reference $ARCHIVE and $DEST", name)
	}

	var probeArgs []string
	if strings.TrimSpace(probe) != "" {
		probeFields, err := expandTemplate(probe, "", "")
		if err != nil {
			return nil, fmt.Errorf("custom backend %s: probe: %w", name, err)
		}
		if probeFields[0] != fields[0] {
			return nil, fmt.Errorf("custom backend %s: probe must run %q", name, fields[0])
		}
		probeArgs = probeFields[1:]
		if probeArgs == nil {
			probeArgs = []string{}
		}
	}

	args := func(archivePath, destDir string) []string {
		// The template parsed once already; only the variable values differ.
		expanded, err := expandTemplate(command, archivePath, destDir)
		if err != nil {
			return nil
		}
		return expanded[1:]
	}

	return NewCLIBackend(name, fields[0], probeArgs, args, opts...), nil
}

// expandTemplate splits tmpl into shell words, substituting ARCHIVE and DEST.
func expandTemplate(tmpl, archivePath, destDir string) ([]string, error) {
	fields, err := shell.Fields(tmpl, func(name string) string {
		switch name {
		case "ARCHIVE":
			return archivePath
		case "DEST":
			return destDir
		default:
			return os.Getenv(name)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.New("empty command")
	}
	return fields, nil
}

// Name returns the backend name.
func (b *CLIBackend) Name() string {
	return b.name
}

// Binary returns the executable name or path.
func (b *CLIBackend) Binary() string {
	return b.binary
}

// Args returns the argument list used to extract archivePath into destDir.
func (b *CLIBackend) Args(archivePath, destDir string) []string {
	return b.args(archivePath, destDir)
}

// Probe checks that the tool is in PATH and, when the backend has probe
// arguments, that running it with them exits zero. Output is discarded.
func (b *CLIBackend) Probe(ctx context.Context) error {
	if _, err := b.lookPath(b.binary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", b.binary, err)
	}
	if b.probeArgs == nil {
		return nil
	}

	cmd := b.execCommand(ctx, b.binary, b.probeArgs...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("probe %s: %w", b.binary, ctxErr)
		}
		return fmt.Errorf("probe %s: %w", b.binary, err)
	}
	return nil
}

// Extract runs the tool once. Any non-zero exit, start failure, timeout or
// cancellation is returned as a *BackendError carrying the tool's output.
func (b *CLIBackend) Extract(ctx context.Context, archivePath, destDir string) error {
	args := b.args(archivePath, destDir)
	if args == nil {
		return &BackendError{Backend: b.name, ExitCode: -1, Err: errors.New("could not build arguments")}
	}

	var stdout, stderr bytes.Buffer
	cmd := b.execCommand(ctx, b.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return nil
	}

	be := &BackendError{Backend: b.name, ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		be.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Killed by us; the exit status is meaningless.
		be.ExitCode = -1
		be.Err = ctxErr
	}
	if out := tail(stderr.String()); out != "" {
		be.Output = out
	} else {
		be.Output = tail(stdout.String())
	}
	return be
}

func withTrailingSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
