// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
)

type (
	// Extractor tries an ordered list of backends until one succeeds.
	Extractor struct {
		backends []Backend
		opts     options
	}

	// Attempt records one backend invocation.
	Attempt struct {
		Backend string
		Err     error
		Elapsed time.Duration
	}

	// Outcome is the result of extracting one archive.
	Outcome struct {
		// Backend is the name of the backend that succeeded, empty on failure.
		Backend  string
		Attempts []Attempt
	}
)

// NewExtractor creates an Extractor over backends, highest priority first.
func NewExtractor(backends []Backend, opts ...Option) *Extractor {
	return &Extractor{
		backends: backends,
		opts:     newOptions(opts),
	}
}

// Backends returns the ranked backends.
func (e *Extractor) Backends() []Backend {
	return e.backends
}

// Succeeded reports whether some backend extracted the archive.
func (o Outcome) Succeeded() bool {
	return o.Backend != ""
}

// Err aggregates every failed attempt. It is nil on success and ErrNoBackend
// when there was nothing to try.
func (o Outcome) Err() error {
	if o.Succeeded() {
		return nil
	}
	if len(o.Attempts) == 0 {
		return ErrNoBackend
	}
	var errs *multierror.Error
	for _, a := range o.Attempts {
		errs = multierror.Append(errs, a.Err)
	}
	return errs.ErrorOrNil()
}

// Extract unpacks archivePath into destDir with the first backend that
// succeeds. destDir is emptied before every attempt after the first, so a
// success never mixes in a previous backend's partial output. After a total
// failure the last attempt's output is left in place for inspection.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) Outcome {
	var out Outcome
	for i, b := range e.backends {
		if err := ctx.Err(); err != nil {
			out.Attempts = append(out.Attempts, Attempt{Backend: b.Name(), Err: err})
			return out
		}
		if i > 0 {
			if err := resetDir(destDir); err != nil {
				out.Attempts = append(out.Attempts, Attempt{Backend: b.Name(), Err: fmt.Errorf("reset destination: %w", err)})
				return out
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.timeout)
		start := time.Now()
		err := b.Extract(attemptCtx, archivePath, destDir)
		elapsed := time.Since(start)
		if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", e.opts.timeout, err)
		}
		cancel()

		out.Attempts = append(out.Attempts, Attempt{Backend: b.Name(), Err: err, Elapsed: elapsed})
		if err == nil {
			out.Backend = b.Name()
			e.opts.logger.Debug("extracted", "archive", archivePath, "backend", b.Name(), "elapsed", elapsed)
			return out
		}
		e.opts.logger.Warn("extraction attempt failed", "archive", archivePath, "backend", b.Name(), "error", err)
	}
	return out
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
