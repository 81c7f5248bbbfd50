// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-retry"
)

const (
	cleanupAttempts = 4
	cleanupBackoff  = 100 * time.Millisecond
)

// Relocate moves src to dst. When a rename is not possible (for example
// across filesystems) it copies src to dst atomically and then removes src.
// Only when both strategies fail is an error returned, aggregating both causes.
func Relocate(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	if err := copyFileAtomic(src, dst); err != nil {
		var errs *multierror.Error
		errs = multierror.Append(errs, fmt.Errorf("move: %w", renameErr), fmt.Errorf("copy: %w", err))
		return errs.ErrorOrNil()
	}
	// The source lives in the scratch directory, which cleanup removes anyway.
	_ = os.Remove(src)
	return nil
}

// WriteMarker atomically writes a marker file whose content is name.
func WriteMarker(path, name string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, name)
		return err
	}, 0o644)
}

// Cleanup removes dir and everything below it. Removing a directory that does
// not exist succeeds, so repeated calls are safe. Transient failures, such as
// a file still locked by an exiting extraction tool, are retried briefly.
func Cleanup(ctx context.Context, dir string) error {
	backoff, err := retry.NewExponential(cleanupBackoff)
	if err != nil {
		return err
	}
	backoff = retry.WithMaxRetries(cleanupAttempts-1, backoff)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := os.RemoveAll(dir); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func copyFileAtomic(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}, info.Mode().Perm())
}

// writeFileAtomic writes to a temporary file next to dest and renames it into
// place, so dest is either absent, the old content, or the complete new one.
func writeFileAtomic(dest string, write func(io.Writer) error, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".xblaunpack-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := write(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
