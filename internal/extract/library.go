// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// LibraryBackend unpacks archives in-process with github.com/mholt/archives.
// It is always available and ranks last. It succeeds iff every entry was
// written without error.
type LibraryBackend struct{}

// NewLibraryBackend creates the built-in fallback backend.
func NewLibraryBackend() *LibraryBackend {
	return &LibraryBackend{}
}

// Name returns the backend name.
func (b *LibraryBackend) Name() string {
	return NameLibrary
}

// Probe always succeeds: the library is compiled in.
func (b *LibraryBackend) Probe(ctx context.Context) error {
	return ctx.Err()
}

// Extract identifies the archive format from its name and header and writes
// every regular file and directory below destDir. Symlinks and special files
// are skipped. Cancellation is checked between entries.
func (b *LibraryBackend) Extract(ctx context.Context, archivePath, destDir string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return &BackendError{Backend: NameLibrary, ExitCode: -1, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &BackendError{Backend: NameLibrary, ExitCode: -1, Err: closeErr}
		}
	}()

	format, stream, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return &BackendError{Backend: NameLibrary, ExitCode: -1, Err: fmt.Errorf("identify format: %w", err)}
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return &BackendError{Backend: NameLibrary, ExitCode: -1, Err: fmt.Errorf("format %T cannot be extracted", format)}
	}

	handler := func(ctx context.Context, entry archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeEntry(destDir, entry)
	}
	if err := extractor.Extract(ctx, stream, handler); err != nil {
		return &BackendError{Backend: NameLibrary, ExitCode: -1, Err: err}
	}
	return nil
}

func writeEntry(destDir string, entry archives.FileInfo) error {
	rel := filepath.FromSlash(entry.NameInArchive)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, entry.NameInArchive)
	}
	target := filepath.Join(destDir, rel)

	if entry.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if !entry.Mode().IsRegular() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return copyEntry(target, entry)
}

func copyEntry(target string, entry archives.FileInfo) (err error) {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.NameInArchive, err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	perm := entry.Mode().Perm() | 0o600
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
