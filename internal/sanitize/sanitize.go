// SPDX-License-Identifier: MPL-2.0

package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xblaunpack/xblaunpack/internal/platform"
)

// trimSet is stripped from both ends of every sanitized name.
const trimSet = ".-_ "

var (
	// ErrEmptyName is returned when nothing survives sanitization.
	ErrEmptyName = errors.New("sanitized name is empty")
	// ErrReservedName is returned when the sanitized name is a Windows device name.
	ErrReservedName = errors.New("sanitized name is a reserved device name")

	// archiveExtensions lists the supported archive suffixes, lower-case.
	archiveExtensions = []string{".rar", ".zip", ".7z"}

	// allowedPunct are the non-alphanumeric characters kept verbatim.
	allowedPunct = "-()[]{}"
)

// NameError reports why a filename could not be turned into a base name.
type NameError struct {
	Filename string
	Err      error
}

// Error implements the error interface.
func (e *NameError) Error() string {
	return fmt.Sprintf("sanitize %q: %v", e.Filename, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *NameError) Unwrap() error { return e.Err }

// ArchiveExtensions returns the supported archive suffixes.
func ArchiveExtensions() []string {
	out := make([]string, len(archiveExtensions))
	copy(out, archiveExtensions)
	return out
}

// IsArchive reports whether filename ends, case-insensitively, with a
// supported archive extension.
func IsArchive(filename string) bool {
	_, ok := archiveExt(filename)
	return ok
}

// StripArchiveExt removes a trailing supported archive extension, if any.
func StripArchiveExt(filename string) string {
	if ext, ok := archiveExt(filename); ok {
		return filename[:len(filename)-len(ext)]
	}
	return filename
}

func archiveExt(filename string) (string, bool) {
	for _, ext := range archiveExtensions {
		if len(filename) >= len(ext) && strings.EqualFold(filename[len(filename)-len(ext):], ext) {
			return ext, true
		}
	}
	return "", false
}

// Name maps an archive filename to a base name under format f.
//
// The returned name never contains path separators, control characters, an
// archive suffix, or two consecutive separator characters.
func Name(filename string, f Format) (string, error) {
	if ok, errs := f.IsValid(); !ok {
		return "", errs[0]
	}

	sep, _ := utf8.DecodeRuneInString(f.Replacement())
	keepSpaces := f == FormatKeepSpaces
	deleteDisallowed := keepSpaces || f == FormatRemoveSpaces

	var b strings.Builder
	last := rune(-1)
	emit := func(r rune) {
		// Collapse: a separator never follows another separator.
		if r == sep && last == sep {
			return
		}
		b.WriteRune(r)
		last = r
	}

	for _, r := range StripArchiveExt(filename) {
		switch {
		case r == ' ' && keepSpaces:
			emit(' ')
		case isAllowed(r):
			emit(r)
		case deleteDisallowed:
			// dropped
		default:
			emit(sep)
		}
	}

	name := strings.Trim(b.String(), trimSet)
	if name == "" {
		return "", &NameError{Filename: filename, Err: ErrEmptyName}
	}
	if platform.IsWindowsReservedName(name) {
		return "", &NameError{Filename: filename, Err: ErrReservedName}
	}
	return name, nil
}

func isAllowed(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r)
}
