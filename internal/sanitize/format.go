// SPDX-License-Identifier: MPL-2.0

package sanitize

import (
	"errors"
	"fmt"
)

const (
	// FormatKeepSpaces keeps spaces and deletes every other disallowed character.
	FormatKeepSpaces Format = "keep-spaces"
	// FormatUnderscore replaces spaces and disallowed characters with "_".
	FormatUnderscore Format = "underscore"
	// FormatDash replaces spaces and disallowed characters with "-".
	FormatDash Format = "dash"
	// FormatRemoveSpaces deletes spaces and disallowed characters.
	FormatRemoveSpaces Format = "remove-spaces"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid filename format")

type (
	// Format is the filename-formatting policy applied to archive names.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}
)

// Formats returns every supported format in menu order.
func Formats() []Format {
	return []Format{FormatKeepSpaces, FormatUnderscore, FormatDash, FormatRemoveSpaces}
}

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// IsValid returns whether the Format is one of the defined policies,
// and a list of validation errors if it is not.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatKeepSpaces, FormatUnderscore, FormatDash, FormatRemoveSpaces:
		return true, nil
	default:
		return false, []error{&InvalidFormatError{Value: f}}
	}
}

// Replacement returns the string substituted for spaces and disallowed
// characters. It is empty for FormatRemoveSpaces. For FormatKeepSpaces it is
// a single space, which only matters when collapsing repeated separators.
func (f Format) Replacement() string {
	switch f {
	case FormatKeepSpaces:
		return " "
	case FormatDash:
		return "-"
	case FormatRemoveSpaces:
		return ""
	default:
		return "_"
	}
}

// Example renders "Game Name" under the format, for menus and help text.
func (f Format) Example() string {
	switch f {
	case FormatKeepSpaces:
		return "Game Name"
	case FormatDash:
		return "Game-Name"
	case FormatRemoveSpaces:
		return "GameName"
	default:
		return "Game_Name"
	}
}

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid filename format %q (valid: keep-spaces, underscore, dash, remove-spaces)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }
