// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/xblaunpack/xblaunpack/internal/sanitize"
)

// ErrNotDirectory is returned when a chosen path is not an existing directory.
var ErrNotDirectory = errors.New("not a directory")

type (
	// DirOptions configures ChooseDirectory.
	DirOptions struct {
		// Title is the prompt displayed above the chooser.
		Title string
		// Description provides additional context below the title.
		Description string
		// Start is the initial directory (default: current working directory).
		Start string
		// MustExist rejects paths that are not existing directories. The
		// output directory is created later, so it leaves this unset.
		MustExist bool
		// Config holds common prompt configuration.
		Config Config
	}

	// FormatOptions configures ChooseFormat.
	FormatOptions struct {
		// Title is the prompt displayed above the options.
		Title string
		// Default is the preselected format.
		Default sanitize.Format
		// Config holds common prompt configuration.
		Config Config
	}

	// ConfirmOptions configures Confirm.
	ConfirmOptions struct {
		// Title is the question to display.
		Title string
		// Description provides additional context below the title.
		Description string
		// Affirmative is the text for the affirmative option (default: "Yes").
		Affirmative string
		// Negative is the text for the negative option (default: "No").
		Negative string
		// Default is the preselected answer.
		Default bool
		// Config holds common prompt configuration.
		Config Config
	}
)

// ChooseDirectory asks the user for a directory. Interactive terminals get a
// file picker restricted to directories; accessible mode reads a typed path.
// The returned path is absolute.
func ChooseDirectory(ctx context.Context, opts DirOptions) (string, error) {
	start := opts.Start
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		start = wd
	}

	validate := func(s string) error { return validateDir(s, opts.MustExist) }

	var result string
	var field huh.Field
	if opts.Config.Accessible {
		field = huh.NewInput().
			Title(opts.Title).
			Description(opts.Description).
			Placeholder(start).
			Validate(validate).
			Value(&result)
	} else {
		field = huh.NewFilePicker().
			Title(opts.Title).
			Description(opts.Description).
			CurrentDirectory(start).
			DirAllowed(true).
			FileAllowed(false).
			ShowHidden(false).
			Picking(true).
			Validate(validate).
			Value(&result)
	}

	if err := runForm(ctx, opts.Config, field); err != nil {
		return "", err
	}

	result = strings.TrimSpace(result)
	if result == "" {
		result = start
	}
	abs, err := filepath.Abs(result)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", result, err)
	}
	return abs, nil
}

// validateDir accepts an empty answer (the start directory) or a path that is
// a directory, or does not exist yet when mustExist is false.
func validateDir(path string, mustExist bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist) && !mustExist:
		return nil
	default:
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
}

// ChooseFormat asks the user how spaces in output names are handled.
func ChooseFormat(ctx context.Context, opts FormatOptions) (sanitize.Format, error) {
	result := opts.Default
	if valid, _ := result.IsValid(); !valid {
		result = sanitize.FormatUnderscore
	}

	sel := huh.NewSelect[sanitize.Format]().
		Title(opts.Title).
		Options(formatOptions()...).
		Value(&result)

	if err := runForm(ctx, opts.Config, sel); err != nil {
		return "", err
	}
	return result, nil
}

// formatOptions labels every format with an example of its effect.
func formatOptions() []huh.Option[sanitize.Format] {
	formats := sanitize.Formats()
	options := make([]huh.Option[sanitize.Format], 0, len(formats))
	for _, f := range formats {
		options = append(options, huh.NewOption(fmt.Sprintf("%-13s %s", f, f.Example()), f))
	}
	return options
}

// Confirm asks a yes/no question.
func Confirm(ctx context.Context, opts ConfirmOptions) (bool, error) {
	affirmative := opts.Affirmative
	if affirmative == "" {
		affirmative = "Yes"
	}
	negative := opts.Negative
	if negative == "" {
		negative = "No"
	}

	result := opts.Default
	field := huh.NewConfirm().
		Title(opts.Title).
		Description(opts.Description).
		Affirmative(affirmative).
		Negative(negative).
		Value(&result)

	if err := runForm(ctx, opts.Config, field); err != nil {
		return false, err
	}
	return result, nil
}
