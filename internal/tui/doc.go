// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive prompts used when xblaunpack is run
// without its positional arguments: a directory chooser, a naming format
// selector and a yes/no confirmation.
//
// Prompts are built on charmbracelet/huh. When stdin is not a terminal, or
// the ACCESSIBLE environment variable is set, they fall back to huh's
// line-based accessible mode and write to stderr so they never mix with
// data written to stdout.
package tui
