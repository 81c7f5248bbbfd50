// SPDX-License-Identifier: MPL-2.0

// Package sanitize derives flat, filesystem-safe base names from archive
// filenames.
//
// Name is a pure function of its inputs: the archive suffix is stripped,
// spaces are handled according to the Format, every run of characters outside
// the allow-set (letters, digits, "-", "(", ")", "[", "]", "{", "}" and, for
// FormatKeepSpaces only, the space) is replaced, repeated separators are
// collapsed, and ".-_ " is trimmed from both ends. An empty result or a
// Windows device name is reported as an error instead of being returned.
package sanitize
