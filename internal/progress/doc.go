// SPDX-License-Identifier: MPL-2.0

// Package progress reports batch progress by observing pipeline transitions.
package progress
