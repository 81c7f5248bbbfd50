// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

const (
	// ExitOK means every archive was unpacked (or was already complete).
	ExitOK = 0
	// ExitUsage covers flag, argument and configuration errors.
	ExitUsage = 1
	// ExitItemsFailed means the batch ran but at least one archive failed.
	ExitItemsFailed = 2
	// ExitNoBackend means no extraction backend is usable on this host.
	ExitNoBackend = 3
	// ExitInterrupted means the batch was cancelled by a signal.
	ExitInterrupted = 130
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
