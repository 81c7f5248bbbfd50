// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing failure: the operation that could not
	// be completed, the path it was applied to, hints for the user, and an
	// optional catalog entry with longer guidance.
	//
	// Build one with ErrorContext:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("create output directory").
	//		WithResource(outputDir).
	//		WithSuggestion("Choose a directory you can write to").
	//		WithIssue(issue.OutputDirNotWritableId).
	//		Wrap(mkdirErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "list archives".
		Operation string
		// Resource is the directory, file or backend involved, if any.
		Resource string
		// Suggestions are short hints shown below the message.
		Suggestions []string
		// Cause is the underlying error.
		Cause error
		// Issue links a catalog entry; zero means none.
		Issue Id
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		ae ActionableError
	}
)

// NewErrorContext starts an empty ActionableError builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "cannot <operation>: <resource>: <cause>", omitting the
// parts that are unset.
func (e *ActionableError) Error() string {
	parts := []string{"cannot " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause so errors.Is and errors.As see through the error.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by one "hint:" line per suggestion.
// With verbose set it also lists each distinct message in the cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	for _, s := range e.Suggestions {
		b.WriteString("\n  hint: ")
		b.WriteString(s)
	}

	if verbose {
		if chain := causeChain(e.Cause); len(chain) > 0 {
			b.WriteString("\n\ncaused by:")
			for _, msg := range chain {
				fmt.Fprintf(&b, "\n  - %s", msg)
			}
		}
	}
	return b.String()
}

// CatalogIssue returns the linked catalog entry, or nil.
func (e *ActionableError) CatalogIssue() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// causeChain lists the messages along the Unwrap chain, skipping a message
// identical to the previous one.
func causeChain(err error) []string {
	var chain []string
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		if len(chain) > 0 && chain[len(chain)-1] == msg {
			continue
		}
		chain = append(chain, msg)
	}
	return chain
}

// WithOperation sets the operation, a verb phrase such as "write report".
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.ae.Operation = op
	return c
}

// WithResource sets the path or name the operation was applied to.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.ae.Resource = res
	return c
}

// WithSuggestion appends a hint. Call it once per hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.ae.Suggestions = append(c.ae.Suggestions, sug)
	return c
}

// WithIssue links a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.ae.Issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.ae.Cause = err
	return c
}

// Build returns the accumulated error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.ae.Operation == "" {
		return nil
	}
	ae := c.ae
	ae.Suggestions = append([]string(nil), c.ae.Suggestions...)
	return &ae
}

// BuildError is Build returning the error interface, so a missing operation
// yields a true nil error rather than a typed nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
