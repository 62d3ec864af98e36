// Package errors provides structured startup and configuration errors
// with stable codes, fix suggestions, and terminal formatting. Request
// handling uses plain wrapped errors; this package is for the moments a
// human is reading the output, config loading and CLI startup.
package errors

import "fmt"

// Category classifies an error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryStartup Category = "startup"
	CategoryCLI     Category = "cli"
)

// AdminError is a structured error with a stable code and a suggestion
// for fixing it.
type AdminError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *AdminError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AdminError) Unwrap() error {
	return e.Wrapped
}

// WithDetail replaces the template detail.
func (e *AdminError) WithDetail(d string) *AdminError {
	e.Detail = d
	return e
}

// WithSuggestion replaces the template suggestion.
func (e *AdminError) WithSuggestion(s string) *AdminError {
	e.Suggestion = s
	return e
}

// Wrap attaches the underlying error.
func (e *AdminError) Wrap(err error) *AdminError {
	e.Wrapped = err
	return e
}

// New creates an error from a registered code. Unknown codes still
// produce a usable error so a stale call site never panics.
func New(code string) *AdminError {
	tmpl, ok := registry[code]
	if !ok {
		return &AdminError{
			Code:     code,
			Category: CategoryCLI,
			Message:  "unknown error",
		}
	}
	return &AdminError{
		Code:       code,
		Category:   tmpl.Category,
		Message:    tmpl.Message,
		Detail:     tmpl.Detail,
		Suggestion: tmpl.Suggestion,
	}
}
