// Package errors provides structured error types for the launch reconciler.
//
// Every failure in the application carries a category and a retryable flag.
// The categories follow the reconciler's error taxonomy:
//   - validation: an operator-supplied value is outside its domain
//   - lookup: a referenced entity is missing (device, desired-state record,
//     actual-state snapshot)
//   - apply: an adapter call against AWS failed
//   - state: the desired-state source could not be read or parsed
//   - config: application configuration is invalid
//   - internal: everything else
//
// All errors are scoped to a single source server unless stated otherwise;
// the run-level result reflects per-server success and failure rather than
// aborting on the first error.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies an error for programmatic handling.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryLookup     Category = "lookup"
	CategoryApply      Category = "apply"
	CategoryState      Category = "state"
	CategoryConfig     Category = "config"
	CategoryInternal   Category = "internal"
)

// AppError is the interface implemented by all structured errors in the
// application.
type AppError interface {
	error
	// Category returns the error's classification.
	Category() Category
	// Unwrap returns the underlying cause.
	Unwrap() error
	// IsRetryable reports whether the failed operation can be retried.
	IsRetryable() bool
}

// BaseError provides the common error behavior. Domain-specific error types
// embed it.
type BaseError struct {
	category  Category
	message   string
	cause     error
	retryable bool
}

// New creates a BaseError with the given category and message.
func New(category Category, message string) *BaseError {
	return &BaseError{category: category, message: message}
}

// Newf creates a BaseError with a formatted message.
func Newf(category Category, format string, args ...any) *BaseError {
	return &BaseError{category: category, message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Category returns the error category.
func (e *BaseError) Category() Category {
	return e.category
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// IsRetryable reports whether the operation can be retried.
func (e *BaseError) IsRetryable() bool {
	return e.retryable
}

// WithCause sets the underlying cause and returns the error.
func (e *BaseError) WithCause(cause error) *BaseError {
	e.cause = cause
	return e
}

// WithRetryable marks the error retryable or not and returns it.
func (e *BaseError) WithRetryable(retryable bool) *BaseError {
	e.retryable = retryable
	return e
}

// Wrap wraps an error with a category and additional context.
func Wrap(err error, category Category, message string) *BaseError {
	return &BaseError{category: category, message: message, cause: err}
}

// Wrapf wraps an error with a category and a formatted message.
func Wrapf(err error, category Category, format string, args ...any) *BaseError {
	return &BaseError{
		category: category,
		message:  fmt.Sprintf(format, args...),
		cause:    err,
	}
}

// IsRetryable reports whether any error in the chain is retryable.
func IsRetryable(err error) bool {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return false
}

// GetCategory returns the category of err if it is an AppError.
func GetCategory(err error) (Category, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Category(), true
	}
	return "", false
}

// HasCategory reports whether err carries the given category.
func HasCategory(err error, category Category) bool {
	got, ok := GetCategory(err)
	return ok && got == category
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Sentinel errors for common conditions.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = New(CategoryLookup, "not found")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = New(CategoryConfig, "invalid input")

	// ErrCanceled indicates an operation was canceled.
	ErrCanceled = New(CategoryInternal, "operation canceled")
)
