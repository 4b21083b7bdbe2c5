// Package errors provides error types and error codes for the pathmeta
// package. This is a leaf package with no internal dependencies, designed to
// be imported by the core package and every store implementation without
// causing circular imports.
//
// Import graph: errors <- pathmeta <- store implementations
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrInvalidPath indicates a malformed input path or an irreconcilable
	// scheme conflict during normalization. Never retried.
	ErrInvalidPath ErrorCode = iota + 1

	// ErrNotInitialized indicates an operation was invoked before Initialize
	// or after Close. This is a programming error, surfaced immediately.
	ErrNotInitialized

	// ErrBackingStore indicates an underlying durable-store call failed
	// (I/O, timeout, throttling). The failed mutation was not applied.
	ErrBackingStore

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument

	// ErrNotSupported indicates the operation is not supported by this
	// store implementation.
	ErrNotSupported
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrNotInitialized:
		return "NotInitialized"
	case ErrBackingStore:
		return "BackingStoreFailure"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotSupported:
		return "NotSupported"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// StoreError represents a metadata store error with an error code.
type StoreError struct {
	Code    ErrorCode
	Message string
	Path    string

	// Cause is the underlying error for ErrBackingStore failures, if any.
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (path: %s): %v", e.Code, e.Message, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path: %s)", e.Code, e.Message, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause to errors.Is/As chains.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err is (or wraps) a StoreError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// NewInvalidPathError creates an InvalidPath error.
func NewInvalidPathError(path, reason string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidPath,
		Message: reason,
		Path:    path,
	}
}

// NewNotInitializedError creates a NotInitialized error.
func NewNotInitializedError(state string) *StoreError {
	return &StoreError{
		Code:    ErrNotInitialized,
		Message: fmt.Sprintf("store is %s", state),
	}
}

// NewBackingStoreError creates a BackingStoreFailure error wrapping cause.
func NewBackingStoreError(op string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrBackingStore,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
	}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(message string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}
