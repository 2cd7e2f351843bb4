package errors

import (
	"errors"
	"fmt"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeInvalid      Code = "invalid"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"

	// Wizard taxonomy. All of these are recoverable at the stage boundary.
	CodeValidation   Code = "validation"
	CodeAuthRequired Code = "auth_required"
	CodeGeneration   Code = "generation_failed"
	CodePersistence  Code = "persistence_failed"
	CodeStepLocked   Code = "step_locked"
)

// AppError is a structured error type that carries a code, message, and optional metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// Retryable reports whether the user can retry the failed action as-is.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeGeneration, CodePersistence, CodeUnavailable, CodeConflict:
		return true
	}
	return false
}

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Validation reports missing or malformed user input.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// AuthRequired reports that an action needs an authenticated identity.
func AuthRequired() *AppError {
	return New(CodeAuthRequired, "you must be signed in to continue")
}

// Generation wraps a failed or schema-nonconformant generation call.
func Generation(err error, message string) *AppError {
	return Wrap(err, CodeGeneration, message)
}

// Persistence wraps a failed store call.
func Persistence(err error, message string) *AppError {
	return Wrap(err, CodePersistence, message)
}

// StepLocked reports navigation to a step whose prerequisites are missing.
func StepLocked(message string) *AppError {
	return New(CodeStepLocked, message)
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}
