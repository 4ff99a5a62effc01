package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeOrdering            = "ORDERING_ERROR"
	ErrCodeDuplicateParameter  = "DUPLICATE_PARAMETER"
	ErrCodeInvalidObjective    = "INVALID_OBJECTIVE"
	ErrCodeUnexpectedInput     = "UNEXPECTED_INPUT"
	ErrCodeSessionTerminated   = "SESSION_TERMINATED"
	ErrCodeSessionNotCompleted = "SESSION_NOT_COMPLETED"
	ErrCodeMissingParameter    = "MISSING_PARAMETER"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeExecution           = "EXECUTION_ERROR"
	ErrCodeTimeout             = "TIMEOUT_ERROR"
	ErrCodeSurface             = "SURFACE_ERROR"
	ErrCodeProposer            = "PROPOSER_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeStore               = "STORE_ERROR"
)

// AutomationError is the structured error type for all mapping, planning,
// and execution operations.
type AutomationError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AutomationError) Unwrap() error {
	return e.Cause
}

// NewError creates a new AutomationError.
func NewError(code, message string) *AutomationError {
	return &AutomationError{Code: code, Message: message}
}

// NewErrorf creates a new AutomationError with a formatted message.
func NewErrorf(code, format string, args ...any) *AutomationError {
	return &AutomationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *AutomationError) WithCause(err error) *AutomationError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *AutomationError) WithDetails(details map[string]any) *AutomationError {
	e.Details = details
	return e
}

// IsCode reports whether err is an AutomationError with the given code.
func IsCode(err error, code string) bool {
	var ae *AutomationError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// ErrorCode extracts the code from an AutomationError, or "" for other errors.
func ErrorCode(err error) string {
	var ae *AutomationError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
