// Package errors provides typed error definitions for flotilla.
// This package consolidates error handling and provides structured error types
// that can be used for better error classification and handling.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Configuration errors
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCatalogNotFound  ErrorCode = "CATALOG_NOT_FOUND"
	ErrCatalogParse     ErrorCode = "CATALOG_PARSE"

	// Manifest / registry errors
	ErrValidation         ErrorCode = "VALIDATION"
	ErrServiceNotFound    ErrorCode = "SERVICE_NOT_FOUND"
	ErrCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// Lifecycle errors
	ErrSupervisor         ErrorCode = "SUPERVISOR"
	ErrConvergenceTimeout ErrorCode = "CONVERGENCE_TIMEOUT"
	ErrStartFailed        ErrorCode = "SERVICE_START_FAILED"
	ErrStopFailed         ErrorCode = "SERVICE_STOP_FAILED"
	ErrDependencyFailed   ErrorCode = "SERVICE_DEPENDENCY_FAILED"

	// Database errors
	ErrDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// Internal errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrTimeout      ErrorCode = "TIMEOUT"
	ErrCancelled    ErrorCode = "CANCELLED"
	ErrShuttingDown ErrorCode = "SHUTTING_DOWN"
)

// FlotillaError represents a structured error with additional context
type FlotillaError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *FlotillaError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *FlotillaError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *FlotillaError) WithContext(key string, value interface{}) *FlotillaError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *FlotillaError) WithCause(cause error) *FlotillaError {
	e.Cause = cause
	return e
}

// GetHTTPStatus returns the appropriate HTTP status code for this error
func (e *FlotillaError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}

	switch e.Code {
	case ErrConfigNotFound, ErrCatalogNotFound, ErrServiceNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrConfigValidation, ErrInvalidInput:
		return http.StatusBadRequest
	case ErrCircularDependency:
		return http.StatusConflict
	case ErrConvergenceTimeout, ErrTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new FlotillaError
func New(code ErrorCode, message string) *FlotillaError {
	return &FlotillaError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new FlotillaError with details
func NewWithDetails(code ErrorCode, message, details string) *FlotillaError {
	return &FlotillaError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new FlotillaError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *FlotillaError {
	return &FlotillaError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new FlotillaError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *FlotillaError {
	return &FlotillaError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// IsFlotillaError checks if an error is a FlotillaError
func IsFlotillaError(err error) bool {
	_, ok := err.(*FlotillaError)
	return ok
}

// GetCode extracts the error code from an error, if it's a FlotillaError
func GetCode(err error) ErrorCode {
	if fe, ok := err.(*FlotillaError); ok {
		return fe.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
