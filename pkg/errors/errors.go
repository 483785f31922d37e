// Package errors provides a structured error system for diracstore with error codes, categories, and context.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for storage adapter operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Toolchain Errors
	ErrCodeToolchainMissing ErrorCode = "TOOLCHAIN_MISSING"

	// Command Execution Errors
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
	ErrCodeCircuitOpen    ErrorCode = "CIRCUIT_OPEN"

	// Tool Output Errors
	ErrCodeToolReportedFailure ErrorCode = "TOOL_REPORTED_FAILURE"
	ErrCodeFieldNotFound       ErrorCode = "FIELD_NOT_FOUND"
	ErrCodeInvariantViolated   ErrorCode = "INVARIANT_VIOLATED"

	// Operation Errors
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryToolchain     ErrorCategory = "toolchain"
	CategoryCommand       ErrorCategory = "command"
	CategoryOutput        ErrorCategory = "output"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// StorageError represents a structured error with context and metadata.
type StorageError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	// Contextual information
	Op        string    `json:"op,omitempty"`   // adapter operation (exists, mtime, download, ...)
	Tool      string    `json:"tool,omitempty"` // external command name
	Output    string    `json:"output,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`

	// Error handling hints
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	switch {
	case e.Op != "" && e.Tool != "":
		return fmt.Sprintf("[%s:%s] %s: %s", e.Op, e.Tool, e.Code, e.Message)
	case e.Op != "":
		return fmt.Sprintf("[%s] %s: %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *StorageError) Is(target error) bool {
	if storageErr, ok := target.(*StorageError); ok {
		return e.Code == storageErr.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *StorageError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("Op=%s", e.Op))
	}
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("Tool=%s", e.Tool))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if e.Output != "" {
		parts = append(parts, fmt.Sprintf("Output=%q", e.Output))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("StorageError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new storage error with default values.
func NewError(code ErrorCode, message string) *StorageError {
	return &StorageError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: IsRetryableByDefault(code),
	}
}

// Newf creates a new storage error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *StorageError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeConfigLoad:
		return CategoryConfiguration
	case ErrCodeToolchainMissing:
		return CategoryToolchain
	case ErrCodeCommandFailed, ErrCodeRetryExhausted, ErrCodeCircuitOpen:
		return CategoryCommand
	case ErrCodeToolReportedFailure, ErrCodeFieldNotFound, ErrCodeInvariantViolated:
		return CategoryOutput
	case ErrCodeNotImplemented:
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
// Only plain command failures are transient; everything else reflects
// either the environment or the tool's reported state.
func IsRetryableByDefault(code ErrorCode) bool {
	return code == ErrCodeCommandFailed
}

// WithOp sets the adapter operation for an error.
func (e *StorageError) WithOp(op string) *StorageError {
	e.Op = op
	return e
}

// WithTool sets the external command name for an error.
func (e *StorageError) WithTool(tool string) *StorageError {
	e.Tool = tool
	return e
}

// WithOutput attaches captured tool output or stderr to an error.
func (e *StorageError) WithOutput(output string) *StorageError {
	e.Output = output
	return e
}

// WithCause sets the underlying cause.
func (e *StorageError) WithCause(cause error) *StorageError {
	e.Cause = cause
	return e
}

// WithRetryable overrides the default retryable hint.
func (e *StorageError) WithRetryable(retryable bool) *StorageError {
	e.Retryable = retryable
	return e
}
