package errors

import (
	stderrors "errors"
	"fmt"
)

// EDMError is the structured error type for edmindex.
// It provides rich context for error handling, logging, and user presentation.
type EDMError struct {
	// Code is the unique error code (e.g., "ERR_404_UNKNOWN_METADATA_FIELD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *EDMError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EDMError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with EDMError.
func (e *EDMError) Is(target error) bool {
	if t, ok := target.(*EDMError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *EDMError) WithDetail(key, value string) *EDMError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *EDMError) WithSuggestion(suggestion string) *EDMError {
	e.Suggestion = suggestion
	return e
}

// WithRetryable overrides the retryable flag derived from the code.
func (e *EDMError) WithRetryable(retryable bool) *EDMError {
	e.Retryable = retryable
	if retryable {
		e.Severity = SeverityWarning
	}
	return e
}

// New creates a new EDMError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EDMError {
	return &EDMError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EDMError from an existing error.
// The error's message becomes the EDMError message.
func Wrap(code string, err error) *EDMError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel returns a bare error carrying only a code, for use as an errors.Is target.
func Sentinel(code string) error {
	return &EDMError{Code: code}
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *EDMError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *EDMError {
	return New(ErrCodeFileRead, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are retryable.
func NetworkError(message string, cause error) *EDMError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError creates an argument validation error.
func ValidationError(message string, cause error) *EDMError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *EDMError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains an EDMError with Retryable flag set.
func IsRetryable(err error) bool {
	var ee *EDMError
	if stderrors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var ee *EDMError
	if stderrors.As(err, &ee) {
		return ee.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an EDMError.
// Returns empty string if not an EDMError.
func GetCode(err error) string {
	var ee *EDMError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// GetCategory extracts the category from an EDMError.
// Returns empty string if not an EDMError.
func GetCategory(err error) Category {
	var ee *EDMError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, Sentinel(code))
}
