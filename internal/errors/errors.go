package errors

import (
	"fmt"
)

// StoreError is the structured error type for deckstore.
// It provides rich context for error handling, logging, and user presentation.
type StoreError struct {
	// Code is the unique error code (e.g., "ERR_402_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the whole operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrNotFound            = &StoreError{Code: ErrCodeNotFound}
	ErrInvalidArgument     = &StoreError{Code: ErrCodeInvalidArgument}
	ErrConstraintViolation = &StoreError{Code: ErrCodeConstraintViolation}
	ErrTransactionFailure  = &StoreError{Code: ErrCodeTransactionFailed}
	ErrStoreLocked         = &StoreError{Code: ErrCodeStoreLocked}
	ErrInternal            = &StoreError{Code: ErrCodeInternal}
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with StoreError.
func (e *StoreError) Is(target error) bool {
	if t, ok := target.(*StoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *StoreError) WithDetail(key, value string) *StoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *StoreError) WithSuggestion(suggestion string) *StoreError {
	e.Suggestion = suggestion
	return e
}

// New creates a new StoreError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *StoreError {
	return &StoreError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a StoreError from an existing error.
// The error's message becomes the StoreError message.
func Wrap(code string, err error) *StoreError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(entity string, id int64) *StoreError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %d not found", entity, id), nil).
		WithDetail("entity", entity).
		WithDetail("id", fmt.Sprint(id))
}

// InvalidArgument reports a malformed field, out-of-range value, or unknown field.
func InvalidArgument(format string, args ...any) *StoreError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// ConstraintViolation reports a write that would break a uniqueness rule or invariant.
func ConstraintViolation(message string, cause error) *StoreError {
	return New(ErrCodeConstraintViolation, message, cause)
}

// TransactionFailure reports a failed storage write. The caller should retry
// the whole operation.
func TransactionFailure(message string, cause error) *StoreError {
	return New(ErrCodeTransactionFailed, message, cause).
		WithSuggestion("try the operation again")
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *StoreError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *StoreError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain holds a StoreError with Retryable set.
func IsRetryable(err error) bool {
	if se, ok := As(err); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if se, ok := As(err); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a StoreError.
// Returns empty string if not a StoreError.
func GetCode(err error) string {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a StoreError.
// Returns empty string if not a StoreError.
func GetCategory(err error) Category {
	if se, ok := As(err); ok {
		return se.Category
	}
	return ""
}

// As walks the error chain and returns the first StoreError.
func As(err error) (*StoreError, bool) {
	for err != nil {
		if se, ok := err.(*StoreError); ok {
			return se, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
