// Package errors provides structured error handling for deckstore.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (transactions, locks, index files)
//   - 4XX: Caller errors (bad arguments, missing entities, constraints)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates failures of the underlying database.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates errors caused by the caller's input.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a transient failure; retrying may succeed.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeTransactionFailed = "ERR_201_TRANSACTION_FAILED"
	ErrCodeStoreLocked       = "ERR_202_STORE_LOCKED"
	ErrCodeCorruptIndex      = "ERR_203_CORRUPT_INDEX"

	// Caller errors (400-499)
	ErrCodeInvalidArgument     = "ERR_401_INVALID_ARGUMENT"
	ErrCodeNotFound            = "ERR_402_NOT_FOUND"
	ErrCodeConstraintViolation = "ERR_403_CONSTRAINT_VIOLATION"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "401" from "ERR_401_INVALID_ARGUMENT")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Only whole-operation retries are meaningful: the store never leaves a
// partially applied write behind.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeTransactionFailed, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
