package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk I/O error")

	// When: wrapping with StoreError
	storeErr := TransactionFailure("insert slide", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, storeErr)
	assert.Equal(t, originalErr, errors.Unwrap(storeErr))
	assert.True(t, errors.Is(storeErr, originalErr))
}

func TestStoreError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *StoreError
		expected string
	}{
		{
			name:     "not found",
			err:      NotFound("slide", 42),
			expected: "[ERR_402_NOT_FOUND] slide 42 not found",
		},
		{
			name:     "invalid argument",
			err:      InvalidArgument("position %d out of range", -1),
			expected: "[ERR_401_INVALID_ARGUMENT] position -1 out of range",
		},
		{
			name:     "constraint",
			err:      ConstraintViolation("keyword already exists", nil),
			expected: "[ERR_403_CONSTRAINT_VIOLATION] keyword already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestStoreError_Is_MatchesSentinelsThroughWrapping(t *testing.T) {
	// Given: a typed error wrapped with extra context
	err := fmt.Errorf("create file: %w", NotFound("project", 7))

	// Then: errors.Is matches the sentinel by code only
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, ErrCodeNotFound, GetCode(err))
}

func TestStoreError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeNotFound, "slide not found", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestStoreError_WithDetail_AddsContext(t *testing.T) {
	err := NotFound("keyword", 3)

	assert.Equal(t, "keyword", err.Details["entity"])
	assert.Equal(t, "3", err.Details["id"])

	err.WithDetail("project", "Acme")
	assert.Equal(t, "Acme", err.Details["project"])
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeTransactionFailed, CategoryStorage, SeverityWarning, true},
		{ErrCodeStoreLocked, CategoryStorage, SeverityWarning, true},
		{ErrCodeCorruptIndex, CategoryStorage, SeverityFatal, false},
		{ErrCodeInvalidArgument, CategoryValidation, SeverityError, false},
		{ErrCodeNotFound, CategoryValidation, SeverityError, false},
		{ErrCodeConstraintViolation, CategoryValidation, SeverityError, false},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
		{"BAD", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(TransactionFailure("commit", nil)))
	assert.True(t, IsRetryable(fmt.Errorf("import: %w", TransactionFailure("commit", nil))))
	assert.False(t, IsRetryable(NotFound("slide", 1)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForUser_HidesStorageDetails(t *testing.T) {
	err := TransactionFailure("UNIQUE constraint failed: slide_search.rowid", errors.New("sqlite"))

	msg := FormatForUser(err, false)
	assert.Contains(t, msg, "try again")
	assert.NotContains(t, msg, "slide_search")
	assert.Contains(t, msg, ErrCodeTransactionFailed)

	debugMsg := FormatForUser(err, true)
	assert.Contains(t, debugMsg, "slide_search")
	assert.Contains(t, debugMsg, "Cause: sqlite")
}

func TestFormatForUser_ShowsActionableMessage(t *testing.T) {
	err := InvalidArgument("unknown field %q", "colour").WithSuggestion("use one of: text, color")

	msg := FormatForUser(err, false)
	assert.Contains(t, msg, `unknown field "colour"`)
	assert.Contains(t, msg, "Suggestion: use one of: text, color")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	msg := FormatForCLI(errors.New("boom"))
	assert.Contains(t, msg, "Error: boom")
	assert.Contains(t, msg, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON(t *testing.T) {
	data, err := FormatJSON(NotFound("assembly", 9))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"ERR_402_NOT_FOUND"`)
	assert.Contains(t, string(data), `"category":"VALIDATION"`)
	assert.Contains(t, string(data), `"retryable":false`)
}

func TestFormatForLog(t *testing.T) {
	fields := FormatForLog(ConstraintViolation("duplicate keyword", errors.New("UNIQUE")).WithDetail("text", "Revenue"))
	assert.Equal(t, ErrCodeConstraintViolation, fields["error_code"])
	assert.Equal(t, "UNIQUE", fields["cause"])
	assert.Equal(t, "Revenue", fields["detail_text"])

	plain := FormatForLog(errors.New("x"))
	assert.Equal(t, "x", plain["error"])
	assert.Nil(t, FormatForLog(nil))
}
