// Package errors defines the structured error type and resilience
// helpers (retry, circuit breaker) used across the search core.
//
// The taxonomy is deliberately small: contract violations fail fast
// with a descriptive error; external-dependency degradation is never
// surfaced as a query failure; empty results are not errors at all.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	// CodeInvalidArgument is a caller contract violation (bad topK,
	// malformed options). Never silently corrected.
	CodeInvalidArgument Code = "invalid_argument"

	// CodeDuplicateDocument is a contract violation at index build time.
	CodeDuplicateDocument Code = "duplicate_document"

	// CodeBuildFailed marks a failed index rebuild. The previous
	// generation keeps serving.
	CodeBuildFailed Code = "build_failed"

	// CodeRetrieverUnavailable marks semantic retriever degradation.
	CodeRetrieverUnavailable Code = "retriever_unavailable"

	// CodeRerankUnavailable marks rerank model degradation.
	CodeRerankUnavailable Code = "rerank_unavailable"

	// CodeConfigInvalid marks a rejected configuration.
	CodeConfigInvalid Code = "config_invalid"
)

// Error is the structured error type for the search core.
type Error struct {
	// Code is the error class.
	Code Code

	// Message is the human-readable message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates the failed operation may succeed if retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrapped chains.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryableCode(code),
	}
}

// Wrap creates an Error around an existing cause. Returns nil for a
// nil cause.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryableCode(code),
	}
}

// InvalidArgument creates a contract-violation error.
func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

// CodeOf extracts the code from an Error chain. Returns empty string
// for non-Error values.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsContractViolation reports whether the error is a caller contract
// violation rather than a degradation or internal failure.
func IsContractViolation(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeDuplicateDocument:
		return true
	}
	return false
}

// IsRetryable reports whether the failed operation may be retried.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// retryableCode maps codes to their default retryability. Only
// external-dependency failures are worth retrying.
func retryableCode(code Code) bool {
	switch code {
	case CodeRetrieverUnavailable, CodeRerankUnavailable, CodeBuildFailed:
		return true
	}
	return false
}
