package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for callers and API responses.
type ErrorCode string

const (
	// Pipeline failure taxonomy
	ErrCodeIOFailure     ErrorCode = "IO_FAILURE"     // file unreadable or unstable
	ErrCodeEngineFailure ErrorCode = "ENGINE_FAILURE" // transcription/diarization errored or timed out
	ErrCodeAmbiguous     ErrorCode = "AMBIGUOUS_CLASSIFICATION"
	ErrCodeJobConflict   ErrorCode = "CONCURRENT_JOB_CONFLICT"
	ErrCodeStoreCommit   ErrorCode = "STORE_COMMIT_FAILURE"

	// Resource errors
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeConflict   ErrorCode = "CONFLICT"
	ErrCodeValidation ErrorCode = "VALIDATION"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
)

// AppError is a structured application error carrying a taxonomy code.
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Cause    error     `json:"-"`
	HTTPCode int       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: defaultHTTPCode(code)}
}

// Newf creates a new AppError with a formatted message
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, HTTPCode: defaultHTTPCode(code)}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(cause, code, fmt.Sprintf(format, args...))
}

func defaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeJobConflict:
		return http.StatusConflict
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeEngineFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IOFailure creates an IO failure error for a file path.
func IOFailure(path string, cause error) *AppError {
	return Wrapf(cause, ErrCodeIOFailure, "file %s unreadable", path)
}

// EngineFailure creates an engine failure error for a named engine stage.
func EngineFailure(engine string, cause error) *AppError {
	return Wrapf(cause, ErrCodeEngineFailure, "%s engine failed", engine)
}

// StoreCommitFailure marks a persistence failure after successful processing.
// It must never be reported as success upstream.
func StoreCommitFailure(cause error) *AppError {
	return Wrap(cause, ErrCodeStoreCommit, "transcript commit failed")
}

// Code extracts the taxonomy code from an error chain.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HTTPCode extracts the HTTP status code from an error chain.
func HTTPCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode != 0 {
			return appErr.HTTPCode
		}
		return defaultHTTPCode(appErr.Code)
	}
	return http.StatusInternalServerError
}

// Is reports whether the error chain carries the given code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}
