package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrForbidden    = errors.New("forbidden")
)

// Document pipeline errors. Everything except ErrExtractionFailure is the
// caller's fault and is reported before the model is ever called.
var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrFormatMismatch       = errors.New("format mismatch")
	ErrFileTooLarge         = errors.New("file too large")
	ErrCorruptDocument      = errors.New("corrupt document")
	ErrNoExtractableContent = errors.New("no extractable content")
	ErrExtractionFailure    = errors.New("extraction failure")
)

var errorCodes = map[error]string{
	ErrUnsupportedFormat:    "UNSUPPORTED_FORMAT",
	ErrFormatMismatch:       "FORMAT_MISMATCH",
	ErrFileTooLarge:         "FILE_TOO_LARGE",
	ErrCorruptDocument:      "CORRUPT_DOCUMENT",
	ErrNoExtractableContent: "NO_EXTRACTABLE_CONTENT",
	ErrExtractionFailure:    "EXTRACTION_FAILURE",
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPipelineError tags err with the taxonomy sentinel kind and a user-facing message.
// The returned error matches both kind and err under errors.Is.
func NewPipelineError(kind error, message string, err error) *AppError {
	cause := kind
	if err != nil {
		cause = fmt.Errorf("%w: %w", kind, err)
	}
	return NewAppError(errorCodes[kind], message, cause)
}

// ErrorCode returns the AppError code for err, or INTERNAL.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	for kind, code := range errorCodes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return "INTERNAL"
}

// UserMessage returns the message suitable for an end user.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "처리 중 오류가 발생했습니다"
}

// HTTPStatus maps a pipeline error to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrFormatMismatch),
		errors.Is(err, ErrCorruptDocument),
		errors.Is(err, ErrNoExtractableContent),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExtractionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
