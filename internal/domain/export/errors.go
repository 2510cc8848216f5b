package export

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of an execution context failure.
type ErrorCode string

const (
	ErrCodeNoSegmenter      ErrorCode = "SEGMENTER_NOT_ATTACHED"
	ErrCodeNilSegmenter     ErrorCode = "NIL_SEGMENTER"
	ErrCodeInvalidFileIndex ErrorCode = "INVALID_FILE_INDEX"
	ErrCodeTeardown         ErrorCode = "SEGMENTER_TEARDOWN_FAILED"
	ErrCodeClosed           ErrorCode = "CONTEXT_CLOSED"
	ErrCodeInvalidOptions   ErrorCode = "INVALID_OPTIONS"
)

// Sentinel errors for errors.Is comparisons. Matching is by code only, so a
// returned error carrying extra context still matches its sentinel.
var (
	ErrNoSegmenter      = &Error{Code: ErrCodeNoSegmenter, Message: "no segmenter attached"}
	ErrNilSegmenter     = &Error{Code: ErrCodeNilSegmenter, Message: "segmenter is nil"}
	ErrInvalidFileIndex = &Error{Code: ErrCodeInvalidFileIndex, Message: "segmenter reported a negative file index"}
	ErrTeardownFailed   = &Error{Code: ErrCodeTeardown, Message: "releasing segmenter failed"}
	ErrContextClosed    = &Error{Code: ErrCodeClosed, Message: "execution context is closed"}
	ErrInvalidOptions   = &Error{Code: ErrCodeInvalidOptions, Message: "invalid execution context options"}
)

// Error is a coded execution context error enriched with contextual data.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

func newError(sentinel *Error, cause error, context map[string]interface{}) *Error {
	return &Error{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Cause:   cause,
		Context: context,
	}
}

func newOptionsError(field, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidOptions,
		Message: message,
		Context: map[string]interface{}{"field": field},
	}
}
