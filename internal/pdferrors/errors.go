// Package pdferrors provides a structured error type for the fill pipeline's
// fatal conditions.
package pdferrors

import "fmt"

// Code categorizes a fatal error.
type Code string

const (
	CodeTemplateUnavailable Code = "TEMPLATE_UNAVAILABLE"
	CodeTemplateUnparseable Code = "TEMPLATE_UNPARSEABLE"
	CodeOutputUnwritable    Code = "OUTPUT_UNWRITABLE"
	CodeInvalidFieldJSON    Code = "INVALID_FIELD_JSON"
	CodeInvalidPage         Code = "INVALID_PAGE"
	CodeWriteError          Code = "WRITE_ERROR"
	CodeIOError             Code = "IO_ERROR"
)

// Error is a structured, categorized error for fatal fill conditions.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinel errors for errors.Is.
var (
	ErrTemplateUnavailable = &Error{Code: CodeTemplateUnavailable}
	ErrTemplateUnparseable = &Error{Code: CodeTemplateUnparseable}
	ErrOutputUnwritable    = &Error{Code: CodeOutputUnwritable}
	ErrInvalidFieldJSON    = &Error{Code: CodeInvalidFieldJSON}
	ErrInvalidPage         = &Error{Code: CodeInvalidPage}
)
