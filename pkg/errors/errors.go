// Package errors provides structured error types for nodegraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into three groups:
//   - Structural errors (DUPLICATE_ID, SLOT_OUT_OF_RANGE): the caller violated
//     a container invariant and the mutation was rejected.
//   - Invalid operations and references (TYPE_MISMATCH, SELF_LINK,
//     *_NOT_FOUND, INVALID_LINK, ...): the request referenced something that
//     does not exist or cannot be connected.
//   - Input and document errors (INVALID_INPUT, INVALID_FORMAT,
//     UNSUPPORTED_VERSION, NOT_FOUND, INTERNAL_ERROR).
//
// Data-tolerance problems found while loading a document are never errors;
// they are logged and reported by workflow.LoadReport instead.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeTypeMismatch, "cannot connect %s to %s", out, in)
//	if errors.Is(err, errors.ErrCodeTypeMismatch) {
//	    // Reject the drop
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural errors
	ErrCodeDuplicateID      Code = "DUPLICATE_ID"
	ErrCodeSlotOutOfRange   Code = "SLOT_OUT_OF_RANGE"
	ErrCodeInvalidOperation Code = "INVALID_OPERATION"
	ErrCodeNotAttached      Code = "NOT_ATTACHED"

	// Connection errors
	ErrCodeTypeMismatch Code = "TYPE_MISMATCH"
	ErrCodeSelfLink     Code = "SELF_LINK"
	ErrCodeInvalidLink  Code = "INVALID_LINK"

	// Reference errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeNodeNotFound     Code = "NODE_NOT_FOUND"
	ErrCodeLinkNotFound     Code = "LINK_NOT_FOUND"
	ErrCodeRerouteNotFound  Code = "REROUTE_NOT_FOUND"
	ErrCodeGroupNotFound    Code = "GROUP_NOT_FOUND"
	ErrCodeSubgraphNotFound Code = "SUBGRAPH_NOT_FOUND"

	// Input validation errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidFormat      Code = "INVALID_FORMAT"
	ErrCodeInvalidTypeName    Code = "INVALID_TYPE_NAME"
	ErrCodeInvalidDocumentID  Code = "INVALID_DOCUMENT_ID"
	ErrCodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err carries any of the *_NOT_FOUND codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeNodeNotFound, ErrCodeLinkNotFound,
		ErrCodeRerouteNotFound, ErrCodeGroupNotFound, ErrCodeSubgraphNotFound:
		return true
	}
	return false
}

// IsStructural reports whether err is a structural error: the mutation was
// rejected because it would break a container invariant.
func IsStructural(err error) bool {
	switch GetCode(err) {
	case ErrCodeDuplicateID, ErrCodeSlotOutOfRange:
		return true
	}
	return false
}
