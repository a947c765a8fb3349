// Package apierror defines the typed failure taxonomy shared by the registry
// and association packages. Each kind maps 1:1 to an HTTP status so transport
// layers never need to inspect message text.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure kind.
type Code string

const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeExclusivityConflict  Code = "EXCLUSIVITY_CONFLICT"
	CodeDuplicateAssociation Code = "DUPLICATE_ASSOCIATION"
	CodeForbidden            Code = "FORBIDDEN"
	CodeInvalidField         Code = "INVALID_FIELD"
)

// Error is a typed domain failure.
type Error struct {
	Code    Code
	Message string

	// HoldingAccountID is set on exclusivity conflicts and names the account
	// that currently holds the exclusive assignment.
	HoldingAccountID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound returns a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ExclusivityConflict returns an EXCLUSIVITY_CONFLICT error naming the
// account that holds the exclusive assignment.
func ExclusivityConflict(holdingAccountID, message string) *Error {
	return &Error{
		Code:             CodeExclusivityConflict,
		Message:          message,
		HoldingAccountID: holdingAccountID,
	}
}

// Duplicate returns a DUPLICATE_ASSOCIATION error. It marks a unique-index
// collision detected at commit time, or an already-existing identical row.
func Duplicate(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateAssociation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden returns a FORBIDDEN error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// InvalidField returns an INVALID_FIELD error for malformed or oversized input.
func InvalidField(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidField, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the failure code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a failure to its HTTP status code. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExclusivityConflict, CodeDuplicateAssociation:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidField:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
