// Package apperrors defines the domain error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindConflict     Kind = "CONFLICT"
	KindDependency   Kind = "DEPENDENCY"
	KindNoData       Kind = "NO_DATA"
	KindInternal     Kind = "INTERNAL"
)

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single domain error type. Kind drives the HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation rejects malformed input.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NotFound reports a missing entity, e.g. NotFound("Bill").
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Unauthorized rejects missing or wrong credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Conflict reports a uniqueness or reconciliation violation.
func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// Dependency reports an unreachable collaborator (store, mail, object storage).
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// NoData reports an aggregation over zero matching records.
func NoData(message string) *Error {
	return &Error{Kind: KindNoData, Message: message}
}

// KindOf resolves the kind of err through wrapping. Plain errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
