package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindBackend       Kind = "backend"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so sentinel errors can be compared with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a kind to an underlying error
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, "VALIDATION_ERROR", message)
}

func Forbidden(message string) *Error {
	return New(KindAuthorization, "FORBIDDEN", message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "NOT_FOUND", message)
}

func Conflict(message string) *Error {
	return New(KindConflict, "CONFLICT", message)
}

func Backend(message string, err error) *Error {
	return Wrap(KindBackend, "INTERNAL_ERROR", message, err)
}

// KindOf returns the kind of the first classified error in the chain.
// Unclassified errors are backend errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

// MessageOf returns the human-readable message of a classified error
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
