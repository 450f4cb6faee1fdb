package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can map them onto transport
// semantics without string matching.
type ErrorKind string

const (
	// KindConfiguration covers caller mistakes: unknown persona, bad
	// parameters, operations invalid in the session's current state.
	KindConfiguration ErrorKind = "configuration"
	// KindGeneration covers upstream text-generation failures.
	KindGeneration ErrorKind = "generation"
	// KindMalformedOutput means the generator produced nothing usable.
	KindMalformedOutput ErrorKind = "malformed_output"
	// KindSessionNotFound means the session id does not exist.
	KindSessionNotFound ErrorKind = "session_not_found"
	// KindSessionClosed means the session was evicted or closed.
	KindSessionClosed ErrorKind = "session_closed"
	// KindConcurrentAsk means another request already holds the
	// session's single in-flight slot.
	KindConcurrentAsk ErrorKind = "concurrent_ask_rejected"
	// KindFetch covers listing-page download and parse failures.
	KindFetch ErrorKind = "fetch"
)

// Error is a kinded service error.
type Error struct {
	Kind    ErrorKind
	Message string
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

// Retryable reports whether the same call can be retried as-is.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindGeneration, KindMalformedOutput, KindConcurrentAsk, KindFetch:
		return true
	default:
		return false
	}
}

// NewError creates a kinded error.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an underlying error with a kind and message.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the kind of err, or "" for non-service errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
