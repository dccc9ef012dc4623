package adapters

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed invocation.
type ErrorKind string

const (
	KindInvalidInput             ErrorKind = "invalid_input"
	KindUnknownProvider          ErrorKind = "unknown_provider"
	KindBackendInvocationFailed  ErrorKind = "backend_invocation_failed"
	KindMalformedBackendResponse ErrorKind = "malformed_backend_response"
	KindUnsupportedContent       ErrorKind = "unsupported_content"
	KindConfiguration            ErrorKind = "configuration_error" // Server-side misconfiguration
)

// Error is the canonical error produced by adapters and the orchestrator.
// BackendStatus and BackendRequestID are zero when the backend never answered.
type Error struct {
	Kind             ErrorKind
	Message          string
	BackendStatus    int
	BackendRequestID string
	Err              error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the most specific human-readable description, preferring the
// underlying cause's message over the generic one.
func (e *Error) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// NewError creates an *Error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// AsError returns err as *Error if it is one (or wraps one).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func malformed(family Family, reason string) *Error {
	return &Error{
		Kind:    KindMalformedBackendResponse,
		Message: fmt.Sprintf("failed to parse completion from %s response: %s", family, reason),
	}
}
