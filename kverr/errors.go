// Package kverr defines the error-kind taxonomy shared by every backend and
// by the cursor/manager layers above them.
package kverr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the handful of ways a persistence operation can fail.
// Callers should switch on Kind, never on the concrete error type.
type Kind int

const (
	// Unknown is the zero value and should never be returned deliberately.
	Unknown Kind = iota
	// NotFound means the queried address or record does not exist. Most
	// call sites prefer a (value, false, nil) return over this kind; it
	// exists for APIs that cannot express that shape.
	NotFound
	// BackendIO covers OS-level or storage-engine I/O failures.
	BackendIO
	// Corruption means stored bytes could not be decoded into the expected
	// shape.
	Corruption
	// CapacityExhausted means the backing store's mapped region is full.
	// This kind is absorbed by Cursor.Commit's retry loop and must never
	// reach an application caller.
	CapacityExhausted
	// Serialization covers encode/decode failures of values before they
	// reach or after they leave a backend.
	Serialization
	// InvalidArgument means caller-supplied input was malformed (e.g. an
	// attribute string that does not parse).
	InvalidArgument
	// Internal means a lock-ordering or invariant violation was detected.
	// Treated as fatal and unrecoverable.
	Internal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case BackendIO:
		return "backend_io"
	case Corruption:
		return "corruption"
	case CapacityExhausted:
		return "capacity_exhausted"
	case Serialization:
		return "serialization"
	case InvalidArgument:
		return "invalid_argument"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single concrete error type this module returns. It carries a
// machine-discriminable Kind plus a wrapped cause for human diagnostics.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is/errors.As and github.com/pkg/errors.Cause see through
// to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Cause returns the wrapped cause, for github.com/pkg/errors.Cause.
func (e *Error) Cause() error { return e.cause }

// New constructs an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap constructs an Error of the given kind, wrapping cause with msg via
// github.com/pkg/errors so Cause()/the %+v stack trace verb keep working.
func Wrap(kind Kind, cause error, msg string) *Error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{Kind: kind, msg: msg, cause: errors.Wrap(cause, msg)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return Wrap(kind, cause, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind from err, returning Unknown if err is nil or is
// not (and does not wrap) a *Error.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
