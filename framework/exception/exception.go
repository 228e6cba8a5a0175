// Package exception defines the error taxonomy shared by the container and
// the application lifecycle.
//
// Every error produced here unwraps to exactly one of the sentinel kinds, so
// callers branch with errors.Is:
//
//	if errors.Is(err, exception.ErrLogic) {
//	    // contract violation: discard the Application
//	}
package exception

import (
	"errors"
	"fmt"
)

// ── Kinds ─────────────────────────────────────────────────────────────────────

var (
	// ErrArgument is the kind of errors raised when a required argument is nil.
	ErrArgument = errors.New("argument error")

	// ErrLogic is the kind of errors raised on programmer-contract violations:
	// out-of-order lifecycle calls, duplicate registration, container access
	// during a provider's Register.
	ErrLogic = errors.New("logic error")

	// ErrAssertion is the kind of errors raised when an internal invariant of
	// the framework itself is broken.
	ErrAssertion = errors.New("assertion error")
)

// ── Error ─────────────────────────────────────────────────────────────────────

// Error carries the operation that failed alongside its kind.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Argument returns an ErrArgument-kinded error.
//
//	return exception.Argument("Register", "provider can not be nil")
func Argument(op, format string, args ...any) error {
	return newError(ErrArgument, op, format, args...)
}

// Logic returns an ErrLogic-kinded error.
func Logic(op, format string, args ...any) error {
	return newError(ErrLogic, op, format, args...)
}

// Assertion returns an ErrAssertion-kinded error.
func Assertion(op, format string, args ...any) error {
	return newError(ErrAssertion, op, format, args...)
}

func newError(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsArgument reports whether err is (or wraps) an argument error.
func IsArgument(err error) bool { return errors.Is(err, ErrArgument) }

// IsLogic reports whether err is (or wraps) a logic error.
func IsLogic(err error) bool { return errors.Is(err, ErrLogic) }

// IsAssertion reports whether err is (or wraps) an assertion error.
func IsAssertion(err error) bool { return errors.Is(err, ErrAssertion) }

// Op returns the failing operation recorded on err, or "" when err carries none.
func Op(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
