// Package errs provides the typed error taxonomy used across fatigue-go:
// NotFound, Invalid, IO, Bounds, Permission, and Usage, per the error
// handling design. All errors support errors.Is and errors.As.
package errs

import "errors"

// Kind classifies an error into one of the taxonomy's buckets.
type Kind int

const (
	// NotFound indicates a process, map, section, or pattern is absent.
	// Non-fatal; callers typically see an empty result or a zero sentinel
	// rather than this error directly.
	NotFound Kind = iota
	// Invalid indicates a malformed header, an unsupported image variant,
	// or a Region built over nonsense coordinates.
	Invalid
	// IO indicates a read or write returned an error or a short count.
	IO
	// Bounds indicates an enforceBounds Region rejected an out-of-range
	// offset; a programmer error, distinct from IO.
	Bounds
	// Permission indicates a ptrace attach failed or the target exited
	// before reaching the stopped state.
	Permission
	// Usage indicates a pattern parse failure: a lone '?', a leading
	// wildcard, or malformed hex.
	Usage
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Invalid:
		return "invalid"
	case IO:
		return "i/o error"
	case Bounds:
		return "bounds violation"
	case Permission:
		return "permission/attach error"
	case Usage:
		return "usage error"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying error (if any) with a Kind and the operation
// that failed.
type Error struct {
	Op     string
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Op
	if msg != "" {
		msg += ": "
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error with no wrapped cause.
func New(kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps err with an operation and kind.
func Wrap(err error, kind Kind, op string) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// WrapDetail wraps err with an operation, kind, and extra detail.
func WrapDetail(err error, kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail, Err: err}
}

// Of reports the Kind of err if it is (or wraps) an *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

// Re-exported standard library functions for convenience, matching the
// pack's established convention of aliasing these from a domain errors
// package rather than asking callers to import errors separately.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
