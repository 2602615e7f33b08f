package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies a domain error into one of the six propagation
// categories described by the error handling design: each kind has a
// fixed degrade/retry/surface policy enforced by its caller, not by the
// error type itself.
type ErrKind int

const (
	// KindInvalidInput marks caller mistakes: empty query, malformed plan
	// JSON. Always surfaces immediately.
	KindInvalidInput ErrKind = iota
	// KindUnavailable marks a capability that is temporarily absent: model
	// not installed/running, cache busy, encoder busy. Degrades silently
	// at tiers 1-2, surfaces at tier 3 for knowledge queries.
	KindUnavailable
	// KindTimeout marks a stalled call: model request, blocking I/O.
	// Retrieval degrades to plain lexical search on timeout.
	KindTimeout
	// KindStorage marks transient lock contention or corruption in the
	// store. Lock contention is retried with backoff; other storage
	// errors surface.
	KindStorage
	// KindExternal marks a plugin failure. Logged and treated as
	// Continue, never fatal.
	KindExternal
	// KindFatal marks startup-time failures: unreadable config, PID
	// conflict. Aborts startup.
	KindFatal
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindStorage:
		return "storage"
	case KindExternal:
		return "external"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel values for errors.Is comparisons. Wrap these with WrapOp or
// fmt.Errorf's %w verb; never construct a bare fmt.Errorf for a condition
// that a caller needs to branch on.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timed out")
	ErrStorage      = errors.New("storage error")
	ErrExternal     = errors.New("external plugin error")
	ErrFatal        = errors.New("fatal error")
)

// Error is the concrete error type carried through the system. Op names
// the failing operation (e.g. "store.insert_shell"); Err is the
// sentinel this error Is-compatible with; Detail carries a free-form
// human-readable message.
type Error struct {
	Op     string
	Kind   ErrKind
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// sentinelFor maps a kind to its comparable sentinel.
func sentinelFor(k ErrKind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindUnavailable:
		return ErrUnavailable
	case KindTimeout:
		return ErrTimeout
	case KindStorage:
		return ErrStorage
	case KindExternal:
		return ErrExternal
	case KindFatal:
		return ErrFatal
	default:
		return errors.New("unknown error")
	}
}

// NewError builds a domain error of the given kind for operation op.
func NewError(op string, kind ErrKind, detail string) *Error {
	return &Error{Op: op, Kind: kind, Err: sentinelFor(kind), Detail: detail}
}

// WrapOp wraps err as a domain error of the given kind, attributed to op.
// If err is nil, WrapOp returns nil.
func WrapOp(op string, kind ErrKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: sentinelFor(kind), Detail: err.Error()}
}

// KindOf extracts the ErrKind from err, if it (or something it wraps) is
// a *Error. Returns ok=false for plain errors.
func KindOf(err error) (ErrKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether err represents transient storage lock
// contention, the only condition the design retries automatically.
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindStorage
}
