// Package errs defines the broker's error kinds and their disposition,
// per the error handling design: feature handlers catch expected kinds
// and return user-readable text, the stream orchestrator catches
// everything inside its per-command loop, and only initialization
// errors reach the process boundary.
package errs

import "errors"

// Kind classifies an error for the purposes of user-facing disposition.
type Kind int

const (
	// KindUnknown is the zero value; treated like an unexpected internal error.
	KindUnknown Kind = iota
	// KindValidation covers bad input: a malformed path, a missing argument.
	KindValidation
	// KindNotFound covers lookups against an unknown session or approval id.
	KindNotFound
	// KindStateMismatch covers optimistic-concurrency races in the lifecycle.
	KindStateMismatch
	// KindInvalidTransition covers a disallowed edge in the lifecycle graph.
	KindInvalidTransition
	// KindMappingConflict covers a duplicate thread or path in the thread mapping.
	KindMappingConflict
	// KindTransportTransient covers a network drop or timeout; triggers
	// reconnection and outbound buffering.
	KindTransportTransient
	// KindTransportPermanent covers a transport failure that keeps recurring;
	// logged, reconnection continues without an upper bound.
	KindTransportPermanent
	// KindSubprocess covers a spawn failure or unexpected child exit.
	KindSubprocess
	// KindFatal covers boot-time failures the daemon cannot recover from.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFound"
	case KindStateMismatch:
		return "StateMismatch"
	case KindInvalidTransition:
		return "InvalidTransition"
	case KindMappingConflict:
		return "MappingConflict"
	case KindTransportTransient:
		return "TransportTransient"
	case KindTransportPermanent:
		return "TransportPermanent"
	case KindSubprocess:
		return "SubprocessError"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error is a kinded error that wraps an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a kinded error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kinded error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// UserMessage renders the error as user-facing text, per the
// disposition table in the error handling design: most kinds surface
// their message directly, Fatal and unknown kinds never reach a user
// (they escape to the process boundary or are logged, never formatted).
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation, KindNotFound, KindStateMismatch,
			KindInvalidTransition, KindMappingConflict, KindSubprocess:
			return e.Message
		}
	}
	return "an internal error occurred"
}
