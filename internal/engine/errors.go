package engine

import (
	"errors"
	"fmt"

	"gymbuddy-backend/internal/storage"
)

// Kind classifies an engine failure for the presentation layer. Every engine
// operation returns either nil or an *Error carrying one of these kinds.
type Kind string

const (
	// KindAuthenticationRequired: no caller identity was supplied.
	KindAuthenticationRequired Kind = "authentication_required"
	// KindUnauthorized: the caller is not an allowed party for this action.
	KindUnauthorized Kind = "unauthorized"
	// KindSelfOperationNotAllowed: the caller targeted themselves.
	KindSelfOperationNotAllowed Kind = "self_operation_not_allowed"
	// KindInvalidArgument: malformed input (empty message, bad coordinates,
	// non-positive radius, unknown enum value).
	KindInvalidArgument Kind = "invalid_argument"
	// KindPresenceRequired: the caller has no active unexpired presence.
	KindPresenceRequired Kind = "presence_required"
	// KindDuplicateRequest: a live ping already exists for the pair, or a
	// participant is already in an active match.
	KindDuplicateRequest Kind = "duplicate_request"
	// KindInvalidTransition: a timeline event was sent out of order or twice.
	KindInvalidTransition Kind = "invalid_transition"
	// KindStaleOrAlreadyHandled: a conditional update matched zero rows; the
	// state changed underneath the caller. Re-read and reconcile.
	KindStaleOrAlreadyHandled Kind = "stale_or_already_handled"
	// KindNotFound: the referenced record does not exist.
	KindNotFound Kind = "not_found"
	// KindStorageFailure: transport/timeout/unexpected store error. The only
	// kind eligible for caller-initiated retry with backoff.
	KindStorageFailure Kind = "storage_failure"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the failure kind from err, or KindStorageFailure for
// anything that is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is a transient store conflict (a serialization
// failure) the caller should retry with backoff.
func Retryable(err error) bool {
	return storage.Retryable(err)
}

// storeError translates storage sentinel errors into engine kinds; anything
// unrecognized is a storage failure wrapping the cause.
func storeError(op string, err error) *Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: op, Err: err}
	case errors.Is(err, storage.ErrDuplicatePair), errors.Is(err, storage.ErrActiveMatch):
		return &Error{Kind: KindDuplicateRequest, Message: op, Err: err}
	case errors.Is(err, storage.ErrStale):
		return &Error{Kind: KindStaleOrAlreadyHandled, Message: op, Err: err}
	case errors.Is(err, storage.ErrEventOrder):
		return &Error{Kind: KindInvalidTransition, Message: op, Err: err}
	default:
		return &Error{Kind: KindStorageFailure, Message: op, Err: err}
	}
}
