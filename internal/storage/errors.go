package storage

import "errors"

// Sentinel errors returned by store operations so callers never have to
// inspect driver-level error codes.
var (
	// ErrNotFound: the referenced row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicatePair: a pending or accepted ping already exists between the
	// two users (the live-pair unique index fired).
	ErrDuplicatePair = errors.New("storage: live ping already exists for pair")

	// ErrActiveMatch: one of the participants is already in an accepted match.
	ErrActiveMatch = errors.New("storage: participant already has an active match")

	// ErrStale: a conditional update matched zero rows because the row is no
	// longer in the expected state.
	ErrStale = errors.New("storage: row not in expected state")

	// ErrEventOrder: the timeline event violates the per-participant
	// progression.
	ErrEventOrder = errors.New("storage: event out of order for participant")
)
