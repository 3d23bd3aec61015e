package secondary

import "errors"

// Sentinel errors returned by secondary adapters. Services and CLI code
// match on these with errors.Is to choose behavior; the wrapped message
// carries the human-readable context.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrClaimConflict indicates an active claim already holds the slot.
	ErrClaimConflict = errors.New("slot already claimed")

	// ErrClaimExpired indicates the claim is no longer active, so the
	// operation (heartbeat, submit) cannot be honored through it.
	ErrClaimExpired = errors.New("claim expired")

	// ErrInvalidTransition indicates a stage transition was attempted
	// from a stage or state the item is not in.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrStageTimeout indicates the absolute stage window elapsed before
	// a decisive consensus could form.
	ErrStageTimeout = errors.New("stage timed out")
)
