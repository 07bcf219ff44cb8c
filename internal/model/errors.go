package model

import "errors"

// Domain errors surfaced verbatim to the API boundary. Handlers map them to
// HTTP statuses with errors.Is; anything else is a generic server error.
var (
	// ErrInvalidRequest covers malformed input: non-positive ticket counts,
	// missing user identifiers, unparsable event ids.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEventNotFound is returned when no event exists with the given id.
	ErrEventNotFound = errors.New("event not found")

	// ErrInsufficientTickets is the race-safe rejection issued when the
	// requested count exceeds remaining capacity at commit time.
	ErrInsufficientTickets = errors.New("not enough tickets available")

	// ErrIdempotencyConflict is returned when a booking replays an
	// idempotency key with different parameters.
	ErrIdempotencyConflict = errors.New("idempotency key already used with different parameters")
)
