package order

import "errors"

// Store error taxonomy. Adapters wrap backend failures with these sentinels
// so callers can branch without importing the adapter package.
var (
	// ErrNotFound means no record exists for the identity. Absence is a
	// normal outcome, distinct from an empty record.
	ErrNotFound = errors.New("session record not found")

	// ErrStoreUnavailable means the backend could not be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrCorruptRecord means a payload exists but does not deserialize into
	// the session shape. Never auto-repaired: discarding it would mint a new
	// order code on top of an order that may be mid-flight.
	ErrCorruptRecord = errors.New("session record corrupt")
)
