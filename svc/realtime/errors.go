package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed or missing request bodies and
	// for unsubscribe requests lacking both a room id and a derivable
	// filter. No state is mutated.
	ErrValidation = errors.New("realtime: validation failed")

	// ErrMatcher is returned when a filter cannot be compiled: unsupported
	// operator or structurally invalid expression. The filter is never
	// registered.
	ErrMatcher = errors.New("realtime: invalid filter")

	// ErrNotFound is the base of the not-found family. Every sentinel below
	// wraps it, so errors.Is(err, ErrNotFound) matches any of them.
	ErrNotFound = errors.New("realtime: not found")

	// ErrCustomerNotFound is returned when the connection has no
	// subscriptions at all.
	ErrCustomerNotFound = fmt.Errorf("%w: unknown customer", ErrNotFound)

	// ErrRoomNotFound is returned for a stale or unknown room id.
	ErrRoomNotFound = fmt.Errorf("%w: unknown room", ErrNotFound)

	// ErrNotSubscribed is returned when the connection is not bound to the
	// referenced room.
	ErrNotSubscribed = fmt.Errorf("%w: connection is not subscribed to room", ErrNotFound)

	// ErrStorage wraps storage engine failures surfaced by persistence
	// operations. Notification is skipped entirely on a failed write.
	ErrStorage = errors.New("realtime: storage write failed")
)
