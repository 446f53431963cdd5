package rescue

import (
	"errors"
	"fmt"

	"github.com/roach88/reforge/internal/ledger"
)

var (
	// ErrUnexpectedDelta is returned when a computation leaves deltas
	// the payload cannot carry.
	ErrUnexpectedDelta = errors.New("rescue payload has unresolved deltas")

	// ErrUnexpectedDeletion is returned when a computation deletes state.
	ErrUnexpectedDeletion = errors.New("rescue payload deletes state")

	// ErrNotVerified is returned by Commit before a successful Verify.
	ErrNotVerified = errors.New("rescue bootstrap is not verified")

	// ErrAlreadyCommitted is returned by Commit and Verify after a commit.
	ErrAlreadyCommitted = errors.New("rescue bootstrap already committed")

	// ErrMalformedPayload is returned for unreadable payload files.
	ErrMalformedPayload = errors.New("malformed rescue payload")
)

// WaypointMismatchError reports that the derived waypoint differs from
// the one the operator expected. Nothing has been written.
type WaypointMismatchError struct {
	Expected ledger.Waypoint
	Derived  ledger.Waypoint
}

func (e *WaypointMismatchError) Error() string {
	return fmt.Sprintf("waypoint mismatch: expected %s, derived %s", e.Expected, e.Derived)
}

// IsWaypointMismatch checks if err is a WaypointMismatchError.
func IsWaypointMismatch(err error) bool {
	var m *WaypointMismatchError
	return errors.As(err, &m)
}
