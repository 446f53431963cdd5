package rescue

import (
	"context"
	"fmt"

	"github.com/roach88/reforge/internal/ledger"
)

// State is the position of a Bootstrap in its lifecycle.
type State int

const (
	StateComputed State = iota
	StateVerified
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateComputed:
		return "computed"
	case StateVerified:
		return "verified"
	case StateCommitted:
		return "committed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Bootstrap is Phase 2 for one payload against one ledger handle.
// It is not safe for concurrent use.
type Bootstrap struct {
	db       *ledger.DB
	payload  *Payload
	waypoint ledger.Waypoint
	state    State
	cfg      *config
}

// Prepare derives the waypoint payload would produce on db without
// writing. The ledger's latest version must be the payload's base.
func Prepare(ctx context.Context, db *ledger.DB, payload *Payload, opts ...Option) (*Bootstrap, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	latest, err := db.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	if latest != payload.BaseVersion {
		return nil, fmt.Errorf("prepare: %w: payload base %d, latest %d",
			ledger.ErrVersionMoved, payload.BaseVersion, latest)
	}
	root, err := db.StateRoot(ctx, payload.BaseVersion, payload.ChangeSet)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	b := &Bootstrap{
		db:       db,
		payload:  payload,
		waypoint: ledger.Waypoint{Version: payload.BaseVersion + 1, Root: root},
		state:    StateComputed,
		cfg:      newConfig(opts),
	}
	b.cfg.logger.Info("rescue waypoint derived",
		"db", db.Path(),
		"waypoint", b.waypoint.String())
	return b, nil
}

// Waypoint returns the derived waypoint.
func (b *Bootstrap) Waypoint() ledger.Waypoint { return b.waypoint }

// State returns the current state.
func (b *Bootstrap) State() State { return b.state }

// Verify compares the derived waypoint with expected. A nil expected
// accepts the derived waypoint. On mismatch the state is unchanged and a
// *WaypointMismatchError is returned.
func (b *Bootstrap) Verify(expected *ledger.Waypoint) error {
	if b.state == StateCommitted {
		return ErrAlreadyCommitted
	}
	if expected != nil && !expected.Equal(b.waypoint) {
		b.cfg.logger.Warn("rescue waypoint mismatch",
			"expected", expected.String(),
			"derived", b.waypoint.String())
		return &WaypointMismatchError{Expected: *expected, Derived: b.waypoint}
	}
	b.state = StateVerified
	return nil
}

// Commit applies the payload at BaseVersion+1. It requires StateVerified.
// If the ledger moved since Prepare, nothing is written and the error
// wraps ledger.ErrVersionMoved.
func (b *Bootstrap) Commit(ctx context.Context) (ledger.Waypoint, error) {
	switch b.state {
	case StateCommitted:
		return ledger.Waypoint{}, ErrAlreadyCommitted
	case StateComputed:
		return ledger.Waypoint{}, ErrNotVerified
	}

	runID := b.cfg.runIDs.Generate()
	w, err := b.db.Apply(ctx, b.payload.BaseVersion, b.payload.ChangeSet, runID,
		ledger.WithKind(ledger.KindRescue),
		ledger.ExpectWaypoint(b.waypoint))
	if err != nil {
		return ledger.Waypoint{}, fmt.Errorf("commit: %w", err)
	}
	b.state = StateCommitted

	b.cfg.logger.Info("rescue committed",
		"db", b.db.Path(),
		"run_id", runID,
		"waypoint", w.String())
	return w, nil
}
