package rescue

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/reforge/internal/ledger"
)

// BootstrapOpts is one operator invocation of Phase 2.
type BootstrapOpts struct {
	// DBDir is the ledger directory; the database is DBDir/ledger.db.
	DBDir       string
	PayloadFile string
	// WaypointToVerify, when set, must equal the derived waypoint.
	WaypointToVerify *ledger.Waypoint
	// Commit applies the payload after verification. Without it the run
	// opens the ledger read-only.
	Commit bool
}

// Result reports a bootstrap run.
type Result struct {
	Waypoint  ledger.Waypoint
	State     State
	Committed bool
}

// Run executes Phase 2. The ledger handle is always closed before Run
// returns. On a waypoint mismatch the derived waypoint is still returned
// alongside the error.
func (o BootstrapOpts) Run(ctx context.Context, opts ...Option) (*Result, error) {
	payload, err := ReadPayload(o.PayloadFile)
	if err != nil {
		return nil, err
	}

	path := ledger.PathIn(o.DBDir)
	var db *ledger.DB
	if o.Commit {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		db, err = ledger.Open(path)
	} else {
		db, err = ledger.OpenReadOnly(path)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	defer db.Close()

	b, err := Prepare(ctx, db, payload, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Verify(o.WaypointToVerify); err != nil {
		return &Result{Waypoint: b.Waypoint(), State: b.State()}, err
	}
	if !o.Commit {
		return &Result{Waypoint: b.Waypoint(), State: b.State()}, nil
	}

	w, err := b.Commit(ctx)
	if err != nil {
		return &Result{Waypoint: b.Waypoint(), State: b.State()}, err
	}
	return &Result{Waypoint: w, State: b.State(), Committed: true}, nil
}
