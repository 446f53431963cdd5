package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
)

// ErrVersionMoved is returned by Apply when the ledger's latest version
// is no longer the base the change set was computed against.
var ErrVersionMoved = errors.New("ledger version moved")

// ErrAlreadyInitialized is returned by Init on a non-empty ledger.
var ErrAlreadyInitialized = errors.New("ledger already initialized")

// ErrUnexpectedRoot is returned when ExpectWaypoint does not match the
// root derived inside the commit transaction.
var ErrUnexpectedRoot = errors.New("derived waypoint does not match expected")

// ErrReadOnly is returned for writes through a read-only handle.
var ErrReadOnly = errors.New("ledger opened read-only")

// Commit kinds recorded in the commit log.
const (
	KindGenesis = "genesis"
	KindRescue  = "rescue"
	KindApply   = "apply"
)

type applyConfig struct {
	kind   string
	expect *Waypoint
	now    func() time.Time
}

// ApplyOption configures Apply.
type ApplyOption func(*applyConfig)

// WithKind sets the commit log kind. Default: KindApply.
func WithKind(kind string) ApplyOption {
	return func(c *applyConfig) { c.kind = kind }
}

// ExpectWaypoint aborts the commit unless the new version's waypoint
// equals w.
func ExpectWaypoint(w Waypoint) ApplyOption {
	return func(c *applyConfig) { c.expect = &w }
}

// WithClock sets the clock used for commit_log.committed_at.
func WithClock(now func() time.Time) ApplyOption {
	return func(c *applyConfig) { c.now = now }
}

// Init commits genesis as version 0.
func (d *DB) Init(ctx context.Context, genesis *changeset.ChangeSet, runID string, opts ...ApplyOption) (Waypoint, error) {
	if genesis.HasDeltas() || genesis.Deletions() > 0 {
		return Waypoint{}, fmt.Errorf("init ledger: genesis must contain only writes")
	}
	opts = append([]ApplyOption{WithKind(KindGenesis)}, opts...)
	return d.commit(ctx, nil, genesis, runID, opts)
}

// Apply commits cs as version base+1. The latest version is re-read
// inside the transaction; if it is not base, nothing is written and
// ErrVersionMoved is returned.
func (d *DB) Apply(ctx context.Context, base uint64, cs *changeset.ChangeSet, runID string, opts ...ApplyOption) (Waypoint, error) {
	return d.commit(ctx, &base, cs, runID, opts)
}

func (d *DB) commit(ctx context.Context, base *uint64, cs *changeset.ChangeSet, runID string, opts []ApplyOption) (Waypoint, error) {
	if d.readOnly {
		return Waypoint{}, ErrReadOnly
	}
	if runID == "" {
		return Waypoint{}, fmt.Errorf("commit: run id is required")
	}
	cfg := applyConfig{kind: KindApply, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Waypoint{}, fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	latest, err := latestVersion(ctx, tx)
	var version uint64
	switch {
	case base == nil && errors.Is(err, ErrEmptyLedger):
		version = 0
	case base == nil && err == nil:
		return Waypoint{}, ErrAlreadyInitialized
	case err != nil:
		return Waypoint{}, fmt.Errorf("commit: %w", err)
	case latest != *base:
		return Waypoint{}, fmt.Errorf("%w: base %d, latest %d", ErrVersionMoved, *base, latest)
	default:
		version = latest + 1
	}

	state := map[changeset.StateKey][]byte{}
	if base != nil {
		if state, err = snapshot(ctx, tx, *base); err != nil {
			return Waypoint{}, fmt.Errorf("commit: %w", err)
		}
	}
	touched, err := resolve(state, cs)
	if err != nil {
		return Waypoint{}, fmt.Errorf("commit: %w", err)
	}
	w := Waypoint{Version: version, Root: Root(state)}
	if cfg.expect != nil && !cfg.expect.Equal(w) {
		return Waypoint{}, fmt.Errorf("%w: derived %s, expected %s", ErrUnexpectedRoot, w, cfg.expect)
	}

	hash, err := cs.Hash()
	if err != nil {
		return Waypoint{}, fmt.Errorf("commit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO versions (version, state_root, changeset_hash, run_id)
		VALUES (?, ?, ?, ?)
	`, int64(version), w.Root.String(), hash.String(), runID); err != nil {
		return Waypoint{}, fmt.Errorf("commit: insert version: %w", err)
	}

	for _, k := range cs.Keys() {
		if err := insertValue(ctx, tx, k, version, touched[k]); err != nil {
			return Waypoint{}, err
		}
	}
	for _, k := range cs.DeltaKeys() {
		if _, written := cs.Get(k); written {
			continue
		}
		if err := insertValue(ctx, tx, k, version, touched[k]); err != nil {
			return Waypoint{}, err
		}
	}

	for i, ev := range cs.Events() {
		payload := ev.Data
		if payload == nil {
			payload = ir.Object{}
		}
		data, err := ir.MarshalCanonical(payload)
		if err != nil {
			return Waypoint{}, fmt.Errorf("commit: encode event %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (version, idx, stream, seq, type, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`, int64(version), i, ev.Key, int64(ev.Seq), ev.Type, string(data)); err != nil {
			return Waypoint{}, fmt.Errorf("commit: insert event %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO commit_log (run_id, version, kind, committed_at)
		VALUES (?, ?, ?, ?)
	`, runID, int64(version), cfg.kind, cfg.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return Waypoint{}, fmt.Errorf("commit: insert commit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Waypoint{}, fmt.Errorf("commit: %w", err)
	}
	return w, nil
}

func insertValue(ctx context.Context, tx *sql.Tx, key changeset.StateKey, version uint64, value []byte) error {
	// NULL marks the key deleted from version on.
	var arg any
	if value != nil {
		arg = value
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO state_values (key, version, value)
		VALUES (?, ?, ?)
	`, string(key), int64(version), arg); err != nil {
		return fmt.Errorf("commit: insert %s: %w", key, err)
	}
	return nil
}
