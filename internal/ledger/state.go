package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
)

// ErrEmptyLedger is returned when the ledger has no committed version.
var ErrEmptyLedger = errors.New("ledger has no committed version")

// ErrUnknownVersion is returned for reads above the latest version.
var ErrUnknownVersion = errors.New("unknown ledger version")

// LatestVersion returns the greatest committed version.
func (d *DB) LatestVersion(ctx context.Context) (uint64, error) {
	return latestVersion(ctx, d.db)
}

func latestVersion(ctx context.Context, q querier) (uint64, error) {
	var v sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(version) FROM versions`).Scan(&v); err != nil {
		return 0, fmt.Errorf("query latest version: %w", err)
	}
	if !v.Valid {
		return 0, ErrEmptyLedger
	}
	return uint64(v.Int64), nil
}

// View is a read-only view of ledger state at one version. It implements
// vm.StateView.
type View struct {
	q       querier
	version uint64
}

// StateView returns the state as of version.
func (d *DB) StateView(ctx context.Context, version uint64) (*View, error) {
	if err := requireVersion(ctx, d.db, version); err != nil {
		return nil, err
	}
	return &View{q: d.db, version: version}, nil
}

// Version returns the version the view reads at.
func (v *View) Version() uint64 { return v.version }

// Get returns the latest value written to key at or below the view's
// version. A key deleted at that point is reported missing.
func (v *View) Get(ctx context.Context, key changeset.StateKey) ([]byte, bool, error) {
	return getAt(ctx, v.q, key, v.version)
}

func getAt(ctx context.Context, q querier, key changeset.StateKey, version uint64) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `
		SELECT value FROM state_values
		WHERE key = ? AND version <= ?
		ORDER BY version DESC
		LIMIT 1
	`, string(key), int64(version)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s@%d: %w", key, version, err)
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func requireVersion(ctx context.Context, q querier, version uint64) error {
	latest, err := latestVersion(ctx, q)
	if err != nil {
		return err
	}
	if version > latest {
		return fmt.Errorf("%w: %d (latest %d)", ErrUnknownVersion, version, latest)
	}
	return nil
}

// snapshot loads every live key at version.
func snapshot(ctx context.Context, q querier, version uint64) (map[changeset.StateKey][]byte, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.key, s.value
		FROM state_values s
		WHERE s.version = (
			SELECT MAX(version) FROM state_values
			WHERE key = s.key AND version <= ?
		)
		ORDER BY s.key COLLATE BINARY ASC
	`, int64(version))
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	state := make(map[changeset.StateKey][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if value != nil {
			state[changeset.StateKey(key)] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return state, nil
}

// resolve applies cs to state in place and returns the resulting rows
// to store: the value for each touched key, nil for deletions.
func resolve(state map[changeset.StateKey][]byte, cs *changeset.ChangeSet) (map[changeset.StateKey][]byte, error) {
	touched := make(map[changeset.StateKey][]byte)
	for _, k := range cs.Keys() {
		op, _ := cs.Get(k)
		if op.IsDeletion() {
			delete(state, k)
			touched[k] = nil
			continue
		}
		state[k] = op.Value
		touched[k] = op.Value
	}
	for _, k := range cs.DeltaKeys() {
		d, _ := cs.Delta(k)
		cur, ok := state[k]
		if !ok {
			cur = []byte("0")
		}
		next, err := changeset.ApplyDelta(cur, d.Amount)
		if err != nil {
			return nil, fmt.Errorf("resolve delta on %s: %w", k, err)
		}
		state[k] = next
		touched[k] = next
	}
	return touched, nil
}

// StateRoot returns the root over the state at version with overlay
// applied on top. A nil overlay gives the root of the committed state.
func (d *DB) StateRoot(ctx context.Context, version uint64, overlay *changeset.ChangeSet) (ir.Digest, error) {
	if err := requireVersion(ctx, d.db, version); err != nil {
		return ir.Digest{}, err
	}
	state, err := snapshot(ctx, d.db, version)
	if err != nil {
		return ir.Digest{}, err
	}
	if overlay != nil {
		if _, err := resolve(state, overlay); err != nil {
			return ir.Digest{}, err
		}
	}
	return Root(state), nil
}

// Root computes the binary Merkle root over state sorted by key. Leaves
// hash key and value; an odd node at any level is promoted unchanged.
func Root(state map[changeset.StateKey][]byte) ir.Digest {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	level := make([]ir.Digest, 0, len(keys))
	for _, k := range keys {
		leaf := make([]byte, 0, len(k)+1+len(state[changeset.StateKey(k)]))
		leaf = append(leaf, k...)
		leaf = append(leaf, 0x00)
		leaf = append(leaf, state[changeset.StateKey(k)]...)
		level = append(level, ir.HashWithDomain(ir.DomainStateLeaf, leaf))
	}
	if len(level) == 0 {
		return ir.HashWithDomain(ir.DomainStateNode, nil)
	}

	for len(level) > 1 {
		next := make([]ir.Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			pair := make([]byte, 0, 64)
			pair = append(pair, level[i][:]...)
			pair = append(pair, level[i+1][:]...)
			next = append(next, ir.HashWithDomain(ir.DomainStateNode, pair))
		}
		level = next
	}
	return level[0]
}

// WaypointAt returns the committed waypoint of version.
func (d *DB) WaypointAt(ctx context.Context, version uint64) (Waypoint, error) {
	var root string
	err := d.db.QueryRowContext(ctx,
		`SELECT state_root FROM versions WHERE version = ?`, int64(version)).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return Waypoint{}, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	if err != nil {
		return Waypoint{}, fmt.Errorf("query waypoint %d: %w", version, err)
	}
	return ParseWaypoint(fmt.Sprintf("%d:%s", version, root))
}
