package changeset

import (
	"fmt"
	"math"

	"github.com/roach88/reforge/internal/ir"
)

// Squash merges a then b into a new change set. Neither input is modified.
//
// Rules:
//   - any deletion in a or b fails with ErrUnsupportedDeletionMerge
//   - a key written by both resolves to b's value
//   - deltas on the same key are summed
//   - a delta in b over a write in a is applied to the written integer
//   - a write in b over a delta in a replaces the delta
//   - events are a's followed by b's
func Squash(a, b *ChangeSet) (*ChangeSet, error) {
	for _, cs := range []*ChangeSet{a, b} {
		for _, k := range cs.Keys() {
			if cs.writes[k].IsDeletion() {
				return nil, fmt.Errorf("%w: key %s", ErrUnsupportedDeletionMerge, k)
			}
		}
	}

	out := a.Clone()
	if err := out.Absorb(b); err != nil {
		return nil, fmt.Errorf("squash: %w", err)
	}
	return out, nil
}

// Absorb applies later onto cs in place, with Squash's merge rules but
// without rejecting deletions. A delta over a deleted key fails. On error
// cs is left unchanged.
func (cs *ChangeSet) Absorb(later *ChangeSet) error {
	materialized := make(map[StateKey]WriteOp)
	summed := make(map[StateKey]Delta)
	for _, k := range later.DeltaKeys() {
		d := later.deltas[k]
		if _, overwritten := later.writes[k]; overwritten {
			return fmt.Errorf("key %s has both a write and a delta in one change set", k)
		}
		if op, ok := cs.writes[k]; ok {
			if op.IsDeletion() {
				return fmt.Errorf("key %s: delta over deleted value", k)
			}
			value, err := ApplyDelta(op.Value, d.Amount)
			if err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			materialized[k] = Write(value)
			continue
		}
		sum, err := addInt64(cs.deltas[k].Amount, d.Amount)
		if err != nil {
			return fmt.Errorf("key %s: %w", k, err)
		}
		summed[k] = Delta{Amount: sum}
	}

	for _, k := range later.Keys() {
		cs.Put(k, later.writes[k])
	}
	for k, op := range materialized {
		cs.writes[k] = op
	}
	for k, d := range summed {
		cs.deltas[k] = d
	}
	for _, ev := range later.events {
		cs.events = append(cs.events, Event{Key: ev.Key, Seq: ev.Seq, Type: ev.Type, Data: ev.Data.Clone()})
	}
	return nil
}

// ApplyDelta adds amount to a canonical JSON integer.
func ApplyDelta(value []byte, amount int64) ([]byte, error) {
	v, err := ir.ParseValue(value)
	if err != nil {
		return nil, fmt.Errorf("delta target: %w", err)
	}
	n, ok := v.(ir.Int)
	if !ok {
		return nil, fmt.Errorf("delta target is %T, not an integer", v)
	}
	sum, err := addInt64(int64(n), amount)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(ir.Int(sum))
}

func addInt64(x, y int64) (int64, error) {
	if (y > 0 && x > math.MaxInt64-y) || (y < 0 && x < math.MinInt64-y) {
		return 0, fmt.Errorf("delta overflow: %d + %d", x, y)
	}
	return x + y, nil
}
