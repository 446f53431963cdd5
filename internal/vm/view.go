package vm

import (
	"context"
	"maps"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
)

// StateView is read-only access to ledger state. Values are canonical
// JSON; a missing key returns ok=false and no error.
type StateView interface {
	Get(ctx context.Context, key changeset.StateKey) (value []byte, ok bool, err error)
}

// MapView is an in-memory StateView. Genesis seeds one with the framework
// modules so that the first session can call into them.
type MapView struct {
	values map[changeset.StateKey][]byte
}

// NewMapView returns an empty view.
func NewMapView() *MapView {
	return &MapView{values: make(map[changeset.StateKey][]byte)}
}

// Get implements StateView.
func (v *MapView) Get(_ context.Context, key changeset.StateKey) ([]byte, bool, error) {
	val, ok := v.values[key]
	return val, ok, nil
}

// Set stores a raw value.
func (v *MapView) Set(key changeset.StateKey, value []byte) {
	v.values[key] = value
}

// AddModules stores each module under its module key.
func (v *MapView) AddModules(modules []framework.Module) error {
	for _, m := range modules {
		val, err := EncodeModule(m)
		if err != nil {
			return err
		}
		v.values[changeset.ModuleKey(m.Address, m.Name)] = val
	}
	return nil
}

// Apply writes every operation of cs into the view. Deltas are resolved
// against the current value.
func (v *MapView) Apply(cs *changeset.ChangeSet) error {
	next := maps.Clone(v.values)
	for _, k := range cs.Keys() {
		op, _ := cs.Get(k)
		if op.IsDeletion() {
			delete(next, k)
			continue
		}
		next[k] = op.Value
	}
	for _, k := range cs.DeltaKeys() {
		d, _ := cs.Delta(k)
		cur, ok := next[k]
		if !ok {
			cur = []byte("0")
		}
		val, err := changeset.ApplyDelta(cur, d.Amount)
		if err != nil {
			return err
		}
		next[k] = val
	}
	v.values = next
	return nil
}

// Len returns the number of stored keys.
func (v *MapView) Len() int { return len(v.values) }

// EncodeModule returns the state value stored for a published module.
func EncodeModule(m framework.Module) ([]byte, error) {
	return ir.MarshalCanonical(ir.Object{
		"code": ir.Bytes(m.Code),
		"name": ir.String(m.Name),
	})
}
