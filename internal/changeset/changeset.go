package changeset

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reforge/internal/ir"
)

// StateKey addresses one value in ledger state, e.g.
// "resource/0x…01/coin::CoinStore" or "module/0x…01/coin".
type StateKey string

// Key kinds.
const (
	KindResource = "resource"
	KindModule   = "module"
	KindTable    = "table"
)

// ResourceKey builds the key of a resource stored under an account.
func ResourceKey(addr fmt.Stringer, structTag string) StateKey {
	return StateKey(KindResource + "/" + addr.String() + "/" + structTag)
}

// ModuleKey builds the key of a published module.
func ModuleKey(addr fmt.Stringer, name string) StateKey {
	return StateKey(KindModule + "/" + addr.String() + "/" + name)
}

// TableKey builds the key of one table item.
func TableKey(handle, item string) StateKey {
	return StateKey(KindTable + "/" + handle + "/" + item)
}

// Kind returns the first path segment.
func (k StateKey) Kind() string {
	kind, _, _ := strings.Cut(string(k), "/")
	return kind
}

// OpKind distinguishes writes from deletions.
type OpKind string

const (
	OpWrite  OpKind = "write"
	OpDelete OpKind = "delete"
)

// WriteOp is one operation on a key. Value is canonical JSON for writes
// and empty for deletions.
type WriteOp struct {
	Kind  OpKind
	Value []byte
}

// Write returns a write operation for canonical JSON bytes.
func Write(value []byte) WriteOp {
	return WriteOp{Kind: OpWrite, Value: value}
}

// Delete returns a delete operation.
func Delete() WriteOp {
	return WriteOp{Kind: OpDelete}
}

// IsDeletion reports whether op removes the key.
func (op WriteOp) IsDeletion() bool {
	return op.Kind == OpDelete
}

// Event is an emitted event. Key identifies the event stream, Seq is the
// event's position within that stream.
type Event struct {
	Key  string
	Seq  uint64
	Type string
	Data ir.Object
}

// Delta is a deferred signed addition to an integer value.
type Delta struct {
	Amount int64
}

// ErrUnsupportedDeletionMerge is returned by Squash when either input
// deletes a key. Combined phases are additive by construction.
var ErrUnsupportedDeletionMerge = errors.New("unsupported deletion in change set merge")

// ChangeSet is a state transition. The zero value is not usable; call New.
type ChangeSet struct {
	writes map[StateKey]WriteOp
	deltas map[StateKey]Delta
	events []Event
}

// New returns an empty change set.
func New() *ChangeSet {
	return &ChangeSet{
		writes: make(map[StateKey]WriteOp),
		deltas: make(map[StateKey]Delta),
	}
}

// Put records op for key, replacing any earlier op and delta on key.
func (cs *ChangeSet) Put(key StateKey, op WriteOp) {
	delete(cs.deltas, key)
	cs.writes[key] = op
}

// PutValue canonically encodes v and records it as a write.
func (cs *ChangeSet) PutValue(key StateKey, v ir.Value) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	cs.Put(key, Write(data))
	return nil
}

// AddDelta accumulates a delta on key.
func (cs *ChangeSet) AddDelta(key StateKey, amount int64) {
	d := cs.deltas[key]
	d.Amount += amount
	cs.deltas[key] = d
}

// Emit appends an event.
func (cs *ChangeSet) Emit(ev Event) {
	cs.events = append(cs.events, ev)
}

// Get returns the op recorded for key.
func (cs *ChangeSet) Get(key StateKey) (WriteOp, bool) {
	op, ok := cs.writes[key]
	return op, ok
}

// Delta returns the delta recorded for key.
func (cs *ChangeSet) Delta(key StateKey) (Delta, bool) {
	d, ok := cs.deltas[key]
	return d, ok
}

// Keys returns written keys in ascending byte order.
func (cs *ChangeSet) Keys() []StateKey {
	keys := make([]StateKey, 0, len(cs.writes))
	for k := range cs.writes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DeltaKeys returns keys with deltas in ascending byte order.
func (cs *ChangeSet) DeltaKeys() []StateKey {
	keys := make([]StateKey, 0, len(cs.deltas))
	for k := range cs.deltas {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Events returns a copy of the event list.
func (cs *ChangeSet) Events() []Event {
	return slices.Clone(cs.events)
}

// Len returns the number of written keys.
func (cs *ChangeSet) Len() int { return len(cs.writes) }

// Deletions counts delete operations.
func (cs *ChangeSet) Deletions() int {
	n := 0
	for _, op := range cs.writes {
		if op.IsDeletion() {
			n++
		}
	}
	return n
}

// HasDeltas reports whether any delta is unresolved.
func (cs *ChangeSet) HasDeltas() bool {
	return len(cs.deltas) > 0
}

// Clone returns a deep copy.
func (cs *ChangeSet) Clone() *ChangeSet {
	out := New()
	for k, op := range cs.writes {
		out.writes[k] = WriteOp{Kind: op.Kind, Value: slices.Clone(op.Value)}
	}
	for k, d := range cs.deltas {
		out.deltas[k] = d
	}
	out.events = make([]Event, len(cs.events))
	for i, ev := range cs.events {
		out.events[i] = Event{Key: ev.Key, Seq: ev.Seq, Type: ev.Type, Data: ev.Data.Clone()}
	}
	return out
}

// Validate checks the finished-artifact invariants.
func (cs *ChangeSet) Validate() error {
	if n := cs.Deletions(); n > 0 {
		return fmt.Errorf("change set has %d deletions", n)
	}
	if cs.HasDeltas() {
		return fmt.Errorf("change set has %d unresolved deltas", len(cs.deltas))
	}
	return nil
}
