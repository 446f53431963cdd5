package changeset

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reforge/internal/ir"
)

// ToValue converts the change set to its canonical object form:
//
//	{"deltas":[{"amount":…,"key":…}],
//	 "events":[{"data":{…},"key":…,"seq":…,"type":…}],
//	 "writes":[{"key":…,"op":"write","value":…}]}
//
// Writes and deltas are sorted by key; events keep emission order.
func (cs *ChangeSet) ToValue() (ir.Object, error) {
	writes := make(ir.Array, 0, len(cs.writes))
	for _, k := range cs.Keys() {
		op := cs.writes[k]
		entry := ir.Object{"key": ir.String(k), "op": ir.String(op.Kind)}
		if !op.IsDeletion() {
			v, err := ir.ParseValue(op.Value)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", k, err)
			}
			entry["value"] = v
		}
		writes = append(writes, entry)
	}

	events := make(ir.Array, 0, len(cs.events))
	for i, ev := range cs.events {
		seq, err := ir.Uint(ev.Seq)
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
		data := ev.Data
		if data == nil {
			data = ir.Object{}
		}
		events = append(events, ir.Object{
			"key":  ir.String(ev.Key),
			"seq":  seq,
			"type": ir.String(ev.Type),
			"data": data,
		})
	}

	deltas := make(ir.Array, 0, len(cs.deltas))
	for _, k := range cs.DeltaKeys() {
		deltas = append(deltas, ir.Object{
			"key":    ir.String(k),
			"amount": ir.Int(cs.deltas[k].Amount),
		})
	}

	return ir.Object{"writes": writes, "events": events, "deltas": deltas}, nil
}

// FromValue rebuilds a change set from ToValue's output.
func FromValue(obj ir.Object) (*ChangeSet, error) {
	cs := New()

	writes, _ := obj["writes"].(ir.Array)
	for i, raw := range writes {
		entry, ok := raw.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("writes[%d]: not an object", i)
		}
		key, ok := entry.Str("key")
		if !ok {
			return nil, fmt.Errorf("writes[%d]: missing key", i)
		}
		kind, _ := entry.Str("op")
		switch OpKind(kind) {
		case OpDelete:
			cs.Put(StateKey(key), Delete())
		case OpWrite:
			v, ok := entry["value"]
			if !ok {
				return nil, fmt.Errorf("writes[%d]: missing value", i)
			}
			data, err := ir.MarshalCanonical(v)
			if err != nil {
				return nil, fmt.Errorf("writes[%d]: %w", i, err)
			}
			cs.Put(StateKey(key), Write(data))
		default:
			return nil, fmt.Errorf("writes[%d]: unknown op %q", i, kind)
		}
	}

	events, _ := obj["events"].(ir.Array)
	for i, raw := range events {
		entry, ok := raw.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("events[%d]: not an object", i)
		}
		key, _ := entry.Str("key")
		typ, _ := entry.Str("type")
		seq, ok := entry.Int64("seq")
		if !ok || seq < 0 {
			return nil, fmt.Errorf("events[%d]: invalid seq", i)
		}
		data, _ := entry["data"].(ir.Object)
		cs.Emit(Event{Key: key, Seq: uint64(seq), Type: typ, Data: data})
	}

	deltas, _ := obj["deltas"].(ir.Array)
	for i, raw := range deltas {
		entry, ok := raw.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("deltas[%d]: not an object", i)
		}
		key, _ := entry.Str("key")
		amount, ok := entry.Int64("amount")
		if !ok {
			return nil, fmt.Errorf("deltas[%d]: invalid amount", i)
		}
		cs.AddDelta(StateKey(key), amount)
	}

	return cs, nil
}

// Encode returns the canonical JSON bytes of the change set.
func (cs *ChangeSet) Encode() ([]byte, error) {
	v, err := cs.ToValue()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*ChangeSet, error) {
	obj, err := ir.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode change set: %w", err)
	}
	return FromValue(obj)
}

// Hash is the domain-separated digest of the canonical encoding.
func (cs *ChangeSet) Hash() (ir.Digest, error) {
	v, err := cs.ToValue()
	if err != nil {
		return ir.Digest{}, err
	}
	return ir.HashCanonical(ir.DomainChangeSet, v)
}

// MarshalJSON implements json.Marshaler with the canonical encoding.
func (cs *ChangeSet) MarshalJSON() ([]byte, error) {
	return cs.Encode()
}

// UnmarshalJSON implements json.Unmarshaler.
func (cs *ChangeSet) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*cs = *decoded
	return nil
}

var (
	_ json.Marshaler   = (*ChangeSet)(nil)
	_ json.Unmarshaler = (*ChangeSet)(nil)
)
