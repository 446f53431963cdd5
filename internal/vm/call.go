package vm

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// Call is the state a native sees: reads resolve through the pending
// effects of this call, then the session, then the view.
type Call struct {
	ctx     context.Context
	session *nativeSession
	pending *changeset.ChangeSet
}

// Context returns the context passed to Execute.
func (c *Call) Context() context.Context { return c.ctx }

// SessionID returns the id of the running session.
func (c *Call) SessionID() SessionID { return c.session.id }

// Read returns the current value of key.
func (c *Call) Read(key changeset.StateKey) ([]byte, bool, error) {
	val, ok, err := c.session.view.Get(c.ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	for _, layer := range []*changeset.ChangeSet{c.session.changes, c.pending} {
		if op, has := layer.Get(key); has {
			if op.IsDeletion() {
				val, ok = nil, false
			} else {
				val, ok = op.Value, true
			}
		}
		if d, has := layer.Delta(key); has {
			if !ok {
				val = []byte("0")
			}
			val, err = changeset.ApplyDelta(val, d.Amount)
			if err != nil {
				return nil, false, fmt.Errorf("read %s: %w", key, err)
			}
			ok = true
		}
	}
	return val, ok, nil
}

// ReadObject reads key and decodes it as an object.
func (c *Call) ReadObject(key changeset.StateKey) (ir.Object, bool, error) {
	val, ok, err := c.Read(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	obj, err := ir.ParseObject(val)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return obj, true, nil
}

// Exists reports whether key currently has a value.
func (c *Call) Exists(key changeset.StateKey) (bool, error) {
	_, ok, err := c.Read(key)
	return ok, err
}

// Write stores v under key.
func (c *Call) Write(key changeset.StateKey, v ir.Value) error {
	return c.pending.PutValue(key, v)
}

// Delete removes key.
func (c *Call) Delete(key changeset.StateKey) {
	c.pending.Put(key, changeset.Delete())
}

// AddDelta defers a signed addition to an integer value.
func (c *Call) AddDelta(key changeset.StateKey, amount int64) {
	c.pending.AddDelta(key, amount)
}

// EventCounterKey is where the next sequence number of stream is kept.
func EventCounterKey(stream string) changeset.StateKey {
	return changeset.ResourceKey(legacy.CoreAddress, "event::Counter<"+stream+">")
}

// Emit appends an event to stream. Sequence numbers start at zero per
// stream and persist in state, so they continue across versions.
func (c *Call) Emit(stream, typ string, data ir.Object) error {
	key := EventCounterKey(stream)
	var seq int64
	if val, ok, err := c.Read(key); err != nil {
		return err
	} else if ok {
		v, err := ir.ParseValue(val)
		if err != nil {
			return fmt.Errorf("event counter %s: %w", stream, err)
		}
		n, isInt := v.(ir.Int)
		if !isInt {
			return fmt.Errorf("event counter %s is %T", stream, v)
		}
		seq = int64(n)
	}
	if err := c.Write(key, ir.Int(seq+1)); err != nil {
		return err
	}
	c.pending.Emit(changeset.Event{
		Key:  stream,
		Seq:  uint64(seq),
		Type: typ,
		Data: data,
	})
	return nil
}

// NewTableHandle allocates a table handle unique to this session.
func (c *Call) NewTableHandle() string {
	s := c.session
	buf := make([]byte, 0, len(s.id)+8)
	buf = append(buf, s.id[:]...)
	buf = binary.BigEndian.AppendUint64(buf, s.handles)
	s.handles++
	return ir.HashWithDomain(ir.DomainSession, buf).String()
}
