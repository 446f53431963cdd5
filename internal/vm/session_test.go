package vm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

type mapRegistry map[string]NativeFunc

func (r mapRegistry) Lookup(fn FunctionID) (NativeFunc, bool) {
	f, ok := r[fn.String()]
	return f, ok
}

var counterKey = changeset.ResourceKey(legacy.CoreAddress, "counter::Counter")

func testRegistry() mapRegistry {
	return mapRegistry{
		"0x1::counter::bump": func(call *Call, args ir.Object) error {
			n, _ := args.Int64("by")
			cur := int64(0)
			if obj, ok, err := call.ReadObject(counterKey); err != nil {
				return err
			} else if ok {
				cur, _ = obj.Int64("value")
			}
			return call.Write(counterKey, ir.Object{"value": ir.Int(cur + n)})
		},
		"0x1::counter::fail_after_write": func(call *Call, _ ir.Object) error {
			if err := call.Write(counterKey, ir.Object{"value": ir.Int(-1)}); err != nil {
				return err
			}
			return errors.New("boom")
		},
		"0x1::counter::emit": func(call *Call, _ ir.Object) error {
			return call.Emit("0x1::counter::Bumped", "0x1::counter::Bumped", ir.Object{})
		},
		"0x1::counter::delta": func(call *Call, args ir.Object) error {
			n, _ := args.Int64("by")
			call.AddDelta(changeset.ResourceKey(legacy.CoreAddress, "counter::Aggregate"), n)
			return nil
		},
	}
}

func newTestSession(t *testing.T, id SessionID) Session {
	t.Helper()
	view := NewMapView()
	require.NoError(t, view.AddModules([]framework.Module{
		{Address: legacy.CoreAddress, Name: "counter", Code: []byte("c")},
	}))
	engine := New(testRegistry(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return engine.NewSession(view, id)
}

func TestSession_ExecuteAccumulates(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, SessionIDAt(0))

	require.NoError(t, s.Execute(ctx, Fn("counter", "bump"), ir.Object{"by": ir.Int(2)}))
	require.NoError(t, s.Execute(ctx, Fn("counter", "bump"), ir.Object{"by": ir.Int(3)}))

	cs, err := s.Finish()
	require.NoError(t, err)
	op, ok := cs.Get(counterKey)
	require.True(t, ok)
	assert.Equal(t, `{"value":5}`, string(op.Value))
}

func TestSession_ModuleNotPublished(t *testing.T) {
	s := newTestSession(t, SessionIDAt(0))

	err := s.Execute(context.Background(), Fn("missing", "bump"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModuleNotPublished)
}

func TestSession_FunctionNotFound(t *testing.T) {
	s := newTestSession(t, SessionIDAt(0))

	err := s.Execute(context.Background(), Fn("counter", "nope"), nil)
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, CodeFunctionNotFound, ee.Code)
}

func TestSession_AbortLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, SessionIDAt(0))
	require.NoError(t, s.Execute(ctx, Fn("counter", "bump"), ir.Object{"by": ir.Int(7)}))

	err := s.Execute(ctx, Fn("counter", "fail_after_write"), nil)
	require.Error(t, err)
	assert.True(t, IsAborted(err))

	cs, err := s.Finish()
	require.NoError(t, err)
	op, _ := cs.Get(counterKey)
	assert.Equal(t, `{"value":7}`, string(op.Value))
}

func TestSession_EventSequenceNumbers(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, SessionIDAt(0))
	for range 3 {
		require.NoError(t, s.Execute(ctx, Fn("counter", "emit"), nil))
	}

	cs, err := s.Finish()
	require.NoError(t, err)
	events := cs.Events()
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i), ev.Seq)
	}
	op, ok := cs.Get(EventCounterKey("0x1::counter::Bumped"))
	require.True(t, ok)
	assert.Equal(t, "3", string(op.Value))
}

func TestSession_DeltasStayDeferred(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, SessionIDAt(0))
	require.NoError(t, s.Execute(ctx, Fn("counter", "delta"), ir.Object{"by": ir.Int(4)}))
	require.NoError(t, s.Execute(ctx, Fn("counter", "delta"), ir.Object{"by": ir.Int(1)}))

	cs, err := s.Finish()
	require.NoError(t, err)
	assert.True(t, cs.HasDeltas())
	d, ok := cs.Delta(changeset.ResourceKey(legacy.CoreAddress, "counter::Aggregate"))
	require.True(t, ok)
	assert.Equal(t, int64(5), d.Amount)
}

func TestSession_PublishModuleBundle(t *testing.T) {
	ctx := context.Background()
	engine := New(testRegistry())
	s := engine.NewSession(NewMapView(), SessionIDAt(1))

	// Not yet published in the empty view.
	err := s.Execute(ctx, Fn("counter", "bump"), ir.Object{"by": ir.Int(1)})
	require.ErrorIs(t, err, ErrModuleNotPublished)

	mods := []framework.Module{{Address: legacy.CoreAddress, Name: "counter", Code: []byte("c")}}
	require.NoError(t, s.PublishModuleBundle(mods, legacy.CoreAddress))
	require.NoError(t, s.Execute(ctx, Fn("counter", "bump"), ir.Object{"by": ir.Int(1)}))

	cs, err := s.Finish()
	require.NoError(t, err)
	op, ok := cs.Get(changeset.ModuleKey(legacy.CoreAddress, "counter"))
	require.True(t, ok)
	assert.Equal(t, `{"code":"0x63","name":"counter"}`, string(op.Value))
}

func TestSession_PublishRejectsForeignModule(t *testing.T) {
	s := New(testRegistry()).NewSession(NewMapView(), SessionIDAt(1))
	mods := []framework.Module{{Address: legacy.MustParseAddress("0x2"), Name: "x", Code: []byte("c")}}

	err := s.PublishModuleBundle(mods, legacy.CoreAddress)
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, CodeInvalidPublish, ee.Code)
}

func TestSession_FinishTwice(t *testing.T) {
	s := newTestSession(t, SessionIDAt(0))
	_, err := s.Finish()
	require.NoError(t, err)

	_, err = s.Finish()
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, s.Execute(context.Background(), Fn("counter", "bump"), nil), ErrSessionFinished)
}

func TestCall_TableHandlesDependOnSession(t *testing.T) {
	handles := func(id SessionID) []string {
		var got []string
		reg := mapRegistry{"0x1::counter::table": func(call *Call, _ ir.Object) error {
			got = append(got, call.NewTableHandle(), call.NewTableHandle())
			return nil
		}}
		view := NewMapView()
		require.NoError(t, view.AddModules([]framework.Module{{Address: legacy.CoreAddress, Name: "counter", Code: []byte("c")}}))
		s := New(reg).NewSession(view, id)
		require.NoError(t, s.Execute(context.Background(), Fn("counter", "table"), nil))
		return got
	}

	a := handles(SessionIDAt(0))
	b := handles(SessionIDAt(1))
	assert.NotEqual(t, a[0], a[1])
	assert.NotEqual(t, a[0], b[0])
	assert.Equal(t, a, handles(SessionIDAt(0)))
}

func TestParseFunctionID(t *testing.T) {
	fn, err := ParseFunctionID("0x1::genesis::initialize")
	require.NoError(t, err)
	assert.Equal(t, Fn("genesis", "initialize"), fn)
	assert.Equal(t, "0x1::genesis::initialize", fn.String())

	for _, bad := range []string{"", "0x1::genesis", "zz::a::b", "0x1::::b"} {
		_, err := ParseFunctionID(bad)
		assert.Error(t, err, bad)
	}
}

func TestMapView_Apply(t *testing.T) {
	view := NewMapView()
	key := changeset.ResourceKey(legacy.CoreAddress, "x::Y")
	view.Set(key, []byte("10"))

	cs := changeset.New()
	cs.AddDelta(key, 5)
	other := changeset.ResourceKey(legacy.CoreAddress, "x::Z")
	require.NoError(t, cs.PutValue(other, ir.String("z")))
	require.NoError(t, view.Apply(cs))

	val, ok, err := view.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "15", string(val))
	assert.Equal(t, 2, view.Len())
}
