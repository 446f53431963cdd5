package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reforge/internal/ir"
)

func TestSubsetMatch(t *testing.T) {
	actual := ir.Object{
		"value": ir.Int(5),
		"inner": ir.Object{"a": ir.String("x"), "b": ir.Bool(true)},
		"list":  ir.Array{ir.Int(1), ir.Int(2)},
	}

	assert.True(t, subsetMatch(actual, ir.Object{}))
	assert.True(t, subsetMatch(actual, ir.Object{"value": ir.Int(5)}))
	assert.True(t, subsetMatch(actual, ir.Object{"inner": ir.Object{"a": ir.String("x")}}))
	assert.True(t, subsetMatch(actual, ir.Object{"list": ir.Array{ir.Int(1), ir.Int(2)}}))

	assert.False(t, subsetMatch(actual, ir.Object{"value": ir.Int(6)}))
	assert.False(t, subsetMatch(actual, ir.Object{"missing": ir.Int(1)}))
	assert.False(t, subsetMatch(actual, ir.Object{"list": ir.Array{ir.Int(1)}}))
	assert.False(t, subsetMatch(ir.Int(1), ir.Object{"value": ir.Int(1)}))
}

func TestToValue_FromYAMLShapes(t *testing.T) {
	v, err := toValue(map[string]any{"n": 3, "s": "x", "l": []any{1, "y"}})
	assert.NoError(t, err)
	assert.Equal(t, ir.Object{
		"n": ir.Int(3),
		"s": ir.String("x"),
		"l": ir.Array{ir.Int(1), ir.String("y")},
	}, v)
}

func TestAssertEventOrder(t *testing.T) {
	trace := []TraceEvent{{Type: "a"}, {Type: "x"}, {Type: "b"}, {Type: "c"}}

	assert.NoError(t, assertEventOrder(trace, Assertion{Events: []string{"a", "b"}}))
	assert.NoError(t, assertEventOrder(trace, Assertion{Events: []string{"a", "c"}}))

	err := assertEventOrder(trace, Assertion{Events: []string{"b", "a"}})
	var ae *AssertionError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertEventOrder, ae.Type)
	assert.Contains(t, err.Error(), "Full trace")
}

func TestAssertEventCount(t *testing.T) {
	trace := []TraceEvent{{Type: "a"}, {Type: "a"}, {Type: "b"}}

	assert.NoError(t, assertEventCount(trace, Assertion{Event: "a", Count: 2}))
	assert.NoError(t, assertEventCount(trace, Assertion{Event: "z", Count: 0}))
	assert.Error(t, assertEventCount(trace, Assertion{Event: "b", Count: 2}))
}

func TestAssertAddresses_Normalizes(t *testing.T) {
	actual := []string{"0x00000000000000000000000000000000000000000000000000000000000000aa"}

	assert.NoError(t, assertAddresses(AssertClamped, actual, Assertion{Addresses: []string{"aa"}}))
	assert.Error(t, assertAddresses(AssertClamped, actual, Assertion{Addresses: []string{"0xbb"}}))
	assert.Error(t, assertAddresses(AssertClamped, actual, Assertion{}))
}

func TestEvaluateAssertions_NeedsChangeSet(t *testing.T) {
	result := NewResult()
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertResource, Address: "0x1", Resource: "a::B", Expect: map[string]any{"x": 1}},
		{Type: AssertClamped},
	})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a genesis change set")
}
