package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s#%d\n", i+1, event.Phase, event.Type, event.Seq)
		}
	}
	return buf.String()
}

// resourceKey resolves an assertion's address and resource to a state key.
func resourceKey(a Assertion) (changeset.StateKey, error) {
	addr, err := legacy.ParseAddress(a.Address)
	if err != nil {
		return "", err
	}
	return changeset.ResourceKey(addr, a.Resource), nil
}

// assertResource checks that the resource exists and contains every
// expected field.
func assertResource(cs *changeset.ChangeSet, a Assertion) error {
	key, err := resourceKey(a)
	if err != nil {
		return err
	}
	op, ok := cs.Get(key)
	if !ok || op.IsDeletion() {
		return &AssertionError{
			Type:     AssertResource,
			Expected: fmt.Sprintf("%s exists", key),
			Actual:   "not written",
		}
	}
	actual, err := ir.ParseValue(op.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	expected, err := toValue(a.Expect)
	if err != nil {
		return fmt.Errorf("%s: expect: %w", key, err)
	}
	if !subsetMatch(actual, expected) {
		return &AssertionError{
			Type:     AssertResource,
			Expected: fmt.Sprintf("%s contains %s", key, mustJSON(a.Expect)),
			Actual:   string(op.Value),
		}
	}
	return nil
}

// assertAbsent checks that the resource was never written.
func assertAbsent(cs *changeset.ChangeSet, a Assertion) error {
	key, err := resourceKey(a)
	if err != nil {
		return err
	}
	if op, ok := cs.Get(key); ok && !op.IsDeletion() {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("%s absent", key),
			Actual:   string(op.Value),
		}
	}
	return nil
}

// assertEventOrder checks that the event types appear in the trace in
// the specified order. Other events may appear between them.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && ev.Type == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}

	actual := make([]string, len(trace))
	for i, ev := range trace {
		actual[i] = ev.Type
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: strings.Join(a.Events, " → "),
		Actual:   strings.Join(actual, " → "),
		Trace:    trace,
	}
}

// assertEventCount checks that an event type appears exactly Count times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Type == a.Event {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%s appears %d times", a.Event, a.Count),
			Actual:   fmt.Sprintf("appears %d times", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertAddresses compares a repair list with the expected addresses,
// normalized to canonical form.
func assertAddresses(kind string, actual []string, a Assertion) error {
	expected := make([]string, 0, len(a.Addresses))
	for _, s := range a.Addresses {
		addr, err := legacy.ParseAddress(s)
		if err != nil {
			return err
		}
		expected = append(expected, addr.String())
	}
	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%v", expected),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// assertSummary checks the genesis summary fields.
func assertSummary(result *Result, a Assertion) error {
	data, err := json.Marshal(result.Summary)
	if err != nil {
		return err
	}
	actual, err := ir.ParseValue(data)
	if err != nil {
		return err
	}
	expected, err := toValue(a.Expect)
	if err != nil {
		return fmt.Errorf("summary: expect: %w", err)
	}
	if !subsetMatch(actual, expected) {
		return &AssertionError{
			Type:     AssertSummary,
			Expected: mustJSON(a.Expect),
			Actual:   string(data),
		}
	}
	return nil
}

// toValue converts a YAML-decoded value to an ir.Value.
func toValue(v any) (ir.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return ir.ParseValue(data)
}

// subsetMatch reports whether actual contains expected. Objects match
// when every expected key matches; everything else compares exactly.
func subsetMatch(actual, expected ir.Value) bool {
	exp, ok := expected.(ir.Object)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	act, ok := actual.(ir.Object)
	if !ok {
		return false
	}
	for k, ev := range exp {
		av, exists := act[k]
		if !exists || !subsetMatch(av, ev) {
			return false
		}
	}
	return true
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertResource, AssertAbsent, AssertSummary:
			if result.ChangeSet == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a genesis change set", i, a.Type)
				break
			}
			switch a.Type {
			case AssertResource:
				err = assertResource(result.ChangeSet, a)
			case AssertAbsent:
				err = assertAbsent(result.ChangeSet, a)
			default:
				err = assertSummary(result, a)
			}
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertClamped:
			err = assertAddresses(AssertClamped, result.Clamped, a)
		case AssertDropped:
			err = assertAddresses(AssertDropped, result.Dropped, a)
		case AssertLedgerVersion:
			switch {
			case result.LedgerVersion == nil:
				err = fmt.Errorf("assertion[%d]: no ledger was committed", i)
			case *result.LedgerVersion != *a.Version:
				err = &AssertionError{
					Type:     AssertLedgerVersion,
					Expected: fmt.Sprintf("version %d", *a.Version),
					Actual:   fmt.Sprintf("version %d", *result.LedgerVersion),
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
