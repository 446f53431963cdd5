package harness

import (
	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/ir"
)

// TraceEvent is one event emitted by genesis or the rescue upgrade.
type TraceEvent struct {
	Phase  string    `json:"phase"` // "genesis" or "rescue"
	Stream string    `json:"stream"`
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	Data   ir.Object `json:"data"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains genesis events, then rescue events.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Clamped []string `json:"clamped"`
	Dropped []string `json:"dropped"`

	// Summary and Hash describe the genesis artifact; unset when genesis
	// failed as expected.
	Summary *genesis.Summary `json:"summary,omitempty"`

	// Waypoint and LedgerVersion are set after a rescue step.
	Waypoint      string  `json:"waypoint,omitempty"`
	LedgerVersion *uint64 `json:"ledger_version,omitempty"`

	// ChangeSet is the genesis change set with any rescue payload
	// absorbed on top, for resource assertions.
	ChangeSet *changeset.ChangeSet `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Clamped: []string{},
		Dropped: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvents appends events from one phase to the trace.
func (r *Result) addEvents(phase string, events []changeset.Event) {
	for _, ev := range events {
		data := ev.Data
		if data == nil {
			data = ir.Object{}
		}
		r.Trace = append(r.Trace, TraceEvent{
			Phase:  phase,
			Stream: ev.Key,
			Seq:    ev.Seq,
			Type:   ev.Type,
			Data:   data,
		})
	}
}
