package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reforge/internal/ir"
)

// GoldenDir is where RunWithGolden keeps golden files by default.
const GoldenDir = "testdata/golden"

// Snapshot is the canonical form of a result compared against golden
// files: the trace, the repair report and the artifact identity.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make(ir.Array, 0, len(result.Trace))
	for _, ev := range result.Trace {
		seq, err := ir.Uint(ev.Seq)
		if err != nil {
			return nil, err
		}
		trace = append(trace, ir.Object{
			"phase":  ir.String(ev.Phase),
			"stream": ir.String(ev.Stream),
			"seq":    seq,
			"type":   ir.String(ev.Type),
			"data":   ev.Data,
		})
	}

	snap := ir.Object{
		"scenario_name": ir.String(name),
		"trace":         trace,
		"clamped":       stringArray(result.Clamped),
		"dropped":       stringArray(result.Dropped),
	}
	if result.Summary != nil {
		snap["hash"] = ir.String(result.Summary.Hash)
	}
	if result.Waypoint != "" {
		snap["waypoint"] = ir.String(result.Waypoint)
	}
	if len(result.Errors) > 0 {
		snap["errors"] = stringArray(result.Errors)
	}
	return ir.MarshalCanonical(snap)
}

func stringArray(ss []string) ir.Array {
	arr := make(ir.Array, len(ss))
	for i, s := range ss {
		arr[i] = ir.String(s)
	}
	return arr
}

// RunWithGolden executes a scenario and compares its snapshot against
// <dir>/<scenario.Name>.golden. An empty dir means GoldenDir.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, dir string) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result, dir); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result, dir string) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = GoldenDir
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
