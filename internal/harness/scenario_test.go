package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/supply_scaling.yaml")
	require.NoError(t, err)

	assert.Equal(t, "supply_scaling", s.Name)
	assert.Equal(t, filepath.Join("testdata", "snapshots", "small.json"), s.Snapshot)
	require.NotNil(t, s.Supply)
	assert.Equal(t, uint64(2000), s.Supply.TargetSupply)
	assert.Len(t, s.Assertions, 4)
}

func TestLoadScenario_MissingReferencedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
snapshot: missing.json
assertions:
  - {type: clamped, addresses: []}
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: s
description: d
assertion:
  - {type: clamped}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nexpect_error: X\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nexpect_error: X\n",
			wantErr: "description is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown chain",
			yaml:    "name: n\ndescription: d\nchain: moon\nexpect_error: X\n",
			wantErr: "moon",
		},
		{
			name:    "snapshot and records",
			yaml:    "name: n\ndescription: d\nsnapshot: a.json\nrecords: [{account: '0x1'}]\nexpect_error: X\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad drop address",
			yaml:    "name: n\ndescription: d\ndrop: [zz]\nexpect_error: X\n",
			wantErr: "drop[0]",
		},
		{
			name:    "validator without owner",
			yaml:    "name: n\ndescription: d\nvalidators: [{stake: 1}]\nexpect_error: X\n",
			wantErr: "owner is required",
		},
		{
			name:    "rescue without framework",
			yaml:    "name: n\ndescription: d\nrescue: {framework: 0}\nexpect_error: X\n",
			wantErr: "rescue.framework",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nassertions: [{type: magic}]\n",
			wantErr: `unknown assertion type "magic"`,
		},
		{
			name:    "resource without expect",
			yaml:    "name: n\ndescription: d\nassertions: [{type: resource, address: '0x1', resource: a::B}]\n",
			wantErr: "expect is required for resource",
		},
		{
			name:    "absent without resource",
			yaml:    "name: n\ndescription: d\nassertions: [{type: absent, address: '0x1'}]\n",
			wantErr: "address and resource are required",
		},
		{
			name:    "event_order without events",
			yaml:    "name: n\ndescription: d\nassertions: [{type: event_order}]\n",
			wantErr: "events list is required",
		},
		{
			name:    "event_count negative",
			yaml:    "name: n\ndescription: d\nassertions: [{type: event_count, event: e, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "ledger_version without rescue",
			yaml:    "name: n\ndescription: d\nassertions: [{type: ledger_version, version: 1}]\n",
			wantErr: "requires a rescue step",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
