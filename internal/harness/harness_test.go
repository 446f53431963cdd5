package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScenario(t *testing.T, path string) *Result {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	return result
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			result := runScenario(t, path)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_BasicMigrationTrace(t *testing.T) {
	result := runScenario(t, "testdata/scenarios/basic_migration.yaml")
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NotEmpty(t, result.Trace)
	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "genesis", last.Phase)
	assert.Equal(t, "0x1::reconfiguration::NewEpochEvent", last.Type)
	assert.Equal(t, uint64(0), last.Seq)

	require.NotNil(t, result.Summary)
	assert.Len(t, result.Summary.Hash, 64)
	assert.Empty(t, result.Waypoint)
	assert.Nil(t, result.LedgerVersion)
}

func TestRun_FrameworkUpgradeCommitsLedger(t *testing.T) {
	result := runScenario(t, "testdata/scenarios/framework_upgrade.yaml")
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NotNil(t, result.LedgerVersion)
	assert.Equal(t, uint64(1), *result.LedgerVersion)
	assert.Regexp(t, `^1:[0-9a-f]{64}$`, result.Waypoint)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "rescue", last.Phase)
	assert.Equal(t, uint64(1), last.Seq)
}

func TestRun_ExpectErrorMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_code
description: "Expects the wrong error code"
records:
  - {account: "0xaa", auth_key: "aa", balance: 1}
  - {account: "0xaa", auth_key: "aa", balance: 2}
validators: [{owner: "0xf1", stake: 1}]
expect_error: INVALID_GENESIS_CONFIG
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "MIGRATION_FAILURE")
}

func TestRun_ExpectErrorButSucceeded(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: no_error
description: "Expects a failure that never happens"
validators: [{owner: "0xf1", stake: 1}]
expect_error: MIGRATION_FAILURE
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "it succeeded")
}

func TestRun_UnexpectedGenesisFailure(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: no_validators
description: "Genesis without validators is invalid"
records:
  - {account: "0xaa", auth_key: "aa", balance: 1}
assertions:
  - {type: clamped, addresses: []}
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	assert.Error(t, err)
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_balance
description: "Asserts a balance the snapshot does not hold"
records:
  - {account: "0xaa", auth_key: "aa", balance: 10}
validators: [{owner: "0xf1", stake: 1}]
assertions:
  - type: resource
    address: "0xaa"
    resource: coin::CoinStore
    expect: {value: 11}
  - type: absent
    address: "0xaa"
    resource: coin::CoinStore
  - type: event_count
    event: 0x1::genesis::GenesisEndEvent
    count: 2
  - type: clamped
    addresses: ["0xaa"]
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 4)
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	good, err := os.ReadFile("testdata/scenarios/drop_list.yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_good.yaml"), good, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yml"), []byte("name: [unterminated"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	result, err := New().RunSuite(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "b_broken.yml"), result.Failures[0].Path)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
}

func TestRunSuite_MissingDir(t *testing.T) {
	_, err := New().RunSuite(context.Background(), filepath.Join(t.TempDir(), "none"))
	assert.Error(t, err)
}
