package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/ledger"
	"github.com/roach88/reforge/internal/rescue"
	"github.com/roach88/reforge/internal/testutil/fixture"
)

// decode unmarshals a JSON CLIResponse whose data has shape T.
func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "recovery.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture.Snapshot()), 0o644))
	return path
}

func TestRecoveryCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovery.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"account": "0xaa", "auth_key": "aa", "balance": 10, "slow_wallet": {"unlocked": 50, "transferred": 0}},
		{"account": "0xbb", "auth_key": "bb", "balance": 20}
	]`), 0o644))

	out, err := execute(t, "--format", "json", "recovery", "check", path)
	require.NoError(t, err)
	result := decode[RecoveryCheckResult](t, out)
	assert.Equal(t, 2, result.Stats.Records)
	assert.Equal(t, uint64(30), result.Stats.TotalBalance)
	require.Len(t, result.Clamped, 1)
	assert.Equal(t, "0xaa", result.Clamped[0].Short())

	// check never rewrites the snapshot
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unlocked": 50`)
}

func TestRecoveryCheck_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recovery.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))

	_, err := execute(t, "recovery", "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecoveryDrop(t *testing.T) {
	dir := t.TempDir()
	snapshot := writeSnapshot(t, dir)
	drop := filepath.Join(dir, "drop.yaml")
	require.NoError(t, os.WriteFile(drop, []byte("- \"0xbb\"\n"), 0o644))

	out, err := execute(t, "recovery", "drop", snapshot, drop)
	require.NoError(t, err)
	assert.Contains(t, out, "dropped: 1")
	assert.Contains(t, out, "0xbb")
	assert.FileExists(t, filepath.Join(dir, "recovery_sanitized.json"))
}

func TestRecoveryDrop_BadDropList(t *testing.T) {
	dir := t.TempDir()
	snapshot := writeSnapshot(t, dir)
	drop := filepath.Join(dir, "drop.yaml")
	require.NoError(t, os.WriteFile(drop, []byte("- nothex\n"), 0o644))

	_, err := execute(t, "recovery", "drop", snapshot, drop)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "recovery_sanitized.json"))
}

func TestGenesisBuild_RequiresChainOrConfig(t *testing.T) {
	_, err := execute(t, "genesis", "build", "-o", filepath.Join(t.TempDir(), "g.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenesisBuild_InvalidConfig(t *testing.T) {
	// the testing defaults carry no validators
	out, err := execute(t, "--format", "json", "--chain", "testing", "genesis", "build",
		"-o", filepath.Join(t.TempDir(), "g.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "INVALID_GENESIS_CONFIG", resp.Error.Code)
}

func TestGenesisBuild_BadValidatorFlag(t *testing.T) {
	_, err := execute(t, "--chain", "testing", "genesis", "build", "--validator", "0xf1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenesisBuild_FromCUEConfig(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "genesis.json")

	out, err := execute(t, "--format", "json", "genesis", "build",
		"--config", "../harness/testdata/configs/testnet.cue",
		"--snapshot", writeSnapshot(t, dir),
		"-o", artifact)
	require.NoError(t, err, out)

	result := decode[GenesisBuildResult](t, out)
	assert.Equal(t, 1, result.Summary.Validators)
	assert.Empty(t, result.Clamped)
	assert.FileExists(t, artifact)
}

func TestGenesisVerify(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "genesis", "verify", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{"writes": {}, "events": []}`), 0o644))
	_, err = execute(t, "genesis", "verify", garbage)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

// TestWorkflow drives both phases end to end: build and verify a genesis,
// initialize a ledger, compute a framework upgrade and bootstrap it.
func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "genesis.json")
	db := filepath.Join(dir, "db")

	// Phase 1
	out, err := execute(t, "--chain", "testing", "genesis", "build",
		"--snapshot", writeSnapshot(t, dir),
		"--validator", "0xf1=100",
		"-o", artifact)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Genesis written to")

	out, err = execute(t, "--format", "json", "genesis", "verify", artifact)
	require.NoError(t, err, out)
	built := decode[map[string]any](t, out)
	assert.Len(t, built["hash"], 64)

	out, err = execute(t, "--format", "json", "ledger", "init", db, "--genesis", artifact)
	require.NoError(t, err, out)
	initResult := decode[LedgerInitResult](t, out)
	assert.True(t, strings.HasPrefix(initResult.Waypoint, "0:"))

	out, err = execute(t, "ledger", "waypoint", db)
	require.NoError(t, err)
	assert.Equal(t, initResult.Waypoint+"\n", out)

	_, err = execute(t, "ledger", "init", db, "--genesis", artifact)
	require.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Phase 2
	out, err = execute(t, "--format", "json", "rescue", "compute", db, "--framework-rev", "2")
	require.NoError(t, err, out)
	payloads := decode[[]RescuePayloadResult](t, out)
	require.Len(t, payloads, 1)
	assert.Equal(t, uint64(0), payloads[0].BaseVersion)
	assert.Equal(t, filepath.Join(db, rescue.PayloadFileName), payloads[0].Payload)

	out, err = execute(t, "--format", "json", "rescue", "bootstrap", db)
	require.NoError(t, err, out)
	dry := decode[RescueBootstrapResult](t, out)
	assert.False(t, dry.Committed)
	assert.Equal(t, "verified", dry.State)
	assert.True(t, strings.HasPrefix(dry.Waypoint, "1:"))

	wrong := "1:" + strings.Repeat("0", 64)
	out, err = execute(t, "--format", "json", "rescue", "bootstrap", db, "--waypoint", wrong, "--commit")
	require.Error(t, err)
	assert.True(t, rescue.IsWaypointMismatch(err))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, dry.Waypoint)

	out, err = execute(t, "ledger", "waypoint", db)
	require.NoError(t, err)
	assert.Equal(t, initResult.Waypoint+"\n", out, "mismatch must not write")

	out, err = execute(t, "--format", "json", "rescue", "bootstrap", db, "--waypoint", dry.Waypoint, "--commit")
	require.NoError(t, err, out)
	committed := decode[RescueBootstrapResult](t, out)
	assert.True(t, committed.Committed)
	assert.Equal(t, dry.Waypoint, committed.Waypoint)

	_, err = execute(t, "rescue", "bootstrap", db, "--waypoint", dry.Waypoint, "--commit")
	require.ErrorIs(t, err, ledger.ErrVersionMoved)

	out, err = execute(t, "--format", "json", "ledger", "log", db)
	require.NoError(t, err)
	entries := decode[[]ledger.CommitEntry](t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.KindGenesis, entries[0].Kind)
	assert.Equal(t, ledger.KindRescue, entries[1].Kind)

	out, err = execute(t, "--format", "json", "ledger", "events", db)
	require.NoError(t, err)
	events := decode[[]LedgerEvent](t, out)
	require.Len(t, events, 1)
	assert.Equal(t, "0x1::reconfiguration::NewEpochEvent", events[0].Type)
}

func TestRescueBootstrap_BadInput(t *testing.T) {
	db := fixture.Ledger(t)

	_, err := execute(t, "rescue", "bootstrap", db, "--waypoint", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "rescue", "bootstrap", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err), "payload file is missing")
}
