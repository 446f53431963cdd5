package repair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/legacy"
)

func addr(s string) *legacy.Address {
	a := legacy.MustParseAddress(s)
	return &a
}

func record(account string, balance uint64, unlocked uint64) legacy.RecoveryRecord {
	key := legacy.AuthKey(*addr(account))
	return legacy.RecoveryRecord{
		Account:    addr(account),
		AuthKey:    &key,
		Balance:    &legacy.Balance{Coin: balance},
		SlowWallet: &legacy.SlowWallet{Unlocked: unlocked},
	}
}

func TestFixSlowWallets_ClampsAndReports(t *testing.T) {
	records := []legacy.RecoveryRecord{record("0xAA", 100, 150)}

	clamped := FixSlowWallets(records)

	assert.Equal(t, uint64(100), records[0].SlowWallet.Unlocked)
	assert.Equal(t, []legacy.Address{*addr("0xAA")}, clamped)
}

func TestFixSlowWallets_InvariantHoldsForAll(t *testing.T) {
	records := []legacy.RecoveryRecord{
		record("0x1a", 10, 5),
		record("0x1b", 10, 10),
		record("0x1c", 0, 1),
		record("0x1d", 3, 300),
		{Account: addr("0x1e"), SlowWallet: &legacy.SlowWallet{Unlocked: 9}},             // no balance
		{SlowWallet: &legacy.SlowWallet{Unlocked: 9}, Balance: &legacy.Balance{Coin: 1}}, // no account
	}

	clamped := FixSlowWallets(records)
	assert.Equal(t, []legacy.Address{*addr("0x1c"), *addr("0x1d")}, clamped)

	for _, r := range records {
		if r.Account != nil && r.Balance != nil && r.SlowWallet != nil {
			assert.LessOrEqual(t, r.SlowWallet.Unlocked, r.Balance.Coin, r.Account.String())
		}
	}
	assert.Equal(t, uint64(9), records[4].SlowWallet.Unlocked, "no balance: untouched")
	assert.Equal(t, uint64(9), records[5].SlowWallet.Unlocked, "no account: untouched")
}

func TestDropAccounts(t *testing.T) {
	records := []legacy.RecoveryRecord{
		record("0xA1", 10, 1),
		record("0xA2", 20, 2),
		record("0xA3", 30, 3),
		{Balance: &legacy.Balance{Coin: 4}},
	}
	before := make([]legacy.RecoveryRecord, len(records))
	for i, r := range records {
		before[i] = r.Clone()
	}

	out, dropped := DropAccounts(records, []legacy.Address{*addr("0xA2"), *addr("0xFF")})

	require.Len(t, out, 4)
	assert.Equal(t, []legacy.Address{*addr("0xA2")}, dropped)

	assert.Equal(t, legacy.Tombstone(*addr("0xA2")), out[1])
	assert.Equal(t, legacy.TombstoneAuthKey, *out[1].AuthKey)
	assert.Nil(t, out[1].Balance)
	assert.Nil(t, out[1].SlowWallet)

	for _, i := range []int{0, 2, 3} {
		assert.Equal(t, before[i], out[i], "record %d must be unchanged", i)
	}
	assert.Equal(t, before, records, "input is not mutated")
}

func TestApplyDropFile_PersistsSanitizedSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "recovery.json")
	require.NoError(t, legacy.WriteRecoveryFile(snapshot, []legacy.RecoveryRecord{
		record("0xA1", 10, 1),
		record("0xA2", 20, 2),
		record("0xA3", 30, 3),
	}))
	dropFile := filepath.Join(dir, "drop.json")
	require.NoError(t, os.WriteFile(dropFile, []byte(`["0xA2"]`), 0o644))

	records, err := legacy.ReadRecoveryFile(snapshot)
	require.NoError(t, err)

	_, report, err := ApplyDropFile(records, snapshot, dropFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recovery_sanitized.json"), report.SanitizedPath)

	written, err := legacy.ReadRecoveryFile(report.SanitizedPath)
	require.NoError(t, err)
	require.Len(t, written, 3)

	var tombstones, untouched int
	for i, r := range written {
		if r.IsTombstone() {
			tombstones++
			assert.Equal(t, *addr("0xA2"), *r.Account)
			continue
		}
		untouched++
		assert.Equal(t, records[i], r)
	}
	assert.Equal(t, 1, tombstones)
	assert.Equal(t, 2, untouched)
}

func TestRecover_FixesThenDrops(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "recovery.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(`[
		{"account": "0xAA", "balance": 100, "slow_wallet": {"unlocked": 150, "transferred": 0}},
		{"account": "0xBB", "balance": 5}
	]`), 0o644))
	dropFile := filepath.Join(dir, "drop.yaml")
	require.NoError(t, os.WriteFile(dropFile, []byte("- \"0xBB\"\n"), 0o644))

	records, report, err := Recover(snapshot, dropFile)
	require.NoError(t, err)

	assert.Equal(t, []legacy.Address{*addr("0xAA")}, report.Clamped)
	assert.Equal(t, []legacy.Address{*addr("0xBB")}, report.Dropped)
	assert.Equal(t, uint64(100), records[0].SlowWallet.Unlocked)
	assert.True(t, records[1].IsTombstone())
	assert.FileExists(t, report.SanitizedPath)
}

func TestRecover_BadDropListIsFatal(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "recovery.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(`[{"account": "0xAA"}]`), 0o644))
	dropFile := filepath.Join(dir, "drop.json")
	require.NoError(t, os.WriteFile(dropFile, []byte(`["0xAA", "not-hex"]`), 0o644))

	_, _, err := Recover(snapshot, dropFile)
	var dle *DropListError
	require.ErrorAs(t, err, &dle)
	assert.NoFileExists(t, SanitizedPath(snapshot), "nothing is written on a bad drop list")
}

func TestSanitizedPath(t *testing.T) {
	assert.Equal(t, "/x/recovery_sanitized.json", SanitizedPath("/x/recovery.json"))
	assert.Equal(t, "/x/dump_sanitized", SanitizedPath("/x/dump"))
}
