package legacy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `[
  {
    "account": "6BBF853AA6521DB445E5CBDF3C85E8A0",
    "auth_key": "d0d62fa0e1a4f7b1b2c51e1e1c2a6cfe6bbf853aa6521db445e5cbdf3c85e8a0",
    "balance": {"coin": 100},
    "slow_wallet": {"unlocked": 150, "transferred": 0},
    "receipts": {"destination": ["0x1"], "cumulative": [5]}
  },
  {"account": null, "comm_wallet": {"list": []}},
  {"account": "0xBB", "balance": 7, "role": 3}
]`

func TestParseRecovery_KnownAndOpaqueFields(t *testing.T) {
	records, err := ParseRecovery([]byte(sampleSnapshot))
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	require.NotNil(t, first.Account)
	assert.Equal(t, "0x000000000000000000000000000000006bbf853aa6521db445e5cbdf3c85e8a0", first.Account.String())
	require.NotNil(t, first.Balance)
	assert.Equal(t, uint64(100), first.Balance.Coin)
	require.NotNil(t, first.SlowWallet)
	assert.Equal(t, uint64(150), first.SlowWallet.Unlocked)
	assert.Equal(t, []string{"receipts"}, first.ResourceNames())

	assert.Nil(t, records[1].Account, "null account is retained as an unaddressable record")
	assert.Contains(t, records[1].Resources, "comm_wallet")

	require.NotNil(t, records[2].Balance)
	assert.Equal(t, uint64(7), records[2].Balance.Coin, "bare integer balance")
	assert.Nil(t, records[2].AuthKey)
}

func TestRecoveryRecord_MarshalRoundTrip(t *testing.T) {
	records, err := ParseRecovery([]byte(sampleSnapshot))
	require.NoError(t, err)

	data, err := json.Marshal(records)
	require.NoError(t, err)

	again, err := ParseRecovery(data)
	require.NoError(t, err)
	assert.Equal(t, records, again)

	assert.True(t, strings.Contains(string(data), `"balance":{"coin":7}`), "balance written in object form")
}

func TestReadRecoveryFile_Malformed(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRecoveryFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrMalformedSnapshot)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"account": "zz"}]`), 0o644))
	_, err = ReadRecoveryFile(bad)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)

	notArray := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(notArray, []byte(`null`), 0o644))
	_, err = ReadRecoveryFile(notArray)
	var mse *MalformedSnapshotError
	require.ErrorAs(t, err, &mse)
	assert.Equal(t, notArray, mse.Path)
}

func TestParseRecovery_AmountLimit(t *testing.T) {
	accepted := []string{
		`[{"account": "0xaa", "balance": 9223372036854775807}]`,
		`[{"account": "0xaa", "balance": {"coin": 9223372036854775807}}]`,
		`[{"account": "0xaa", "slow_wallet": {"unlocked": 9223372036854775807, "transferred": 9223372036854775807}}]`,
	}
	for _, input := range accepted {
		records, err := ParseRecovery([]byte(input))
		require.NoError(t, err, input)
		require.NoError(t, records[0].CheckAmounts())
	}

	tests := []struct {
		name  string
		input string
		field string
	}{
		{"balance at 2^63", `[{"account": "0xaa", "balance": 9223372036854775808}]`, "balance"},
		{"balance at max uint64", `[{"account": "0xaa", "balance": 18446744073709551615}]`, "balance"},
		{"coin object at max uint64", `[{"account": "0xaa", "balance": {"coin": 18446744073709551615}}]`, "balance"},
		{"unlocked at 2^63", `[{"account": "0xaa", "slow_wallet": {"unlocked": 9223372036854775808, "transferred": 0}}]`, "slow_wallet.unlocked"},
		{"transferred at max uint64", `[{"account": "0xaa", "slow_wallet": {"unlocked": 0, "transferred": 18446744073709551615}}]`, "slow_wallet.transferred"},
		{"record without account", `[{"balance": 18446744073709551615}]`, "balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseRecovery([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, records)
			assert.Contains(t, err.Error(), "record 0")
			assert.Contains(t, err.Error(), tt.field+" ")
		})
	}
}

func TestReadRecoveryFile_AmountAboveLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"account": "0xaa", "balance": 1},
		{"account": "0xbb", "balance": 18446744073709551615}
	]`), 0o644))

	_, err := ReadRecoveryFile(path)
	var mse *MalformedSnapshotError
	require.ErrorAs(t, err, &mse)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.Equal(t, path, mse.Path)
	assert.Contains(t, err.Error(), "record 1 (account=")
	assert.Contains(t, err.Error(), "balance 18446744073709551615 exceeds")
}

func TestWriteRecoveryFile_ReadBack(t *testing.T) {
	records, err := ParseRecovery([]byte(sampleSnapshot))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteRecoveryFile(path, records))

	back, err := ReadRecoveryFile(path)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestTombstone(t *testing.T) {
	addr := MustParseAddress("0xAA")
	r := Tombstone(addr)

	assert.True(t, r.IsTombstone())
	assert.Equal(t, addr, *r.Account)
	assert.Nil(t, r.Balance)
	assert.Nil(t, r.SlowWallet)
	assert.Empty(t, r.Resources)
}

func TestClone_IsDeep(t *testing.T) {
	records, err := ParseRecovery([]byte(sampleSnapshot))
	require.NoError(t, err)

	cp := records[0].Clone()
	cp.SlowWallet.Unlocked = 1
	cp.Resources["receipts"][0] = 'X'

	assert.Equal(t, uint64(150), records[0].SlowWallet.Unlocked)
	assert.Equal(t, byte('{'), records[0].Resources["receipts"][0])
}

func TestSummarize(t *testing.T) {
	records, err := ParseRecovery([]byte(sampleSnapshot))
	require.NoError(t, err)

	s, err := Summarize(records)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, 2, s.Addressable)
	assert.Equal(t, 1, s.SlowWallets)
	assert.Equal(t, uint64(107), s.TotalBalance)
	assert.Equal(t, uint64(0), s.SlowLocked, "unlocked above balance locks nothing")
}
