package genesis

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/vm"
)

var (
	addrAA  = legacy.MustParseAddress("0xaa")
	addrBB  = legacy.MustParseAddress("0xbb")
	addrDD  = legacy.MustParseAddress("0xdd")
	rotated = legacy.AuthKey(legacy.MustParseAddress("0xbeef"))
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ownKey(addr legacy.Address) legacy.AuthKey {
	return legacy.AuthKey(addr)
}

func testValidator(owner legacy.Address) Validator {
	return NewValidator(owner, 100)
}

func testConfig() Config {
	cfg := DefaultConfig(Testing)
	cfg.Validators = []Validator{testValidator(legacy.MustParseAddress("0xf1"))}
	return cfg
}

// testRecords holds a plain account, an account with a rotated key and an
// opaque resource, a record without an address and a tombstone.
func testRecords(t *testing.T) []legacy.RecoveryRecord {
	t.Helper()
	snapshot := fmt.Sprintf(`[
		{"account": "0xaa", "auth_key": %q, "balance": {"coin": 100}, "slow_wallet": {"unlocked": 100, "transferred": 5}},
		{"account": "0xbb", "auth_key": %q, "balance": 250, "receipts": {"paid": [1, 2]}},
		{"auth_key": %q, "balance": 7},
		{"account": "0xdd", "auth_key": %q}
	]`, ownKey(addrAA), rotated, ownKey(addrAA), legacy.TombstoneAuthKey)
	records, err := legacy.ParseRecovery([]byte(snapshot))
	require.NoError(t, err)
	return records
}

func newTestAssembler(reg vm.Registry) *Assembler {
	if reg == nil {
		reg = natives.Standard()
	}
	return NewAssembler(vm.New(reg, vm.WithLogger(discardLogger())), WithLogger(discardLogger()))
}

func testBundle() *framework.Bundle {
	return framework.Head(1)
}

// overrideRegistry replaces one native and delegates everything else.
type overrideRegistry struct {
	base   vm.Registry
	fn     vm.FunctionID
	native func(base vm.NativeFunc) vm.NativeFunc
}

func (r overrideRegistry) Lookup(fn vm.FunctionID) (vm.NativeFunc, bool) {
	f, ok := r.base.Lookup(fn)
	if fn == r.fn {
		return r.native(f), true
	}
	return f, ok
}
