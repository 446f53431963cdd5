// Package fixture holds deterministic fixtures shared by package tests:
// a recovery snapshot, a genesis configuration, an assembled genesis and
// a ledger initialized from it. Only _test.go files import it.
package fixture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/ledger"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/vm"
)

// Validator owner used by Config.
var ValidatorOwner = legacy.MustParseAddress("0xf1")

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Engine returns the native engine with logging discarded.
func Engine() vm.Engine {
	return vm.New(natives.Standard(), vm.WithLogger(DiscardLogger()))
}

// Snapshot is a small recovery snapshot: two funded accounts, one of
// them a slow wallet.
func Snapshot() string {
	return fmt.Sprintf(`[
		{"account": "0xaa", "auth_key": %q, "balance": {"coin": 100}, "slow_wallet": {"unlocked": 60, "transferred": 5}},
		{"account": "0xbb", "auth_key": %q, "balance": 250}
	]`,
		legacy.AuthKey(legacy.MustParseAddress("0xaa")),
		legacy.AuthKey(legacy.MustParseAddress("0xbb")))
}

// Records parses Snapshot.
func Records(t testing.TB) []legacy.RecoveryRecord {
	t.Helper()
	records, err := legacy.ParseRecovery([]byte(Snapshot()))
	require.NoError(t, err)
	return records
}

// Config returns the testing chain defaults with one validator.
func Config() genesis.Config {
	cfg := genesis.DefaultConfig(genesis.Testing)
	cfg.Validators = []genesis.Validator{genesis.NewValidator(ValidatorOwner, 100)}
	return cfg
}

// Bundle returns the in-tree framework at revision 1.
func Bundle() *framework.Bundle {
	return framework.Head(1)
}

// Genesis assembles the genesis for Config, Records and Bundle.
func Genesis(t testing.TB) *changeset.ChangeSet {
	t.Helper()
	a := genesis.NewAssembler(Engine(), genesis.WithLogger(DiscardLogger()))
	cs, err := a.Build(context.Background(), Config(), Records(t), Bundle())
	require.NoError(t, err)
	return cs
}

// Ledger initializes a ledger from Genesis in a fresh temp directory and
// returns the directory. The ledger file is closed on return.
func Ledger(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	db, err := ledger.Open(ledger.PathIn(dir))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Init(context.Background(), Genesis(t), "test-run-genesis")
	require.NoError(t, err)
	return dir
}
