package genesis

import (
	"context"
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/vm"
)

// migrateAccounts recreates every addressable record and records the
// supply totals. Records without an account are skipped. Any failure is
// fatal for the run and carries the offending address.
func (a *Assembler) migrateAccounts(
	ctx context.Context,
	s vm.Session,
	settings SupplySettings,
	records []legacy.RecoveryRecord,
) (int, error) {
	total, err := legacyTotal(records)
	if err != nil {
		return 0, migrationFailure(nil, err, "sum legacy balances")
	}
	sc := newScaler(settings, total)

	var (
		totals   supplyTotals
		seen     = make(map[legacy.Address]bool, len(records))
		migrated int
		skipped  int
	)
	for i := range records {
		r := &records[i]
		if r.Account == nil {
			skipped++
			continue
		}
		addr := *r.Account
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("migrate accounts: %w", err)
		}
		if seen[addr] {
			return 0, migrationFailure(&addr, nil, "duplicate address in snapshot")
		}
		seen[addr] = true

		if err := a.migrateAccount(ctx, s, sc, r, &totals); err != nil {
			return 0, migrationFailure(&addr, err, "migrate record %d", i)
		}
		migrated++
	}

	totals.Escrow = escrow(totals.Total, settings.EscrowPct)
	supplyArgs := ir.Object{}
	for name, v := range map[string]uint64{
		"total":            totals.Total,
		"slow_unlocked":    totals.SlowUnlocked,
		"slow_transferred": totals.SlowTransferred,
		"target":           settings.TargetSupply,
		"escrow_pct":       settings.EscrowPct,
		"escrow":           totals.Escrow,
	} {
		n, err := ir.Uint(v)
		if err != nil {
			return 0, migrationFailure(nil, err, "supply %s", name)
		}
		supplyArgs[name] = n
	}
	if err := s.Execute(ctx, natives.SupplyInitialize, supplyArgs); err != nil {
		return 0, migrationFailure(nil, err, "initialize supply")
	}

	a.logger.Info("accounts migrated",
		"migrated", migrated,
		"skipped", skipped,
		"legacy_total", total,
		"total", totals.Total)
	return migrated, nil
}

func (a *Assembler) migrateAccount(
	ctx context.Context,
	s vm.Session,
	sc scaler,
	r *legacy.RecoveryRecord,
	totals *supplyTotals,
) error {
	if r.AuthKey == nil {
		return fmt.Errorf("missing auth key")
	}
	if err := r.CheckAmounts(); err != nil {
		return err
	}
	addr := natives.Address(*r.Account)

	if err := s.Execute(ctx, natives.AccountCreate, ir.Object{
		"address":            addr,
		"authentication_key": natives.AuthKey(*r.AuthKey),
	}); err != nil {
		return err
	}

	var balance uint64
	if r.Balance != nil {
		scaled, err := sc.scale(r.Balance.Coin)
		if err != nil {
			return err
		}
		amount, err := ir.Uint(scaled)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		if err := accumulate(&totals.Total, scaled); err != nil {
			return err
		}
		if err := s.Execute(ctx, natives.CoinMintTo, ir.Object{"address": addr, "amount": amount}); err != nil {
			return err
		}
		balance = scaled
	}

	if r.SlowWallet != nil {
		unlocked, err := sc.scale(r.SlowWallet.Unlocked)
		if err != nil {
			return err
		}
		if r.Balance != nil && unlocked > balance {
			return fmt.Errorf("slow wallet unlocked %d exceeds balance %d", unlocked, balance)
		}
		transferred, err := sc.scale(r.SlowWallet.Transferred)
		if err != nil {
			return err
		}
		u, err := ir.Uint(unlocked)
		if err != nil {
			return fmt.Errorf("slow wallet unlocked: %w", err)
		}
		t, err := ir.Uint(transferred)
		if err != nil {
			return fmt.Errorf("slow wallet transferred: %w", err)
		}
		if err := accumulate(&totals.SlowUnlocked, unlocked); err != nil {
			return err
		}
		if err := accumulate(&totals.SlowTransferred, transferred); err != nil {
			return err
		}
		if err := s.Execute(ctx, natives.SlowWalletSet, ir.Object{
			"address":     addr,
			"unlocked":    u,
			"transferred": t,
		}); err != nil {
			return err
		}
	}

	for _, name := range r.ResourceNames() {
		if err := s.Execute(ctx, natives.LegacyStoreResource, ir.Object{
			"address": addr,
			"name":    ir.String(name),
			"json":    ir.String(r.Resources[name]),
		}); err != nil {
			return fmt.Errorf("resource %s: %w", name, err)
		}
	}
	return nil
}
