// Package repair enforces invariants the legacy snapshot does not
// guarantee and applies the operator's drop list before genesis.
package repair

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/reforge/internal/legacy"
)

// SanitizedSuffix is appended to the snapshot name for the rewritten file.
const SanitizedSuffix = "_sanitized"

// Report is the audit output of a repair run.
// Clamped records were repaired, not rejected; callers must surface them.
type Report struct {
	Clamped       []legacy.Address `json:"clamped"`
	Dropped       []legacy.Address `json:"dropped"`
	SanitizedPath string           `json:"sanitized_path,omitempty"`
}

// FixSlowWallets clamps SlowWallet.Unlocked to Balance.Coin for every
// addressable record that has both, in place. It returns the clamped
// addresses in record order.
func FixSlowWallets(records []legacy.RecoveryRecord) []legacy.Address {
	var clamped []legacy.Address
	for i := range records {
		r := &records[i]
		if r.Account == nil || r.Balance == nil || r.SlowWallet == nil {
			continue
		}
		if r.SlowWallet.Unlocked > r.Balance.Coin {
			slog.Warn("clamping slow wallet unlocked to balance",
				"account", r.Account.String(),
				"unlocked", r.SlowWallet.Unlocked,
				"balance", r.Balance.Coin,
			)
			r.SlowWallet.Unlocked = r.Balance.Coin
			clamped = append(clamped, *r.Account)
		}
	}
	return clamped
}

// DropAccounts returns a copy of records where every record whose account
// is in drop is replaced by legacy.Tombstone. Other records are cloned
// unchanged. The second result lists tombstoned addresses in record order.
func DropAccounts(records []legacy.RecoveryRecord, drop []legacy.Address) ([]legacy.RecoveryRecord, []legacy.Address) {
	set := make(map[legacy.Address]struct{}, len(drop))
	for _, a := range drop {
		set[a] = struct{}{}
	}

	out := make([]legacy.RecoveryRecord, len(records))
	var dropped []legacy.Address
	for i, r := range records {
		if r.Account != nil {
			if _, ok := set[*r.Account]; ok {
				out[i] = legacy.Tombstone(*r.Account)
				dropped = append(dropped, *r.Account)
				continue
			}
		}
		out[i] = r.Clone()
	}
	return out, dropped
}

// SanitizedPath returns where the rewritten snapshot for path is stored:
// the same directory, with SanitizedSuffix before the extension.
func SanitizedPath(snapshotPath string) string {
	ext := filepath.Ext(snapshotPath)
	return strings.TrimSuffix(snapshotPath, ext) + SanitizedSuffix + ext
}

// ApplyDropFile tombstones the accounts listed in dropPath, persists the
// full sanitized record set next to the snapshot and returns it.
func ApplyDropFile(records []legacy.RecoveryRecord, snapshotPath, dropPath string) ([]legacy.RecoveryRecord, Report, error) {
	drop, err := LoadDropList(dropPath)
	if err != nil {
		return nil, Report{}, err
	}

	sanitized, dropped := DropAccounts(records, drop)
	if missing := len(drop) - len(dropped); missing > 0 {
		slog.Warn("drop list names accounts not present in snapshot", "missing", missing)
	}

	out := SanitizedPath(snapshotPath)
	if err := legacy.WriteRecoveryFile(out, sanitized); err != nil {
		return nil, Report{}, fmt.Errorf("persist sanitized snapshot: %w", err)
	}
	slog.Info("sanitized snapshot written", "path", out, "dropped", len(dropped))

	return sanitized, Report{Dropped: dropped, SanitizedPath: out}, nil
}

// Recover is the genesis input pipeline: parse the snapshot, clamp slow
// wallets, and, when dropPath is non-empty, apply the drop list.
func Recover(snapshotPath, dropPath string) ([]legacy.RecoveryRecord, Report, error) {
	records, err := legacy.ReadRecoveryFile(snapshotPath)
	if err != nil {
		return nil, Report{}, err
	}

	clamped := FixSlowWallets(records)
	report := Report{Clamped: clamped}

	if dropPath != "" {
		sanitized, dropReport, err := ApplyDropFile(records, snapshotPath, dropPath)
		if err != nil {
			return nil, Report{}, err
		}
		records = sanitized
		report.Dropped = dropReport.Dropped
		report.SanitizedPath = dropReport.SanitizedPath
	}

	return records, report, nil
}

// fileExists is used to refuse a drop list that points at a directory.
func fileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
