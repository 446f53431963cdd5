package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMalformedSnapshot matches every snapshot read or decode failure.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// MalformedSnapshotError reports why a snapshot could not be used at all.
// There is no partial result when this is returned.
type MalformedSnapshotError struct {
	Path string
	Err  error
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedSnapshot, e.Path, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedSnapshot) match.
func (e *MalformedSnapshotError) Is(target error) bool {
	return target == ErrMalformedSnapshot
}

// ReadRecoveryFile parses a snapshot into records, preserving file order.
func ReadRecoveryFile(path string) ([]RecoveryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MalformedSnapshotError{Path: path, Err: err}
	}
	records, err := ParseRecovery(data)
	if err != nil {
		return nil, &MalformedSnapshotError{Path: path, Err: err}
	}
	return records, nil
}

// ParseRecovery decodes snapshot bytes. A top-level null is rejected, as
// is any record carrying an amount above MaxAmount.
func ParseRecovery(data []byte) ([]RecoveryRecord, error) {
	var records []RecoveryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("snapshot is not a JSON array")
	}
	for i := range records {
		if err := records[i].CheckAmounts(); err != nil {
			if a := records[i].Account; a != nil {
				return nil, fmt.Errorf("record %d (account=%s): %w", i, a, err)
			}
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// WriteRecoveryFile writes records as indented JSON. The file is written
// to a temporary sibling and renamed, so readers never see a partial file.
func WriteRecoveryFile(path string, records []RecoveryRecord) error {
	if records == nil {
		records = []RecoveryRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("write recovery file: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Stats summarizes a record set.
type Stats struct {
	Records      int    `json:"records"`
	Addressable  int    `json:"addressable"`
	SlowWallets  int    `json:"slow_wallets"`
	Tombstones   int    `json:"tombstones"`
	TotalBalance uint64 `json:"total_balance"`
	SlowLocked   uint64 `json:"slow_locked"`
}

// Summarize computes Stats over addressable records.
func Summarize(records []RecoveryRecord) (Stats, error) {
	s := Stats{Records: len(records)}
	for _, r := range records {
		if r.Account == nil {
			continue
		}
		s.Addressable++
		if r.IsTombstone() {
			s.Tombstones++
		}
		var coin uint64
		if r.Balance != nil {
			coin = r.Balance.Coin
			if s.TotalBalance+coin < s.TotalBalance {
				return s, fmt.Errorf("total balance overflows at %s", r.Account)
			}
			s.TotalBalance += coin
		}
		if r.SlowWallet != nil {
			s.SlowWallets++
			if coin > r.SlowWallet.Unlocked {
				s.SlowLocked += coin - r.SlowWallet.Unlocked
			}
		}
	}
	return s, nil
}
