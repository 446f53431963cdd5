package genesis

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/reforge/internal/legacy"
)

// scaler maps legacy coin amounts onto the target supply:
// scaled = floor(amount * target / legacyTotal), in 256-bit arithmetic.
// The zero scaler is the identity.
type scaler struct {
	target *uint256.Int
	total  *uint256.Int
}

func newScaler(settings SupplySettings, legacyTotal uint64) scaler {
	if settings.TargetSupply == 0 || legacyTotal == 0 {
		return scaler{}
	}
	return scaler{
		target: uint256.NewInt(settings.TargetSupply),
		total:  uint256.NewInt(legacyTotal),
	}
}

func (s scaler) identity() bool { return s.target == nil }

func (s scaler) scale(amount uint64) (uint64, error) {
	if s.identity() {
		return amount, nil
	}
	var x uint256.Int
	x.Mul(uint256.NewInt(amount), s.target)
	x.Div(&x, s.total)
	if !x.IsUint64() {
		return 0, fmt.Errorf("scaled amount %s overflows u64", x.Dec())
	}
	return x.Uint64(), nil
}

// supplyTotals is what migration writes to supply::Supply.
type supplyTotals struct {
	Total           uint64
	SlowUnlocked    uint64
	SlowTransferred uint64
	Escrow          uint64
}

func accumulate(field *uint64, v uint64) error {
	if *field+v < *field {
		return fmt.Errorf("supply total overflows u64")
	}
	*field += v
	return nil
}

// escrow returns pct percent of total, floored.
func escrow(total, pct uint64) uint64 {
	var x uint256.Int
	x.Mul(uint256.NewInt(total), uint256.NewInt(pct))
	x.Div(&x, uint256.NewInt(100))
	return x.Uint64()
}

// legacyTotal sums the balances that migration will credit.
func legacyTotal(records []legacy.RecoveryRecord) (uint64, error) {
	stats, err := legacy.Summarize(records)
	if err != nil {
		return 0, err
	}
	return stats.TotalBalance, nil
}
