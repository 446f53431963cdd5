package natives

import (
	"errors"
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/vm"
)

// Abort reasons. Natives wrap these so callers can match with errors.Is
// through the engine's *vm.ExecError.
var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrGenesisEnded       = errors.New("genesis already ended")
	ErrGenesisNotEnded    = errors.New("genesis not ended")
	ErrValidatorExists    = errors.New("validator already registered")
	ErrValidatorSetFrozen = errors.New("validator set changes are disabled")
	ErrStakeOutOfRange    = errors.New("stake outside configured bounds")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrOverflow           = errors.New("arithmetic overflow")
	ErrResourceNotFound   = errors.New("resource not found")
)

func requireObject(call *vm.Call, key changeset.StateKey, missing error) (ir.Object, error) {
	obj, ok, err := call.ReadObject(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", missing, key)
	}
	return obj, nil
}

func requireAbsent(call *vm.Call, key changeset.StateKey, present error) error {
	ok, err := call.Exists(key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", present, key)
	}
	return nil
}

func field(obj ir.Object, name string) (int64, error) {
	n, ok := obj.Int64(name)
	if !ok {
		return 0, fmt.Errorf("field %q missing or not an integer", name)
	}
	return n, nil
}

func add(a, b int64) (int64, error) {
	if b > 0 && a > (1<<63-1)-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

// adjustSupply adds delta to the coin's total supply.
func adjustSupply(call *vm.Call, delta int64) error {
	info, err := requireObject(call, CoinInfoKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	supply, err := field(info, "supply")
	if err != nil {
		return err
	}
	next, err := add(supply, delta)
	if err != nil {
		return err
	}
	if next < 0 {
		return fmt.Errorf("%w: supply would go negative", ErrInsufficientFunds)
	}
	info["supply"] = ir.Int(next)
	return call.Write(CoinInfoKey, info)
}
