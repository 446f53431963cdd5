package natives

import (
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/vm"
)

// reconfigureGenesis starts epoch 1. It must run after set_genesis_end
// and is the last action of genesis.
func reconfigureGenesis(call *vm.Call, _ ir.Object) error {
	done, err := genesisDone(call)
	if err != nil {
		return err
	}
	if !done {
		return ErrGenesisNotEnded
	}
	cfg, err := requireObject(call, ConfigurationKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	if epoch, _ := cfg.Int64("epoch"); epoch != 0 {
		return fmt.Errorf("%w: epoch is %d", ErrAlreadyInitialized, epoch)
	}
	return newEpoch(call, cfg, 1)
}

// reconfigure advances the epoch on a running chain.
func reconfigure(call *vm.Call, _ ir.Object) error {
	done, err := genesisDone(call)
	if err != nil {
		return err
	}
	if !done {
		return ErrGenesisNotEnded
	}
	cfg, err := requireObject(call, ConfigurationKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	epoch, err := field(cfg, "epoch")
	if err != nil {
		return err
	}
	next, err := add(epoch, 1)
	if err != nil {
		return err
	}
	return newEpoch(call, cfg, next)
}

func newEpoch(call *vm.Call, cfg ir.Object, epoch int64) error {
	cfg["epoch"] = ir.Int(epoch)
	if err := call.Write(ConfigurationKey, cfg); err != nil {
		return err
	}
	return call.Emit(NewEpochEvent, NewEpochEvent, ir.Object{"epoch": ir.Int(epoch)})
}
