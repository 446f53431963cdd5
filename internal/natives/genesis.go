package natives

import (
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/vm"
)

// genesisInitialize writes the chain's core configuration. It runs once.
func genesisInitialize(call *vm.Call, args ir.Object) error {
	if err := requireAbsent(call, ChainIDKey, ErrAlreadyInitialized); err != nil {
		return err
	}

	chainID, err := argUint(args, "chain_id")
	if err != nil {
		return err
	}
	if chainID == 0 || chainID > 255 {
		return badArg("chain_id", "must be in 1..255, got %d", chainID)
	}
	consensus, err := argObject(args, "consensus_config")
	if err != nil {
		return err
	}
	execution, err := argObject(args, "execution_config")
	if err != nil {
		return err
	}
	gas, err := argObject(args, "gas_schedule")
	if err != nil {
		return err
	}

	staking := ir.Object{}
	for _, name := range []string{
		"epoch_interval_microsecs",
		"min_stake",
		"max_stake",
		"recurring_lockup_duration_secs",
		"rewards_apy_percentage",
		"voting_power_increase_limit",
	} {
		n, err := argUint(args, name)
		if err != nil {
			return err
		}
		staking[name] = ir.Int(n)
	}
	allow, err := argBool(args, "allow_validator_set_change")
	if err != nil {
		return err
	}
	staking["allow_validator_set_change"] = ir.Bool(allow)
	if staking["min_stake"].(ir.Int) > staking["max_stake"].(ir.Int) {
		return badArg("min_stake", "exceeds max_stake")
	}

	writes := []struct {
		key   changeset.StateKey
		value ir.Value
	}{
		{ChainIDKey, ir.Object{"id": ir.Int(chainID)}},
		{ConsensusConfigKey, ir.Object{"config": consensus}},
		{ExecutionConfigKey, ir.Object{"config": execution}},
		{GasScheduleKey, gas},
		{StakingConfigKey, staking},
		{ValidatorSetKey, ir.Object{"active_validators": ir.Array{}, "total_voting_power": ir.Int(0)}},
		{ConfigurationKey, ir.Object{"epoch": ir.Int(0), "last_reconfiguration_time": ir.Int(0)}},
		{GenesisStateKey, ir.Object{"done": ir.Bool(false)}},
	}
	for _, w := range writes {
		if err := call.Write(w.key, w.value); err != nil {
			return err
		}
	}
	return nil
}

// genesisSetEnd marks genesis complete and emits GenesisEndEvent.
func genesisSetEnd(call *vm.Call, _ ir.Object) error {
	state, err := requireObject(call, GenesisStateKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	if done, _ := state["done"].(ir.Bool); done {
		return ErrGenesisEnded
	}
	if err := call.Write(GenesisStateKey, ir.Object{"done": ir.Bool(true)}); err != nil {
		return err
	}
	return call.Emit(GenesisEndEvent, GenesisEndEvent, ir.Object{})
}

func genesisDone(call *vm.Call) (bool, error) {
	state, err := requireObject(call, GenesisStateKey, ErrNotInitialized)
	if err != nil {
		return false, err
	}
	done, ok := state["done"].(ir.Bool)
	if !ok {
		return false, fmt.Errorf("%s: done is not a bool", GenesisStateKey)
	}
	return bool(done), nil
}
