package natives

import (
	"slices"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/vm"
)

// featuresSet enables and disables feature flags. The stored list is
// sorted and free of duplicates.
func featuresSet(call *vm.Call, args ir.Object) error {
	if err := requireInitialized(call); err != nil {
		return err
	}
	enable, err := flagList(args, "enable", true)
	if err != nil {
		return err
	}
	disable, err := flagList(args, "disable", false)
	if err != nil {
		return err
	}

	var current []int64
	if obj, ok, err := call.ReadObject(FeaturesKey); err != nil {
		return err
	} else if ok {
		arr, _ := obj["enabled"].(ir.Array)
		for _, v := range arr {
			if n, isInt := v.(ir.Int); isInt {
				current = append(current, int64(n))
			}
		}
	}

	current = append(current, enable...)
	current = slices.DeleteFunc(current, func(n int64) bool {
		return slices.Contains(disable, n)
	})
	slices.Sort(current)
	current = slices.Compact(current)

	enabled := make(ir.Array, len(current))
	for i, n := range current {
		enabled[i] = ir.Int(n)
	}
	return call.Write(FeaturesKey, ir.Object{"enabled": enabled})
}

func flagList(args ir.Object, name string, required bool) ([]int64, error) {
	if _, ok := args[name]; !ok && !required {
		return nil, nil
	}
	arr, err := argArray(args, name)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(arr))
	for _, v := range arr {
		n, ok := v.(ir.Int)
		if !ok || n < 0 {
			return nil, badArg(name, "feature flags must be non-negative integers")
		}
		out = append(out, int64(n))
	}
	return out, nil
}

func gasScheduleSet(call *vm.Call, args ir.Object) error {
	return replaceConfig(call, args, "schedule", GasScheduleKey, false)
}

func consensusConfigSet(call *vm.Call, args ir.Object) error {
	return replaceConfig(call, args, "config", ConsensusConfigKey, true)
}

func executionConfigSet(call *vm.Call, args ir.Object) error {
	return replaceConfig(call, args, "config", ExecutionConfigKey, true)
}

// replaceConfig overwrites an on-chain config after initialization.
func replaceConfig(call *vm.Call, args ir.Object, arg string, key changeset.StateKey, wrap bool) error {
	if err := requireInitialized(call); err != nil {
		return err
	}
	obj, err := argObject(args, arg)
	if err != nil {
		return err
	}
	if wrap {
		return call.Write(key, ir.Object{"config": obj})
	}
	return call.Write(key, obj)
}

func governanceInitialize(call *vm.Call, args ir.Object) error {
	if err := requireInitialized(call); err != nil {
		return err
	}
	if err := requireAbsent(call, GovernanceConfigKey, ErrAlreadyInitialized); err != nil {
		return err
	}
	cfg := ir.Object{}
	for _, name := range []string{"min_voting_threshold", "required_proposer_stake", "voting_duration_secs"} {
		n, err := argUint(args, name)
		if err != nil {
			return err
		}
		cfg[name] = ir.Int(n)
	}
	return call.Write(GovernanceConfigKey, cfg)
}

func governanceSetThreshold(call *vm.Call, args ir.Object) error {
	cfg, err := requireObject(call, GovernanceConfigKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	n, err := argUint(args, "min_voting_threshold")
	if err != nil {
		return err
	}
	cfg["min_voting_threshold"] = ir.Int(n)
	return call.Write(GovernanceConfigKey, cfg)
}

func requireInitialized(call *vm.Call) error {
	_, err := requireObject(call, ChainIDKey, ErrNotInitialized)
	return err
}
