package natives

import (
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/vm"
)

// stakeInitializeValidator registers a validator and adds it to the
// active set.
//
// Owner and operator addresses go through the originating-address table,
// so a validator configured by the address its rotated key derives lands
// on the migrated account. Missing accounts are created.
func stakeInitializeValidator(call *vm.Call, args ir.Object) error {
	cfg, err := requireObject(call, StakingConfigKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	done, err := genesisDone(call)
	if err != nil {
		return err
	}
	if allow, _ := cfg["allow_validator_set_change"].(ir.Bool); done && !bool(allow) {
		return ErrValidatorSetFrozen
	}

	key, err := argAuthKey(args, "authentication_key")
	if err != nil {
		return err
	}
	owner := key.Address()
	if s, err := argOptString(args, "owner_address"); err != nil {
		return err
	} else if s != "" {
		if owner, err = legacy.ParseAddress(s); err != nil {
			return badArg("owner_address", "%v", err)
		}
	}
	if owner, err = resolveAddress(call, owner); err != nil {
		return err
	}

	operator := owner
	if s, err := argOptString(args, "operator_address"); err != nil {
		return err
	} else if s != "" {
		if operator, err = legacy.ParseAddress(s); err != nil {
			return badArg("operator_address", "%v", err)
		}
		if operator, err = resolveAddress(call, operator); err != nil {
			return err
		}
	}

	pubkey, err := argString(args, "consensus_pubkey")
	if err != nil {
		return err
	}
	netAddrs, err := argArray(args, "network_addresses")
	if err != nil {
		return err
	}
	for _, v := range netAddrs {
		if _, ok := v.(ir.String); !ok {
			return badArg("network_addresses", "entries must be strings")
		}
	}
	stake, err := argUint(args, "stake")
	if err != nil {
		return err
	}
	minStake, _ := cfg.Int64("min_stake")
	maxStake, _ := cfg.Int64("max_stake")
	if stake < minStake || stake > maxStake {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrStakeOutOfRange, stake, minStake, maxStake)
	}

	if err := requireAbsent(call, StakePoolKey(owner), ErrValidatorExists); err != nil {
		return err
	}
	if err := ensureAccount(call, owner, key); err != nil {
		return err
	}
	if operator != owner {
		if err := ensureAccount(call, operator, legacy.AuthKey(operator)); err != nil {
			return err
		}
	}

	set, err := requireObject(call, ValidatorSetKey, ErrNotInitialized)
	if err != nil {
		return err
	}
	active, _ := set["active_validators"].(ir.Array)
	index := len(active)
	total, err := field(set, "total_voting_power")
	if err != nil {
		return err
	}
	if total, err = add(total, stake); err != nil {
		return err
	}
	set["active_validators"] = append(active, ir.Object{
		"addr":         Address(owner),
		"voting_power": ir.Int(stake),
	})
	set["total_voting_power"] = ir.Int(total)

	if err := call.Write(ValidatorSetKey, set); err != nil {
		return err
	}
	if err := call.Write(StakePoolKey(owner), ir.Object{
		"active":           ir.Int(stake),
		"operator_address": Address(operator),
	}); err != nil {
		return err
	}
	if err := call.Write(ValidatorConfigKey(owner), ir.Object{
		"consensus_pubkey":  ir.String(pubkey),
		"network_addresses": netAddrs,
		"validator_index":   ir.Int(int64(index)),
	}); err != nil {
		return err
	}
	return adjustSupply(call, stake)
}

func stakeSetOperator(call *vm.Call, args ir.Object) error {
	owner, err := argAddress(args, "owner")
	if err != nil {
		return err
	}
	operator, err := argAddress(args, "operator")
	if err != nil {
		return err
	}
	pool, err := requireObject(call, StakePoolKey(owner), ErrResourceNotFound)
	if err != nil {
		return err
	}
	if operator, err = resolveAddress(call, operator); err != nil {
		return err
	}
	pool["operator_address"] = Address(operator)
	return call.Write(StakePoolKey(owner), pool)
}

func ensureAccount(call *vm.Call, addr legacy.Address, key legacy.AuthKey) error {
	ok, err := call.Exists(AccountKey(addr))
	if err != nil || ok {
		return err
	}
	return createAccount(call, addr, key)
}
