package natives

import (
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/vm"
)

func coinInitialize(call *vm.Call, args ir.Object) error {
	if err := requireInitialized(call); err != nil {
		return err
	}
	if err := requireAbsent(call, CoinInfoKey, ErrAlreadyInitialized); err != nil {
		return err
	}
	name, err := argString(args, "name")
	if err != nil {
		return err
	}
	symbol, err := argString(args, "symbol")
	if err != nil {
		return err
	}
	decimals, err := argUint(args, "decimals")
	if err != nil {
		return err
	}
	return call.Write(CoinInfoKey, ir.Object{
		"decimals": ir.Int(decimals),
		"name":     ir.String(name),
		"supply":   ir.Int(0),
		"symbol":   ir.String(symbol),
	})
}

// coinMintTo credits amount to an existing account and grows supply.
func coinMintTo(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	amount, err := argUint(args, "amount")
	if err != nil {
		return err
	}
	if err := requireAccount(call, addr); err != nil {
		return err
	}
	balance, err := coinBalance(call, addr)
	if err != nil {
		return err
	}
	next, err := add(balance, amount)
	if err != nil {
		return fmt.Errorf("mint to %s: %w", addr.Short(), err)
	}
	if err := call.Write(CoinStoreKey(addr), ir.Object{"value": ir.Int(next)}); err != nil {
		return err
	}
	return adjustSupply(call, amount)
}

// coinBurnFrom debits amount and shrinks supply.
func coinBurnFrom(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	amount, err := argUint(args, "amount")
	if err != nil {
		return err
	}
	balance, err := coinBalance(call, addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, burn %d", ErrInsufficientFunds, addr.Short(), balance, amount)
	}
	if err := call.Write(CoinStoreKey(addr), ir.Object{"value": ir.Int(balance - amount)}); err != nil {
		return err
	}
	return adjustSupply(call, -amount)
}

func coinBalance(call *vm.Call, addr legacy.Address) (int64, error) {
	store, ok, err := call.ReadObject(CoinStoreKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	return field(store, "value")
}
