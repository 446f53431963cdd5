package natives

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/vm"
)

func slowWalletSet(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	unlocked, err := argUint(args, "unlocked")
	if err != nil {
		return err
	}
	transferred, err := argUint(args, "transferred")
	if err != nil {
		return err
	}
	if err := requireAccount(call, addr); err != nil {
		return err
	}
	return call.Write(SlowWalletKey(addr), ir.Object{
		"transferred": ir.Int(transferred),
		"unlocked":    ir.Int(unlocked),
	})
}

// legacyStoreResource carries an opaque legacy resource into state. The
// JSON text is stored as a string and never interpreted.
func legacyStoreResource(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	name, err := argString(args, "name")
	if err != nil {
		return err
	}
	if name == "" {
		return badArg("name", "empty resource name")
	}
	raw, err := argString(args, "json")
	if err != nil {
		return err
	}
	if !json.Valid([]byte(raw)) {
		return badArg("json", "not valid JSON")
	}
	if err := requireAccount(call, addr); err != nil {
		return err
	}
	return call.Write(LegacyResourceKey(addr, name), ir.Object{"json": ir.String(raw)})
}

func legacyRemoveResource(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	name, err := argString(args, "name")
	if err != nil {
		return err
	}
	key := LegacyResourceKey(addr, name)
	if _, err := requireObject(call, key, ErrResourceNotFound); err != nil {
		return err
	}
	call.Delete(key)
	return nil
}

// supplyInitialize records the supply accounting of the migration.
func supplyInitialize(call *vm.Call, args ir.Object) error {
	if err := requireInitialized(call); err != nil {
		return err
	}
	if err := requireAbsent(call, SupplyKey, ErrAlreadyInitialized); err != nil {
		return err
	}
	supply := ir.Object{}
	for _, name := range []string{"total", "slow_unlocked", "slow_transferred", "target", "escrow_pct", "escrow"} {
		n, err := argUint(args, name)
		if err != nil {
			return err
		}
		supply[name] = ir.Int(n)
	}
	if pct := supply["escrow_pct"].(ir.Int); pct > 100 {
		return badArg("escrow_pct", "must be at most 100, got %d", pct)
	}
	if supply["escrow"].(ir.Int) > supply["total"].(ir.Int) {
		return badArg("escrow", "exceeds total supply")
	}
	if err := call.Write(SupplyKey, supply); err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	return nil
}
