package natives

import (
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/vm"
)

// accountCreate creates an account with sequence number zero. When the
// auth key does not derive the address, the key is recorded in the
// originating-address table so later lookups by key find the account.
func accountCreate(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	key, err := argAuthKey(args, "authentication_key")
	if err != nil {
		return err
	}
	return createAccount(call, addr, key)
}

func createAccount(call *vm.Call, addr legacy.Address, key legacy.AuthKey) error {
	if err := requireAbsent(call, AccountKey(addr), ErrAccountExists); err != nil {
		return err
	}
	if err := call.Write(AccountKey(addr), ir.Object{
		"authentication_key": AuthKey(key),
		"sequence_number":    ir.Int(0),
	}); err != nil {
		return err
	}
	return recordOriginating(call, key, addr)
}

// accountRotateAuthKey replaces an account's auth key and moves its
// originating-address entry.
func accountRotateAuthKey(call *vm.Call, args ir.Object) error {
	addr, err := argAddress(args, "address")
	if err != nil {
		return err
	}
	next, err := argAuthKey(args, "new_authentication_key")
	if err != nil {
		return err
	}
	acct, err := requireObject(call, AccountKey(addr), ErrAccountNotFound)
	if err != nil {
		return err
	}
	prevText, _ := acct.Str("authentication_key")
	prev, err := legacy.ParseAuthKey(prevText)
	if err != nil {
		return fmt.Errorf("%s: %w", AccountKey(addr), err)
	}

	if mapped, ok, err := LookupOriginating(call, prev); err != nil {
		return err
	} else if ok && mapped == addr {
		handle, _, err := originatingHandle(call, false)
		if err != nil {
			return err
		}
		call.Delete(changeset.TableKey(handle, prev.String()))
	}

	acct["authentication_key"] = AuthKey(next)
	if err := call.Write(AccountKey(addr), acct); err != nil {
		return err
	}
	return recordOriginating(call, next, addr)
}

func requireAccount(call *vm.Call, addr legacy.Address) error {
	_, err := requireObject(call, AccountKey(addr), ErrAccountNotFound)
	return err
}

// recordOriginating maps key to addr. Keys that derive addr need no
// entry, and the tombstone key is never mapped. The first mapping of a
// key wins.
func recordOriginating(call *vm.Call, key legacy.AuthKey, addr legacy.Address) error {
	if key.Address() == addr || key == legacy.TombstoneAuthKey {
		return nil
	}
	handle, _, err := originatingHandle(call, true)
	if err != nil {
		return err
	}
	item := changeset.TableKey(handle, key.String())
	if ok, err := call.Exists(item); err != nil || ok {
		return err
	}
	return call.Write(item, Address(addr))
}

// LookupOriginating returns the account address recorded for key.
func LookupOriginating(call *vm.Call, key legacy.AuthKey) (legacy.Address, bool, error) {
	handle, ok, err := originatingHandle(call, false)
	if err != nil || !ok {
		return legacy.Address{}, false, err
	}
	val, ok, err := call.Read(changeset.TableKey(handle, key.String()))
	if err != nil || !ok {
		return legacy.Address{}, false, err
	}
	v, err := ir.ParseValue(val)
	if err != nil {
		return legacy.Address{}, false, err
	}
	s, isStr := v.(ir.String)
	if !isStr {
		return legacy.Address{}, false, fmt.Errorf("originating entry for %s is %T", key, v)
	}
	addr, err := legacy.ParseAddress(string(s))
	return addr, err == nil, err
}

func originatingHandle(call *vm.Call, create bool) (string, bool, error) {
	obj, ok, err := call.ReadObject(OriginatingAddressKey)
	if err != nil {
		return "", false, err
	}
	if ok {
		handle, isStr := obj.Str("handle")
		if !isStr {
			return "", false, fmt.Errorf("%s: handle is not a string", OriginatingAddressKey)
		}
		return handle, true, nil
	}
	if !create {
		return "", false, nil
	}
	handle := call.NewTableHandle()
	if err := call.Write(OriginatingAddressKey, ir.Object{"handle": ir.String(handle)}); err != nil {
		return "", false, err
	}
	return handle, true, nil
}

// resolveAddress applies the originating-address remapping: an address
// that is really a rotated auth key resolves to the account it belongs to.
func resolveAddress(call *vm.Call, addr legacy.Address) (legacy.Address, error) {
	mapped, ok, err := LookupOriginating(call, legacy.AuthKey(addr))
	if err != nil {
		return legacy.Address{}, err
	}
	if ok {
		return mapped, nil
	}
	return addr, nil
}
