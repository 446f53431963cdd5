package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// RecoveryRecord is one legacy account's exported state.
//
// Invariant (enforced by the repair pass, not by the snapshot):
// if Balance and SlowWallet are both present, SlowWallet.Unlocked <= Balance.Coin.
type RecoveryRecord struct {
	// Account is nil for malformed or placeholder records. Such records
	// are never migrated.
	Account *Address

	AuthKey    *AuthKey
	Balance    *Balance
	SlowWallet *SlowWallet

	// Resources holds every other snapshot member, compacted but otherwise
	// untouched.
	Resources map[string]json.RawMessage
}

// Balance is an account's total coin balance.
// Snapshots write it either as a bare integer or as {"coin": N}.
type Balance struct {
	Coin uint64 `json:"coin"`
}

// SlowWallet tracks the unlocked portion of a time-locked balance.
type SlowWallet struct {
	Unlocked    uint64 `json:"unlocked"`
	Transferred uint64 `json:"transferred"`
}

// MaxAmount is the largest coin amount a record may carry. Ledger state
// holds amounts as signed 64-bit integers.
const MaxAmount uint64 = math.MaxInt64

// CheckAmounts returns an error naming the first amount above MaxAmount.
func (r *RecoveryRecord) CheckAmounts() error {
	check := func(field string, v uint64) error {
		if v > MaxAmount {
			return fmt.Errorf("%s %d exceeds the largest migratable amount %d", field, v, MaxAmount)
		}
		return nil
	}
	if r.Balance != nil {
		if err := check("balance", r.Balance.Coin); err != nil {
			return err
		}
	}
	if r.SlowWallet != nil {
		if err := check("slow_wallet.unlocked", r.SlowWallet.Unlocked); err != nil {
			return err
		}
		if err := check("slow_wallet.transferred", r.SlowWallet.Transferred); err != nil {
			return err
		}
	}
	return nil
}

// Known member names. Anything else goes to Resources.
const (
	fieldAccount    = "account"
	fieldAuthKey    = "auth_key"
	fieldBalance    = "balance"
	fieldSlowWallet = "slow_wallet"
)

// Tombstone returns the record that replaces a dropped account: address
// preserved, sentinel auth key, everything else cleared.
func Tombstone(addr Address) RecoveryRecord {
	key := TombstoneAuthKey
	return RecoveryRecord{Account: &addr, AuthKey: &key}
}

// IsTombstone reports whether r carries the sentinel auth key.
func (r *RecoveryRecord) IsTombstone() bool {
	return r.AuthKey != nil && *r.AuthKey == TombstoneAuthKey
}

// Clone returns a deep copy.
func (r RecoveryRecord) Clone() RecoveryRecord {
	out := RecoveryRecord{}
	if r.Account != nil {
		a := *r.Account
		out.Account = &a
	}
	if r.AuthKey != nil {
		k := *r.AuthKey
		out.AuthKey = &k
	}
	if r.Balance != nil {
		b := *r.Balance
		out.Balance = &b
	}
	if r.SlowWallet != nil {
		s := *r.SlowWallet
		out.SlowWallet = &s
	}
	if r.Resources != nil {
		out.Resources = make(map[string]json.RawMessage, len(r.Resources))
		for k, v := range r.Resources {
			out.Resources[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// ResourceNames returns the opaque member names in sorted order.
func (r *RecoveryRecord) ResourceNames() []string {
	names := make([]string, 0, len(r.Resources))
	for k := range r.Resources {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// UnmarshalJSON implements json.Unmarshaler. A null known member is absent.
func (r *RecoveryRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RecoveryRecord{}
	for name, val := range raw {
		if isNull(val) && isKnown(name) {
			continue
		}
		var err error
		switch name {
		case fieldAccount:
			r.Account = new(Address)
			err = json.Unmarshal(val, r.Account)
		case fieldAuthKey:
			r.AuthKey = new(AuthKey)
			err = json.Unmarshal(val, r.AuthKey)
		case fieldBalance:
			r.Balance = new(Balance)
			err = json.Unmarshal(val, r.Balance)
		case fieldSlowWallet:
			r.SlowWallet = new(SlowWallet)
			err = json.Unmarshal(val, r.SlowWallet)
		default:
			if r.Resources == nil {
				r.Resources = make(map[string]json.RawMessage)
			}
			var compact bytes.Buffer
			if err = json.Compact(&compact, val); err == nil {
				r.Resources[name] = compact.Bytes()
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// MarshalJSON writes known members first, in a fixed order, then opaque
// resources sorted by name. Absent known members are omitted.
func (r RecoveryRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(name string, v any) error {
		var val []byte
		switch x := v.(type) {
		case json.RawMessage:
			val = x
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			val = b
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if r.Account != nil {
		if err := write(fieldAccount, r.Account); err != nil {
			return nil, err
		}
	}
	if r.AuthKey != nil {
		if err := write(fieldAuthKey, r.AuthKey); err != nil {
			return nil, err
		}
	}
	if r.Balance != nil {
		if err := write(fieldBalance, r.Balance); err != nil {
			return nil, err
		}
	}
	if r.SlowWallet != nil {
		if err := write(fieldSlowWallet, r.SlowWallet); err != nil {
			return nil, err
		}
	}
	for _, name := range r.ResourceNames() {
		if err := write(name, r.Resources[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a bare integer or {"coin": N}.
func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Coin *uint64 `json:"coin"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Coin == nil {
			return fmt.Errorf("balance object missing coin")
		}
		b.Coin = *obj.Coin
		return nil
	}
	return json.Unmarshal(data, &b.Coin)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isKnown(name string) bool {
	switch name {
	case fieldAccount, fieldAuthKey, fieldBalance, fieldSlowWallet:
		return true
	}
	return false
}
