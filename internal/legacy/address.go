package legacy

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/roach88/reforge/internal/ir"
)

// AddressLength is the byte length of an account address.
const AddressLength = 32

// Address is a 32-byte account address.
// Shorter legacy addresses are left-padded with zeros.
type Address [AddressLength]byte

// CoreAddress is 0x1, the address framework modules and genesis
// resources live under.
var CoreAddress = Address{31: 0x01}

// ParseAddress accepts hex with or without a 0x prefix and up to 64 digits.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := parseHex32(s)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns 0x followed by 64 lowercase hex digits.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short trims leading zero digits, e.g. 0x1.
func (a Address) Short() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AuthKey is a 32-byte authentication key.
type AuthKey [32]byte

// TombstoneAuthKey is the sentinel credential given to dropped accounts.
// It is a domain-separated hash, not the derivation of any public key,
// so no private key can ever sign for it.
var TombstoneAuthKey = AuthKey(ir.HashWithDomain(ir.DomainTombstone, nil))

// ParseAuthKey accepts hex with or without a 0x prefix.
func ParseAuthKey(s string) (AuthKey, error) {
	var k AuthKey
	b, err := parseHex32(s)
	if err != nil {
		return k, fmt.Errorf("parse auth key %q: %w", s, err)
	}
	copy(k[:], b)
	return k, nil
}

// String returns 64 lowercase hex digits without prefix.
func (k AuthKey) String() string {
	return hex.EncodeToString(k[:])
}

// Address returns the address an unrotated key derives to.
func (k AuthKey) Address() Address {
	return Address(k)
}

// MarshalText implements encoding.TextMarshaler.
func (k AuthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AuthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func parseHex32(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty hex")
	}
	if len(s) > 64 {
		return nil, fmt.Errorf("too long: %d hex digits", len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 32)
	copy(out[32-len(raw):], raw)
	return out, nil
}
