package vm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// FunctionID names an entry function, e.g. 0x1::genesis::initialize.
type FunctionID struct {
	Module   framework.ModuleID
	Function string
}

// Fn builds a FunctionID for a function of a core framework module.
func Fn(module, function string) FunctionID {
	return FunctionID{
		Module:   framework.ModuleID{Address: legacy.CoreAddress, Name: module},
		Function: function,
	}
}

// ParseFunctionID parses "<address>::<module>::<function>".
func ParseFunctionID(s string) (FunctionID, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return FunctionID{}, fmt.Errorf("invalid function id %q", s)
	}
	addr, err := legacy.ParseAddress(parts[0])
	if err != nil {
		return FunctionID{}, fmt.Errorf("invalid function id %q: %w", s, err)
	}
	return FunctionID{
		Module:   framework.ModuleID{Address: addr, Name: parts[1]},
		Function: parts[2],
	}, nil
}

func (f FunctionID) String() string {
	return f.Module.String() + "::" + f.Function
}

// SessionID seeds everything a session derives, such as table handles.
// Two sessions whose effects are combined must use distinct ids.
type SessionID [32]byte

// SessionIDAt returns the id whose last eight bytes hold n big-endian.
// Genesis uses SessionIDAt(0) and SessionIDAt(1).
func SessionIDAt(n uint64) SessionID {
	var id SessionID
	binary.BigEndian.PutUint64(id[24:], n)
	return id
}

// DeriveSessionID hashes a label into a session id.
func DeriveSessionID(label string) SessionID {
	return SessionID(ir.HashWithDomain(ir.DomainSession, []byte(label)))
}

func (id SessionID) String() string {
	return ir.Digest(id).String()
}
