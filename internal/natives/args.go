package natives

import (
	"errors"
	"fmt"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// ErrBadArgument is wrapped by every argument decoding failure.
var ErrBadArgument = errors.New("bad argument")

func badArg(name, format string, a ...any) error {
	return fmt.Errorf("%w %q: %s", ErrBadArgument, name, fmt.Sprintf(format, a...))
}

func argUint(args ir.Object, name string) (int64, error) {
	v, ok := args[name]
	if !ok {
		return 0, badArg(name, "missing")
	}
	n, ok := v.(ir.Int)
	if !ok {
		return 0, badArg(name, "want integer, got %T", v)
	}
	if n < 0 {
		return 0, badArg(name, "negative value %d", n)
	}
	return int64(n), nil
}

func argString(args ir.Object, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", badArg(name, "missing")
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", badArg(name, "want string, got %T", v)
	}
	return string(s), nil
}

func argOptString(args ir.Object, name string) (string, error) {
	if _, ok := args[name]; !ok {
		return "", nil
	}
	return argString(args, name)
}

func argBool(args ir.Object, name string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, badArg(name, "missing")
	}
	b, ok := v.(ir.Bool)
	if !ok {
		return false, badArg(name, "want bool, got %T", v)
	}
	return bool(b), nil
}

func argObject(args ir.Object, name string) (ir.Object, error) {
	v, ok := args[name]
	if !ok {
		return nil, badArg(name, "missing")
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, badArg(name, "want object, got %T", v)
	}
	return obj, nil
}

func argArray(args ir.Object, name string) (ir.Array, error) {
	v, ok := args[name]
	if !ok {
		return nil, badArg(name, "missing")
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, badArg(name, "want array, got %T", v)
	}
	return arr, nil
}

func argAddress(args ir.Object, name string) (legacy.Address, error) {
	s, err := argString(args, name)
	if err != nil {
		return legacy.Address{}, err
	}
	addr, err := legacy.ParseAddress(s)
	if err != nil {
		return legacy.Address{}, badArg(name, "%v", err)
	}
	return addr, nil
}

func argAuthKey(args ir.Object, name string) (legacy.AuthKey, error) {
	s, err := argString(args, name)
	if err != nil {
		return legacy.AuthKey{}, err
	}
	key, err := legacy.ParseAuthKey(s)
	if err != nil {
		return legacy.AuthKey{}, badArg(name, "%v", err)
	}
	return key, nil
}

// Address returns addr as a call argument.
func Address(addr legacy.Address) ir.String {
	return ir.String(addr.String())
}

// AuthKey returns key as a call argument.
func AuthKey(key legacy.AuthKey) ir.String {
	return ir.String(key.String())
}
