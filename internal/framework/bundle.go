// Package framework loads framework module bundles: ordered
// (module id, code) pairs that genesis seeds into state and that rescue
// upgrades publish. The core only iterates and forwards modules.
package framework

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// ModuleID names a module by its publishing address and name.
type ModuleID struct {
	Address legacy.Address
	Name    string
}

// String renders the id as 0x1::coin.
func (id ModuleID) String() string {
	return id.Address.Short() + "::" + id.Name
}

// Module is one compiled module.
type Module struct {
	Address legacy.Address `json:"address"`
	Name    string         `json:"name"`
	Code    []byte         `json:"code"`
}

// ID returns the module's identity.
func (m Module) ID() ModuleID {
	return ModuleID{Address: m.Address, Name: m.Name}
}

// Bundle is an ordered release of modules.
type Bundle struct {
	Name    string   `json:"name"`
	Modules []Module `json:"modules"`
}

// Load reads a bundle file (.mrb): JSON with base64 module code.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", path, err)
	}
	return &b, nil
}

// Save writes the bundle in the format Load reads.
func (b *Bundle) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate rejects empty bundles, empty code and duplicate module ids.
func (b *Bundle) Validate() error {
	if len(b.Modules) == 0 {
		return fmt.Errorf("bundle %q has no modules", b.Name)
	}
	seen := make(map[ModuleID]struct{}, len(b.Modules))
	for i, m := range b.Modules {
		if m.Name == "" {
			return fmt.Errorf("module %d has no name", i)
		}
		if len(m.Code) == 0 {
			return fmt.Errorf("module %s has no code", m.ID())
		}
		if _, dup := seen[m.ID()]; dup {
			return fmt.Errorf("duplicate module %s", m.ID())
		}
		seen[m.ID()] = struct{}{}
	}
	return nil
}

// CodeAndModules returns the modules in bundle order.
func (b *Bundle) CodeAndModules() []Module {
	out := make([]Module, len(b.Modules))
	copy(out, b.Modules)
	return out
}

// Digest identifies the bundle content; the name is not included.
func (b *Bundle) Digest() (ir.Digest, error) {
	mods := make(ir.Array, len(b.Modules))
	for i, m := range b.Modules {
		mods[i] = ir.Object{
			"address": ir.String(m.Address.String()),
			"name":    ir.String(m.Name),
			"code":    ir.Bytes(m.Code),
		}
	}
	return ir.HashCanonical("reforge/bundle/v1", mods)
}
