package rescue

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
)

// PayloadFileName is the file WritePayload creates in its directory.
const PayloadFileName = "rescue.blob"

// Payload is the result of Phase 1: a change set computed against
// BaseVersion. It applies only at BaseVersion+1.
type Payload struct {
	BaseVersion uint64
	ChangeSet   *changeset.ChangeSet
}

// Validate checks that the payload holds only writes and events.
func (p *Payload) Validate() error {
	if p.ChangeSet == nil {
		return fmt.Errorf("%w: no change set", ErrMalformedPayload)
	}
	if p.ChangeSet.HasDeltas() {
		return ErrUnexpectedDelta
	}
	if n := p.ChangeSet.Deletions(); n > 0 {
		return fmt.Errorf("%w: %d keys", ErrUnexpectedDeletion, n)
	}
	return nil
}

// Encode returns the canonical JSON form:
//
//	{"base_version":N,"changeset":{…}}
func (p *Payload) Encode() ([]byte, error) {
	base, err := ir.Uint(p.BaseVersion)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	cs, err := p.ChangeSet.ToValue()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return ir.MarshalCanonical(ir.Object{"base_version": base, "changeset": cs})
}

// DecodePayload parses and validates the canonical form.
func DecodePayload(data []byte) (*Payload, error) {
	obj, err := ir.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	base, ok := obj.Int64("base_version")
	if !ok || base < 0 {
		return nil, fmt.Errorf("%w: missing or negative base_version", ErrMalformedPayload)
	}
	raw, ok := obj["changeset"].(ir.Object)
	if !ok {
		return nil, fmt.Errorf("%w: missing changeset", ErrMalformedPayload)
	}
	cs, err := changeset.FromValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	p := &Payload{BaseVersion: uint64(base), ChangeSet: cs}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePayload writes the payload to <dir>/rescue.blob and returns the
// path. Identical payloads give byte-identical files.
func (p *Payload) WritePayload(dir string) (string, error) {
	data, err := p.Encode()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	path := filepath.Join(dir, PayloadFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	return path, nil
}

// ReadPayload reads a payload file.
func ReadPayload(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	p, err := DecodePayload(data)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", path, err)
	}
	return p, nil
}
