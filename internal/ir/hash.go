package ir

import (
	"crypto/sha256"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainChangeSet = "reforge/changeset/v1"
	DomainStateLeaf = "reforge/state-leaf/v1"
	DomainStateNode = "reforge/state-node/v1"
	DomainStateKey  = "reforge/state-key/v1"
	DomainSession   = "reforge/session/v1"
	DomainTombstone = "reforge/tombstone/v1"
)

// Digest is a SHA-256 output.
type Digest [32]byte

// String returns lowercase hex without prefix.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// HashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) Digest {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// HashCanonical hashes the canonical JSON form of v under domain.
func HashCanonical(domain string, v any) (Digest, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", domain, err)
	}
	return HashWithDomain(domain, data), nil
}
