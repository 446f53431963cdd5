// Package ir provides the canonical value model shared by every state
// transition this module produces.
//
// Resource values, event payloads and artifact files are built from the
// sealed Value types in this package and serialized with MarshalCanonical,
// so identical inputs always produce identical bytes and identical hashes.
//
// Key design constraints:
//   - NO float types anywhere; integers are int64
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - Strings are NFC normalized at the serialization boundary
//   - Hashes are SHA-256 with a versioned domain prefix
//
// ir imports nothing internal.
package ir
