// Package hashing provides the digest functions used around the
// storage engine: BLAKE3 content hashes for object identity and
// xxhash64 checksums for payload integrity.
//
// The engine itself treats content hashes as opaque fixed-length
// values supplied by the caller; this package exists so callers and
// tests have a concrete, stable way to derive them.
package hashing

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/gitcas/gitcas/pkg/types"
)

// ContentHash computes the BLAKE3 content hash of data. This is the
// dedup key: two byte sequences share a ContentHash iff they are
// identical.
func ContentHash(data []byte) types.Hash {
	return types.Hash(blake3.Sum256(data))
}

// Checksum computes the xxhash64 integrity checksum used on
// compressed payloads and pack units. Not collision-resistant;
// suitable only for corruption detection, never for identity.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ParseHash decodes a 64-character hex string into a content hash.
func ParseHash(s string) (types.Hash, error) {
	var h types.Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != types.HashSize {
		return h, hex.ErrLength
	}
	copy(h[:], b)
	return h, nil
}
