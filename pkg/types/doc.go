/*
Package types defines the shared data model of the storage optimization
engine: object descriptors, compressed payloads, delta records, pack
units and their indexes, cache entries, and the statistics structs
reported by each component.

Everything in this package is plain data. The behavior lives in the
internal packages (codec, delta, pack, tiering, cache) and in
pkg/engine, which wires them together. Keeping the model here avoids
import cycles between those packages and gives the surrounding
commit/tree layer a single vocabulary for persisted descriptors.

# Object representations

A StoredObject describes exactly one way to recover the original
bytes, consistent with its Tier:

  - Inline/Chunked/External: a compressed or raw payload, held inline
    in the descriptor or behind a BlobStore key
  - Delta: a DeltaRecord replayed against a base object
  - Packed: an offset into a PackUnit

The engine never stores more than one representation for the same
object; the dedup registry guarantees at most one canonical
StoredObject per content hash.
*/
package types
