/*
Package pack bundles many stored objects into a single unit with a
binary-searchable index, the way a version-control system packs loose
objects to cut per-object overhead.

Objects are ordered by (kind, size, hash) before packing — a stable
key chosen so similar objects sit near each other and the layout is
fully deterministic. Each entry is compressed independently through
the codec package (subject to the usual savings gate) and stamped
with a CRC32 (IEEE) of its stored bytes. An xxhash64 digest
accumulated over the stored entry payloads, in pack order, becomes
the pack's aggregate checksum.

The index is derived after packing: a 256-entry fanout table of
cumulative counts keyed by the hash's leading byte narrows a lookup
to one bucket of the sorted hash table, which is then binary
searched. The offset table maps each hash to its entry's position,
size, CRC, and kind.

Packs have a hard size ceiling; exceeding it during creation is a
capacity error, never a silent truncation.
*/
package pack
