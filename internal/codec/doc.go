/*
Package codec implements the compression layer of the storage engine:
a common compress/decompress contract over several real codecs, plus
the selection policy that decides which codec (if any) an object
should be stored with.

Supported algorithms and the roles the selection policy assigns them:

  - lz4: cheapest/fastest, chosen under speed priority
  - brotli: text-oriented, chosen for printable-ASCII content
  - zstd: tuned for large payloads (over the configured size bound)
  - zlib: the balanced default
  - gzip: supported for compatibility, never auto-selected
  - none: inputs too small to be worth compressing

Every CompressedPayload carries an xxhash64 checksum of the original
bytes. Decompress recomputes it and fails with a corruption error on
mismatch; a checksum failure is never silently recovered.

Compression that does not clear the savings gate (ShouldCompress) is
discarded by callers, which then store the object raw. That decline is
normal control flow, not an error.
*/
package codec
