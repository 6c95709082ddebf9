package types

import (
	"encoding/hex"
	"time"
)

// HashSize is the length in bytes of a content hash.
const HashSize = 32

// Hash is a fixed-length content digest identifying an object's bytes.
// The engine treats it as opaque; pkg/hashing provides a BLAKE3
// implementation for callers that need to derive one.
type Hash [HashSize]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Less reports whether h sorts before other in byte order. Pack
// indexes keep their hash tables sorted with this ordering.
func (h Hash) Less(other Hash) bool {
	for i := 0; i < HashSize; i++ {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// Algorithm identifies a compression codec.
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmZlib   Algorithm = "zlib"
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmBrotli Algorithm = "brotli"
)

// StorageTier is the representation chosen for a stored object.
type StorageTier string

const (
	TierInline   StorageTier = "inline"
	TierChunked  StorageTier = "chunked"
	TierExternal StorageTier = "external"
	TierDelta    StorageTier = "delta"
	TierPacked   StorageTier = "packed"
)

// ObjectKind classifies an object in version-control terms. The kind
// participates in pack ordering and cache bookkeeping; the engine
// itself attaches no further semantics to it.
type ObjectKind string

const (
	KindBlob   ObjectKind = "blob"
	KindTree   ObjectKind = "tree"
	KindCommit ObjectKind = "commit"
	KindTag    ObjectKind = "tag"
)

// CompressedPayload is the output of the codec library: the compressed
// bytes plus enough metadata to validate and reverse the operation.
type CompressedPayload struct {
	Algorithm        Algorithm `json:"algorithm"`
	Level            int       `json:"level"`
	Data             []byte    `json:"-"`
	CompressedSize   int64     `json:"compressed_size"`
	UncompressedSize int64     `json:"uncompressed_size"`
	// Checksum is an xxhash64 digest of the uncompressed bytes.
	// Decompress recomputes it; a mismatch is a corruption error.
	Checksum uint64 `json:"checksum"`
}

// DeltaOp is the discriminator for a delta instruction.
type DeltaOp uint8

const (
	// OpCopy copies Length bytes starting at Offset in the base.
	OpCopy DeltaOp = iota
	// OpInsert appends literal bytes carried in the instruction.
	OpInsert
)

// DeltaInstruction is one step of a delta program. Copy instructions
// use Offset and Length; Insert instructions use Data.
type DeltaInstruction struct {
	Op     DeltaOp `json:"op"`
	Offset int64   `json:"offset,omitempty"`
	Length int64   `json:"length,omitempty"`
	Data   []byte  `json:"data,omitempty"`
}

// DeltaRecord expresses a target object as edits against a base
// object. Replaying Instructions in order against the base
// reconstructs exactly UncompressedSize bytes.
type DeltaRecord struct {
	BaseHash     Hash               `json:"base_hash"`
	TargetHash   Hash               `json:"target_hash"`
	Instructions []DeltaInstruction `json:"instructions"`
	// CompressedSize is the encoded size of the instruction stream,
	// the figure the savings gate compares against the target size.
	CompressedSize   int64 `json:"compressed_size"`
	UncompressedSize int64 `json:"uncompressed_size"`
	// ChainDepth is this record's distance from a non-delta root.
	// A delta against a plain object has depth 1. The engine caps
	// the depth to bound reconstruction cost.
	ChainDepth int `json:"chain_depth"`
}

// PackLocation points at an entry inside a built pack.
type PackLocation struct {
	PackID string `json:"pack_id"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// StoredObject is the descriptor returned by the write path and later
// dereferenced by the read path. Exactly one of InlinePayload,
// ExternalRef, Delta, or PackLocation characterizes how the raw bytes
// are recovered, consistent with Tier.
type StoredObject struct {
	ContentHash  Hash        `json:"content_hash"`
	Kind         ObjectKind  `json:"kind"`
	Tier         StorageTier `json:"tier"`
	StoredSize   int64       `json:"stored_size"`
	OriginalSize int64       `json:"original_size"`

	// Compression metadata for inline/external payloads.
	Algorithm  Algorithm `json:"algorithm"`
	Compressed bool      `json:"compressed"`
	Checksum   uint64    `json:"checksum,omitempty"`

	// Representations; exactly one is populated.
	InlinePayload []byte        `json:"-"`
	ExternalRef   string        `json:"external_ref,omitempty"`
	Delta         *DeltaRecord  `json:"delta,omitempty"`
	PackLocation  *PackLocation `json:"pack_location,omitempty"`

	RefCount  int64     `json:"ref_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ChainDepth returns the delta chain depth of the object: zero for
// non-delta representations.
func (o *StoredObject) ChainDepth() int {
	if o.Delta == nil {
		return 0
	}
	return o.Delta.ChainDepth
}

// PackedEntry is one object inside a pack: its stored (possibly
// compressed) bytes plus the metadata needed to extract and verify it.
type PackedEntry struct {
	Hash             Hash       `json:"hash"`
	Kind             ObjectKind `json:"kind"`
	Algorithm        Algorithm  `json:"algorithm"`
	Compressed       bool       `json:"compressed"`
	Data             []byte     `json:"-"`
	Size             int64      `json:"size"`
	UncompressedSize int64      `json:"uncompressed_size"`
	Checksum         uint64     `json:"checksum,omitempty"`
	CRC32            uint32     `json:"crc32"`
	DeltaBase        *Hash      `json:"delta_base,omitempty"`
}

// PackFormatVersion is the current pack layout version. Bump on any
// change to entry ordering, checksumming, or index derivation.
const PackFormatVersion uint32 = 1

// PackUnit bundles many stored objects into one unit. Objects are
// ordered by (kind, size, hash) and the aggregate Checksum is an
// xxhash64 digest over the stored entry payloads in that order.
type PackUnit struct {
	FormatVersion uint32        `json:"format_version"`
	ID            string        `json:"id"`
	Objects       []PackedEntry `json:"objects"`
	TotalSize     int64         `json:"total_size"`
	Checksum      uint64        `json:"checksum"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PackOffset is one row of a pack index offset table.
type PackOffset struct {
	Offset int64      `json:"offset"`
	Size   int64      `json:"size"`
	CRC32  uint32     `json:"crc32"`
	Kind   ObjectKind `json:"kind"`
	// EntryIndex is the position of the entry in PackUnit.Objects.
	EntryIndex int `json:"entry_index"`
}

// PackIndex makes a pack binary-searchable. Fanout holds, for each
// possible leading hash byte, the cumulative count of hashes whose
// leading byte is less than or equal to that value; Hashes is sorted
// ascending so a lookup narrows to a single fanout bucket before
// binary searching.
type PackIndex struct {
	PackID  string                `json:"pack_id"`
	Fanout  [256]uint32           `json:"fanout"`
	Hashes  []Hash                `json:"hashes"`
	Offsets map[Hash]PackOffset   `json:"offsets"`
}

// ObjectCount returns the number of objects the index covers.
func (ix *PackIndex) ObjectCount() int {
	return len(ix.Hashes)
}

// CachedEntry is one resident object copy in the object cache. The
// cache owns Data; it never aliases the backing store's buffer.
type CachedEntry struct {
	Hash         Hash       `json:"hash"`
	Kind         ObjectKind `json:"kind"`
	Data         []byte     `json:"-"`
	Size         int64      `json:"size"`
	CachedAt     time.Time  `json:"cached_at"`
	LastAccessed time.Time  `json:"last_accessed"`
	AccessCount  int64      `json:"access_count"`
}

// CacheStats is a point-in-time snapshot of cache behavior.
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	Promotions  uint64  `json:"promotions"`
	Demotions   uint64  `json:"demotions"`
	L1Entries   int     `json:"l1_entries"`
	L2Entries   int     `json:"l2_entries"`
	HitRate     float64 `json:"hit_rate"`
}

// WriteOutcome records which strategy the tiering pipeline settled on
// for a write, for logging and metrics.
type WriteOutcome string

const (
	OutcomeDedup      WriteOutcome = "dedup"
	OutcomeDelta      WriteOutcome = "delta"
	OutcomeCompressed WriteOutcome = "compressed"
	OutcomeRaw        WriteOutcome = "raw"
)
