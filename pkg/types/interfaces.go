package types

import "context"

// BlobStore is the single put/get-bytes capability the engine stores
// external payloads behind. Implementations must be safe for the
// serialized access discipline described in the package docs; they do
// not need to be safe for concurrent mutation of the same key.
type BlobStore interface {
	// Put stores data under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the bytes stored under key. A missing key is an
	// error, not a nil slice.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
