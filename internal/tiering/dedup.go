package tiering

import (
	"sync"

	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

// DedupRegistry maps content hashes to their canonical stored object.
// At most one canonical object exists per distinct hash; duplicate
// writes bump its reference count instead of creating new storage.
//
// The registry's lifetime is tied to the engine instance that owns
// it. It is an ordinary in-process structure guarded by a mutex.
type DedupRegistry struct {
	mu      sync.RWMutex
	objects map[types.Hash]*types.StoredObject
}

// NewDedupRegistry creates an empty registry.
func NewDedupRegistry() *DedupRegistry {
	return &DedupRegistry{
		objects: make(map[types.Hash]*types.StoredObject),
	}
}

// Lookup returns the canonical object for hash, or nil.
func (r *DedupRegistry) Lookup(hash types.Hash) *types.StoredObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[hash]
}

// Register records obj as the canonical object for its content hash.
// Registering a hash that already has a canonical object is a logic
// error; callers must go through Lookup first.
func (r *DedupRegistry) Register(obj *types.StoredObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[obj.ContentHash]; exists {
		return errors.Newf(errors.ErrCodeInvalidInput, "hash %s already registered", obj.ContentHash).
			In("dedup").During("register")
	}
	r.objects[obj.ContentHash] = obj
	return nil
}

// IncrementRef bumps the reference count of the canonical object.
func (r *DedupRegistry) IncrementRef(hash types.Hash) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[hash]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeObjectNotFound, "no object for hash %s", hash).In("dedup").During("increment_ref")
	}
	obj.RefCount++
	return obj.RefCount, nil
}

// DecrementRef drops the reference count. Reaching zero marks the
// object eligible for reclamation by an external collector; going
// below zero is a fatal logic error.
func (r *DedupRegistry) DecrementRef(hash types.Hash) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[hash]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeObjectNotFound, "no object for hash %s", hash).In("dedup").During("decrement_ref")
	}
	if obj.RefCount <= 0 {
		return 0, errors.Newf(errors.ErrCodeRefUnderflow, "object %s already at %d references", hash, obj.RefCount).
			In("dedup").During("decrement_ref")
	}
	obj.RefCount--
	return obj.RefCount, nil
}

// Reclaimable lists hashes whose reference count has reached zero.
// The registry does not delete them itself.
func (r *DedupRegistry) Reclaimable() []types.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.Hash
	for hash, obj := range r.objects {
		if obj.RefCount == 0 {
			out = append(out, hash)
		}
	}
	return out
}

// Forget removes a zero-reference object from the registry, for use
// by the external collector after it has reclaimed the storage.
func (r *DedupRegistry) Forget(hash types.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[hash]
	if !ok {
		return nil
	}
	if obj.RefCount != 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "object %s still has %d references", hash, obj.RefCount).
			In("dedup").During("forget")
	}
	delete(r.objects, hash)
	return nil
}

// Len returns the number of canonical objects.
func (r *DedupRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
