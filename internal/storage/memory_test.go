package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/pkg/errors"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "key-1", []byte("payload")))

	got, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	assert.Equal(t, 1, s.Len())

	// Copies, not aliases.
	got[0] = 'X'
	again, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.New(errors.ErrCodeBlobNotFound, ""))

	ok, err := s.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "key", []byte("data")))
	require.NoError(t, s.Delete(ctx, "key"))

	ok, err := s.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is fine.
	assert.NoError(t, s.Delete(ctx, "key"))
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	err := NewMemoryStore().Put(context.Background(), "", []byte("data"))
	assert.True(t, errors.IsInvalidInput(err))
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "key", []byte("one")))
	require.NoError(t, s.Put(ctx, "key", []byte("two")))

	got, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
	assert.Equal(t, 1, s.Len())
}
