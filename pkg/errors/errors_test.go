package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeEmptyPayload, CategoryInput},
		{ErrCodeLevelOutOfRange, CategoryInput},
		{ErrCodeChecksumMismatch, CategoryCorruption},
		{ErrCodeCRCMismatch, CategoryCorruption},
		{ErrCodePackSizeExceeded, CategoryCapacity},
		{ErrCodeRefUnderflow, CategoryStorage},
		{ErrCodeInvalidConfig, CategoryConfig},
		{ErrorCode("SOMETHING_NEW"), CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").Category)
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New(ErrCodeChecksumMismatch, "digest does not match").In("codec").During("decompress")
	assert.Equal(t, "[codec:decompress] CHECKSUM_MISMATCH: digest does not match", err.Error())

	bare := New(ErrCodeInternal, "boom")
	assert.Equal(t, "INTERNAL_ERROR: boom", bare.Error())
}

func TestIsMatchesOnCode(t *testing.T) {
	err := Newf(ErrCodePackSizeExceeded, "pack is %d bytes", 42).In("pack")
	assert.True(t, stderrors.Is(err, New(ErrCodePackSizeExceeded, "")))
	assert.False(t, stderrors.Is(err, New(ErrCodeCacheFull, "")))
}

func TestWrapUnwraps(t *testing.T) {
	cause := fmt.Errorf("read failed")
	err := Wrap(ErrCodeStorageRead, "blob fetch", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestCategoryPredicates(t *testing.T) {
	assert.True(t, IsCorruption(New(ErrCodeDeltaCorrupt, "x")))
	assert.True(t, IsCapacity(New(ErrCodeCacheFull, "x")))
	assert.True(t, IsInvalidInput(New(ErrCodeEmptyPayload, "x")))
	assert.False(t, IsCorruption(New(ErrCodeCacheFull, "x")))
	assert.False(t, IsCorruption(fmt.Errorf("plain")))

	// Predicates see through one layer of fmt wrapping.
	wrapped := fmt.Errorf("outer: %w", New(ErrCodeCRCMismatch, "x"))
	assert.True(t, IsCorruption(wrapped))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeCRCMismatch, "entry damaged").
		WithDetail("expected", uint32(1)).
		WithDetail("actual", uint32(2))
	assert.Len(t, err.Details, 2)
	assert.Contains(t, err.String(), "Code=CRC_MISMATCH")
}
