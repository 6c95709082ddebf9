package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash([]byte("the same bytes"))
	b := ContentHash([]byte("the same bytes"))
	c := ContentHash([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
}

func TestChecksumDetectsChange(t *testing.T) {
	data := []byte("payload under checksum")
	sum := Checksum(data)

	flipped := append([]byte(nil), data...)
	flipped[3] ^= 0x01
	assert.NotEqual(t, sum, Checksum(flipped))
	assert.Equal(t, sum, Checksum(data))
}

func TestParseHashRoundTrip(t *testing.T) {
	h := ContentHash([]byte("round trip"))
	parsed, err := ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHash("zz")
	assert.Error(t, err)

	_, err = ParseHash("abcd")
	assert.Error(t, err)
}
