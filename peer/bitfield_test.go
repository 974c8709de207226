package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitfieldGetSet(t *testing.T) {
	bf := NewEmptyBitfield(10)
	assert.False(t, bf.Get(3))
	bf.Set(3)
	assert.True(t, bf.Get(3))
	bf.Clear(3)
	assert.False(t, bf.Get(3))
}

func TestBitfieldOutOfRangeIsNoOp(t *testing.T) {
	bf := NewEmptyBitfield(4)
	assert.False(t, bf.Get(100))
	bf.Set(100)
	assert.Equal(t, 0, bf.Count())
}

func TestBitfieldSetAllClearAllIsAllSet(t *testing.T) {
	bf := NewEmptyBitfield(12)
	assert.False(t, bf.IsAllSet())
	bf.SetAll()
	assert.True(t, bf.IsAllSet())
	assert.Equal(t, 12, bf.Count())
	bf.ClearAll()
	assert.Equal(t, 0, bf.Count())
}

func TestBitfieldSetAllClearsTrailingBits(t *testing.T) {
	bf := NewEmptyBitfield(10)
	bf.SetAll()
	raw := bf.AsBytes()
	assert.Equal(t, byte(0xff), raw[0])
	assert.Equal(t, byte(0xc0), raw[1], "only the top 2 bits of the final byte belong to the 10-bit field")
}

func TestBitfieldWireOrderRoundTrip(t *testing.T) {
	raw := []byte{0b10110000}
	bf := NewBitfield(raw, 4)
	assert.True(t, bf.Get(0))
	assert.False(t, bf.Get(1))
	assert.True(t, bf.Get(2))
	assert.True(t, bf.Get(3))
	assert.Equal(t, raw, bf.AsBytes())
}

func TestBitfieldResizeGrowZeroesNewBits(t *testing.T) {
	bf := NewEmptyBitfield(4)
	bf.SetAll()
	bf.Resize(12)
	assert.Equal(t, 12, bf.Len())
	assert.Equal(t, 4, bf.Count())
	for i := 4; i < 12; i++ {
		assert.False(t, bf.Get(i))
	}
}

func TestBitfieldResizeShrinkDropsBits(t *testing.T) {
	bf := NewEmptyBitfield(16)
	bf.SetAll()
	bf.Resize(5)
	assert.Equal(t, 5, bf.Count())
	assert.Equal(t, 1, len(bf.AsBytes()))
}

func TestBitfieldCount(t *testing.T) {
	bf := NewEmptyBitfield(8)
	bf.Set(0)
	bf.Set(7)
	bf.Set(3)
	assert.Equal(t, 3, bf.Count())
}
