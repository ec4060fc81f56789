package allocator

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderOffsetRoundTrip(t *testing.T) {
	data := make([]byte, 4096)
	rgn := region{data: data}

	cases := []blockOffset{0, 24, 48, 4072}

	for _, off := range cases {
		h := rgn.header(off)
		require.NotNil(t, h)
		assert.Equal(t, off, rgn.offsetOf(h), "offsetOf should invert header for offset %d", off)
	}

	assert.Nil(t, rgn.header(noOffset))
	assert.Equal(t, noOffset, rgn.offsetOf(nil))
}

func TestHeaderPayloadRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	rgn := region{data: data}

	h := rgn.header(0)
	h.size = 64

	p := rgn.payloadPointer(h)
	back := rgn.headerFromPayload(p)

	assert.Same(t, h, back)

	payload := rgn.payload(h)
	assert.Len(t, payload, 64)

	for i := range payload {
		payload[i] = byte(i)
	}

	for i, b := range rgn.payload(h) {
		assert.Equal(t, byte(i), b)
	}
}

func TestHeaderReset(t *testing.T) {
	data := make([]byte, 64)
	rgn := region{data: data}
	h := rgn.header(0)

	h.parent = 4
	h.left = 8
	h.right = 12
	h.color = black

	h.reset()

	assert.Equal(t, noOffset, h.parent)
	assert.Equal(t, noOffset, h.left)
	assert.Equal(t, noOffset, h.right)
	assert.Equal(t, red, h.color)
}

func TestRegionContains(t *testing.T) {
	data := make([]byte, 128)
	rgn := region{data: data}

	inside := unsafe.Pointer(&data[64])
	outside := unsafe.Pointer(&[1]byte{}[0])

	assert.True(t, rgn.contains(inside))
	assert.False(t, rgn.contains(outside))
}

func TestHeaderSizeIsFixed(t *testing.T) {
	assert.Equal(t, unsafe.Sizeof(blockHeader{}), headerSize)
	assert.GreaterOrEqual(t, int(headerSize), 20)
}
