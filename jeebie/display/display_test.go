package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/video"
)

func TestPixelRGBA(t *testing.T) {
	r, g, b, a := PixelRGBA(0x11223344)
	assert.Equal(t, []uint8{0x11, 0x22, 0x33, 0x44}, []uint8{r, g, b, a})
}

func TestABGRBytes(t *testing.T) {
	frame := video.NewFrameBuffer(2, 1)
	frame.SetPixel(0, 0, video.GBColor(0x10203040))
	frame.SetPixel(1, 0, video.WhiteColor)

	out := ABGRBytes(frame, nil)
	require.Len(t, out, 8)
	assert.Equal(t, []byte{0x40, 0x30, 0x20, 0x10, 0xFF, 0xFF, 0xFF, 0xFF}, out)

	reused := ABGRBytes(frame, make([]byte, 0, 64))
	assert.Equal(t, out, reused)
	assert.Equal(t, 64, cap(reused), "large enough buffers are reused")
}
