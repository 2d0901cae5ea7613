package sdl2

import (
	"encoding/binary"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
)

// bytesPerFrame is one signed 16-bit little-endian sample per channel.
const bytesPerFrame = 4

// stereoBytes encodes frames as interleaved S16LSB, the layout the audio
// device is opened with. dst is reused when large enough.
func stereoBytes(frames []audio.StereoFrame, dst []byte) []byte {
	size := len(frames) * bytesPerFrame
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for i, f := range frames {
		binary.LittleEndian.PutUint16(dst[i*bytesPerFrame:], uint16(f.Left))
		binary.LittleEndian.PutUint16(dst[i*bytesPerFrame+2:], uint16(f.Right))
	}
	return dst
}
