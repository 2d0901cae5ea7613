package display

import "github.com/valerio/go-jeebie-color/jeebie/video"

// RGBA pixel format constants
const (
	// RGBABytesPerPixel is the number of bytes per pixel in RGBA format
	RGBABytesPerPixel = 4
	// RGBARShift is the bit shift for the red component in RGBA format
	RGBARShift = 24
	// RGBAGShift is the bit shift for the green component in RGBA format
	RGBAGShift = 16
	// RGBABShift is the bit shift for the blue component in RGBA format
	RGBABShift = 8
	// RGBAColorMask is the mask for extracting color components
	RGBAColorMask = 0xFF
)

// Backend scaling and window constants
const (
	// DefaultPixelScale is the default scaling factor for Game Boy pixels
	DefaultPixelScale = 4
	// DefaultWindowWidth is the default window width (GameBoy width * scale)
	DefaultWindowWidth = video.FramebufferWidth * DefaultPixelScale // 640
	// DefaultWindowHeight is the default window height (GameBoy height * scale)
	DefaultWindowHeight = video.FramebufferHeight * DefaultPixelScale // 576
	// DebugPixelScale is the scale of the tile view window
	DebugPixelScale = 3
)

// PixelRGBA splits a framebuffer pixel into its components.
func PixelRGBA(pixel uint32) (r, g, b, a uint8) {
	return uint8(pixel >> RGBARShift & RGBAColorMask),
		uint8(pixel >> RGBAGShift & RGBAColorMask),
		uint8(pixel >> RGBABShift & RGBAColorMask),
		uint8(pixel & RGBAColorMask)
}

// ABGRBytes lays frame out as RGBA8888 texture data on a little-endian
// host, where the bytes of each pixel are stored alpha first. dst is
// reused when large enough.
func ABGRBytes(frame *video.FrameBuffer, dst []byte) []byte {
	pixels := frame.ToSlice()
	size := len(pixels) * RGBABytesPerPixel
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	for i, p := range pixels {
		r, g, b, a := PixelRGBA(p)
		o := i * RGBABytesPerPixel
		dst[o] = a
		dst[o+1] = b
		dst[o+2] = g
		dst[o+3] = r
	}
	return dst
}
