package video

// GBColor is a packed 0xRRGGBBAA pixel.
type GBColor uint32

// DMG shades, indexed by the 2-bit value a palette register maps a color to.
const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0x989898FF
	DarkGreyColor  GBColor = 0x4C4C4CFF
	BlackColor     GBColor = 0x000000FF
)

var dmgShades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// ByteToColor maps a 2-bit shade to its DMG color.
func ByteToColor(shade byte) GBColor {
	return dmgShades[shade&0x03]
}

// RGBA splits a color into its components.
func (c GBColor) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144

	TileViewWidth  = 128
	TileViewHeight = 192
)

type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

// NewFrameBuffer creates a frame buffer with the specified size.
func NewFrameBuffer(width, height uint) *FrameBuffer {
	return &FrameBuffer{
		width:  width,
		height: height,
		buffer: make([]uint32, width*height),
	}
}

func (fb *FrameBuffer) Width() int  { return int(fb.width) }
func (fb *FrameBuffer) Height() int { return int(fb.height) }

func (fb *FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

// Fill paints every pixel with color.
func (fb *FrameBuffer) Fill(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// Row returns the pixels of line y.
func (fb *FrameBuffer) Row(y int) []uint32 {
	start := y * int(fb.width)
	return fb.buffer[start : start+int(fb.width)]
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}
