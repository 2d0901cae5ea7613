package render

import "github.com/valerio/go-jeebie-color/jeebie/display"

// Rendering helpers shared by the terminal backend and its tests.

const (
	// UpperHalf shows two vertically stacked pixels in one cell: the glyph
	// takes the foreground colour, the bottom half the background.
	UpperHalf = '▀'
	// FullBlock is used when both pixels have the same colour.
	FullBlock = '█'
)

// RGB splits a framebuffer pixel (0xRRGGBBAA) into its colour channels.
func RGB(pixel uint32) (r, g, b int32) {
	red, green, blue, _ := display.PixelRGBA(pixel)
	return int32(red), int32(green), int32(blue)
}

// HalfBlockChar returns the glyph for a cell holding top above bottom.
func HalfBlockChar(top, bottom uint32) rune {
	if top == bottom {
		return FullBlock
	}
	return UpperHalf
}

// Clip truncates s to at most width runes, marking the cut with "...".
func Clip(s string, width int) string {
	runes := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(runes) <= width {
		return s
	}
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}
