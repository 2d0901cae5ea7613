package video

import (
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

const colorRAMSize = 64

// ColorRAM is one of the two CGB palette memories: 8 palettes of 4 colors,
// each color a little-endian BGR555 word. It is accessed through an index
// register (BCPS/OCPS) and a data register (BCPD/OCPD).
type ColorRAM struct {
	data          [colorRAMSize]byte
	index         uint8
	autoIncrement bool

	decoded [8][4]GBColor
	dirty   bool
}

func newColorRAM() ColorRAM {
	c := ColorRAM{}
	for i := range c.data {
		c.data[i] = 0xFF
	}
	c.dirty = true
	return c
}

// SetIndex handles a write to the index register.
func (c *ColorRAM) SetIndex(value byte) {
	c.index = value & 0x3F
	c.autoIncrement = bit.IsSet(7, value)
}

// Index returns the index register as read by the CPU. Bit 6 is unused.
func (c *ColorRAM) Index() byte {
	v := c.index | 0x40
	if c.autoIncrement {
		v |= 0x80
	}
	return v
}

// Read returns the byte at the current index.
func (c *ColorRAM) Read() byte {
	return c.data[c.index]
}

// Write stores a byte at the current index, advancing it when
// auto-increment is set.
func (c *ColorRAM) Write(value byte) {
	c.data[c.index] = value
	c.dirty = true
	if c.autoIncrement {
		c.index = (c.index + 1) & 0x3F
	}
}

// Color returns color index (0-3) of palette (0-7) as RGBA.
func (c *ColorRAM) Color(palette, index uint8) GBColor {
	if c.dirty {
		c.decode()
	}
	return c.decoded[palette&0x07][index&0x03]
}

func (c *ColorRAM) decode() {
	for p := range 8 {
		for i := range 4 {
			offset := p*8 + i*2
			c.decoded[p][i] = bgr555ToRGBA(uint16(c.data[offset]) | uint16(c.data[offset+1])<<8)
		}
	}
	c.dirty = false
}

// bgr555ToRGBA expands each 5-bit component to 8 bits, replicating the high
// bits into the low ones so 0x1F maps to 0xFF.
func bgr555ToRGBA(v uint16) GBColor {
	expand := func(c uint16) uint32 {
		c &= 0x1F
		return uint32(c<<3 | c>>2)
	}
	r := expand(v)
	g := expand(v >> 5)
	b := expand(v >> 10)
	return GBColor(r<<24 | g<<16 | b<<8 | 0xFF)
}

func (c *ColorRAM) Save(w *state.Writer) {
	w.WriteBytes(c.data[:])
	w.Write8(c.index)
	w.WriteBool(c.autoIncrement)
}

func (c *ColorRAM) Load(r *state.Reader) {
	r.ExpectBytes(c.data[:])
	c.index = r.Read8() & 0x3F
	c.autoIncrement = r.ReadBool()
	c.dirty = true
}
