package video

import (
	"slices"

	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

const (
	objectCount      = 40
	objectsPerLine   = 10
	objectEntryBytes = 4
)

// Object is a decoded OAM entry.
// The Game Boy has 40 objects stored in OAM (Object Attribute Memory) from 0xFE00-0xFE9F.
type Object struct {
	Y         uint8 // raw Y, screen position + 16
	X         uint8 // raw X, screen position + 8
	TileIndex uint8
	Flags     uint8
	OAMIndex  int

	// parsed attribute flags for convenience
	PaletteOBP1 bool  // DMG: false = OBP0, true = OBP1
	Bank        int   // CGB: VRAM bank holding the tile
	CGBPalette  uint8 // CGB: OBJ palette 0-7
	FlipX       bool
	FlipY       bool
	BehindBG    bool // hidden behind non-zero background colors
}

func decodeObject(index int, raw []byte) Object {
	o := Object{
		Y:         raw[0],
		X:         raw[1],
		TileIndex: raw[2],
		Flags:     raw[3],
		OAMIndex:  index,
	}
	o.parseFlags()
	return o
}

func (o *Object) parseFlags() {
	o.CGBPalette = o.Flags & 0x07
	o.Bank = int(bit.GetBitValue(3, o.Flags))
	o.PaletteOBP1 = bit.IsSet(4, o.Flags)
	o.FlipX = bit.IsSet(5, o.Flags)
	o.FlipY = bit.IsSet(6, o.Flags)
	o.BehindBG = bit.IsSet(7, o.Flags)
}

// ScreenX returns the leftmost column the object covers, possibly negative.
func (o *Object) ScreenX() int { return int(o.X) - 8 }

// ScreenY returns the topmost line the object covers, possibly negative.
func (o *Object) ScreenY() int { return int(o.Y) - 16 }

// OAM is a snapshot of the 40 object entries taken at the start of each
// scanline's OAM scan.
type OAM struct {
	objects [objectCount]Object
	line    [objectsPerLine]Object
}

// Scan decodes the 160 bytes of object attribute memory.
func (o *OAM) Scan(raw []byte) {
	for i := range objectCount {
		o.objects[i] = decodeObject(i, raw[i*objectEntryBytes:])
	}
}

// Objects returns all 40 entries of the last scan.
func (o *OAM) Objects() []Object {
	return o.objects[:]
}

// ObjectsForLine returns up to 10 objects overlapping ly, in the order they
// win against each other: lower X first, then lower OAM index. Off-screen
// objects still count toward the limit.
func (o *OAM) ObjectsForLine(ly int, height int) []Object {
	selected := o.line[:0]
	for i := range o.objects {
		top := o.objects[i].ScreenY()
		if top <= ly && ly < top+height {
			selected = append(selected, o.objects[i])
			if len(selected) == objectsPerLine {
				break
			}
		}
	}
	// stable: equal X keeps OAM order
	slices.SortStableFunc(selected, func(a, b Object) int {
		return int(a.X) - int(b.X)
	})
	return selected
}
