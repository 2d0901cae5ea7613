package video

import "github.com/valerio/go-jeebie-color/jeebie/bit"

const tileBytes = 16

// TileRow represents one row of a tile pattern (8 pixels).
//
// Game Boy tiles are 8x8 pixels, with 2 bits per pixel allowing 4 colors.
// Each tile row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a color index (0-3) from the row, 0 being the leftmost pixel.
func (t TileRow) GetPixel(pixelX int) uint8 {
	return t.pixelAt(uint8(7 - pixelX))
}

// GetPixelFlipped extracts a color index with horizontal flip applied.
func (t TileRow) GetPixelFlipped(pixelX int) uint8 {
	return t.pixelAt(uint8(pixelX))
}

func (t TileRow) pixelAt(bitIndex uint8) uint8 {
	return bit.GetBitValue(bitIndex, t.Low) | bit.GetBitValue(bitIndex, t.High)<<1
}

// fetchRow reads the row at offset within a VRAM bank.
func fetchRow(vram []byte, offset int) TileRow {
	return TileRow{Low: vram[offset], High: vram[offset+1]}
}

// Tile represents a complete 8x8 tile pattern, 16 bytes in VRAM.
type Tile struct {
	Index int // 0-383 for VRAM tiles
	Rows  [8]TileRow
}

// GetPixel returns the color index (0-3) for a pixel at (x, y).
func (t *Tile) GetPixel(x, y int) uint8 {
	if y < 0 || y >= 8 || x < 0 || x >= 8 {
		return 0
	}
	return t.Rows[y].GetPixel(x)
}

// FetchTile reads tile index from a VRAM bank, counting from 0x8000.
func FetchTile(vram []byte, index int) Tile {
	tile := Tile{Index: index}
	base := index * tileBytes
	for row := range 8 {
		tile.Rows[row] = fetchRow(vram, base+row*2)
	}
	return tile
}
