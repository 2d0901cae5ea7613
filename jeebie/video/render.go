package video

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// background attribute bits, CGB only (VRAM bank 1 at the tile map address)
const (
	attrBank     uint8 = 3
	attrFlipX    uint8 = 5
	attrFlipY    uint8 = 6
	attrPriority uint8 = 7
)

func (g *GPU) drawScanline(line int) {
	if line >= FramebufferHeight {
		return
	}
	row := g.back.Row(line)
	cgb := g.memory.CGB()

	// on DMG, LCDC bit 0 blanks background and window; on CGB it only
	// drops their priority over objects
	bgVisible := cgb || g.readLCDCVariable(bgDisplay)

	if bgVisible {
		g.drawBackground(row, line)
	} else {
		for x := range row {
			row[x] = uint32(WhiteColor)
			g.bgIndex[x] = 0
			g.bgPriority[x] = false
		}
	}

	if bgVisible && g.readLCDCVariable(windowDisplayEnable) {
		g.drawWindow(row, line)
	}

	if g.readLCDCVariable(spriteDisplayEnable) {
		g.drawObjects(row, line)
	}
}

func (g *GPU) tileMapBase(flag lcdcFlag) uint16 {
	if g.readLCDCVariable(flag) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// tileDataOffset returns the VRAM offset of a background/window tile.
// With LCDC bit 4 clear, tile numbers are signed and relative to 0x9000.
func (g *GPU) tileDataOffset(tileNumber uint8) int {
	if g.readLCDCVariable(bgWindowTileDataSelect) {
		return int(tileNumber) * tileBytes
	}
	return int(addr.TileData2-addr.VRAMStart) + int(int8(tileNumber))*tileBytes
}

// mapPixel resolves the pixel at (px, py) of the 256x256 map at mapBase.
func (g *GPU) mapPixel(mapBase uint16, px, py int, cgb bool) (index uint8, color GBColor, priority bool) {
	mapOffset := int(mapBase-addr.VRAMStart) + (py/8)*32 + px/8
	tileNumber := g.memory.VRAM(0)[mapOffset]

	var attr uint8
	if cgb {
		attr = g.memory.VRAM(1)[mapOffset]
	}

	tileY := py % 8
	if bit.IsSet(attrFlipY, attr) {
		tileY = 7 - tileY
	}
	vram := g.memory.VRAM(int(bit.GetBitValue(attrBank, attr)))
	tileRow := fetchRow(vram, g.tileDataOffset(tileNumber)+tileY*2)

	if bit.IsSet(attrFlipX, attr) {
		index = tileRow.GetPixelFlipped(px % 8)
	} else {
		index = tileRow.GetPixel(px % 8)
	}

	if cgb {
		return index, g.bgPalette.Color(attr&0x07, index), bit.IsSet(attrPriority, attr)
	}
	return index, g.dmgColor(g.bgp.Get(), index), false
}

func (g *GPU) dmgColor(palette, index uint8) GBColor {
	return ByteToColor(palette >> (index * 2))
}

func (g *GPU) drawBackground(row []uint32, line int) {
	cgb := g.memory.CGB()
	mapBase := g.tileMapBase(bgTileMapDisplaySelect)
	py := (line + int(g.scy.Get())) & 0xFF
	scx := int(g.scx.Get())

	for x := range row {
		px := (x + scx) & 0xFF
		index, color, priority := g.mapPixel(mapBase, px, py, cgb)
		row[x] = uint32(color)
		g.bgIndex[x] = index
		g.bgPriority[x] = priority
	}
}

// drawWindow overlays the window from WX-7 on lines at or below WY. The
// window keeps its own line counter, advanced only on lines it is drawn.
func (g *GPU) drawWindow(row []uint32, line int) {
	wy := int(g.wy.Get())
	left := int(g.wx.Get()) - 7
	if line < wy || left >= FramebufferWidth {
		return
	}

	cgb := g.memory.CGB()
	mapBase := g.tileMapBase(windowTileMapSelect)
	py := g.windowLine

	for x := max(left, 0); x < FramebufferWidth; x++ {
		index, color, priority := g.mapPixel(mapBase, x-left, py, cgb)
		row[x] = uint32(color)
		g.bgIndex[x] = index
		g.bgPriority[x] = priority
	}
	g.windowLine++
}

// drawObjects composites up to 10 objects on the line. They are painted
// back to front, so lower X (then lower OAM index) ends up on top. A pixel
// hidden behind the background only drops that pixel; objects underneath
// still show through.
func (g *GPU) drawObjects(row []uint32, line int) {
	cgb := g.memory.CGB()
	height := 8
	if g.readLCDCVariable(spriteSize) {
		height = 16
	}
	// CGB: LCDC bit 0 clear puts objects above everything
	masterPriority := !cgb || g.readLCDCVariable(bgDisplay)

	objects := g.oam.ObjectsForLine(line, height)
	for i := len(objects) - 1; i >= 0; i-- {
		obj := &objects[i]
		tile := obj.TileIndex
		if height == 16 {
			tile &= 0xFE
		}
		tileY := line - obj.ScreenY()
		if obj.FlipY {
			tileY = height - 1 - tileY
		}

		bank := 0
		if cgb {
			bank = obj.Bank
		}
		tileRow := fetchRow(g.memory.VRAM(bank), int(tile)*tileBytes+tileY*2)

		for px := range 8 {
			x := obj.ScreenX() + px
			if x < 0 || x >= FramebufferWidth {
				continue
			}

			var index uint8
			if obj.FlipX {
				index = tileRow.GetPixelFlipped(px)
			} else {
				index = tileRow.GetPixel(px)
			}
			if index == 0 {
				continue
			}
			if masterPriority && g.bgIndex[x] != 0 && (obj.BehindBG || g.bgPriority[x]) {
				continue
			}
			row[x] = uint32(g.objectColor(obj, index, cgb))
		}
	}
}

func (g *GPU) objectColor(obj *Object, index uint8, cgb bool) GBColor {
	if cgb {
		return g.objPalette.Color(obj.CGBPalette, index)
	}
	palette := g.obp0.Get()
	if obj.PaletteOBP1 {
		palette = g.obp1.Get()
	}
	return g.dmgColor(palette, index)
}

// drawTileView renders the 384 tiles of VRAM bank 0 as a 16x24 grid.
func (g *GPU) drawTileView() {
	vram := g.memory.VRAM(0)
	const tilesPerRow = TileViewWidth / 8
	for i := range 384 {
		tile := FetchTile(vram, i)
		baseX := uint(i%tilesPerRow) * 8
		baseY := uint(i/tilesPerRow) * 8
		for y := range 8 {
			for x := range 8 {
				g.tileView.SetPixel(baseX+uint(x), baseY+uint(y), ByteToColor(tile.GetPixel(x, y)))
			}
		}
	}
}
