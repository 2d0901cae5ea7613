package video

import (
	"fmt"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
)

// GpuMode is the PPU state, numbered as reported in STAT bits 0-1.
type GpuMode uint8

const (
	hblank   GpuMode = 0
	vblank   GpuMode = 1
	oamRead  GpuMode = 2
	vramRead GpuMode = 3
)

func (m GpuMode) String() string {
	switch m {
	case hblank:
		return "HBlank"
	case vblank:
		return "VBlank"
	case oamRead:
		return "OAM"
	case vramRead:
		return "VRAM"
	}
	return fmt.Sprintf("GpuMode(%d)", uint8(m))
}

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	visibleLines = 144
	lastLine     = 153
)

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On), CGB: BG/window master priority
type lcdcFlag uint8

const (
	bgDisplay              lcdcFlag = 0
	spriteDisplayEnable    lcdcFlag = 1
	spriteSize             lcdcFlag = 2
	bgTileMapDisplaySelect lcdcFlag = 3
	bgWindowTileDataSelect lcdcFlag = 4
	windowDisplayEnable    lcdcFlag = 5
	windowTileMapSelect    lcdcFlag = 6
	lcdDisplayEnable       lcdcFlag = 7
)

// STAT interrupt sources
const (
	statHBlankIRQ uint8 = 3
	statVBlankIRQ uint8 = 4
	statOAMIRQ    uint8 = 5
	statLYCIRQ    uint8 = 6
	statLYCEqual  uint8 = 2
)

// GPU steps the LCD state machine and renders one scanline at the end of
// each VRAM read period.
type GPU struct {
	memory *memory.MMU

	lcdc memory.Register
	stat memory.Register
	scy  memory.Register
	scx  memory.Register
	ly   memory.Register
	lyc  memory.Register
	bgp  memory.Register
	obp0 memory.Register
	obp1 memory.Register
	wy   memory.Register
	wx   memory.Register

	front    *FrameBuffer
	back     *FrameBuffer
	tileView *FrameBuffer

	oam        OAM
	bgPalette  ColorRAM
	objPalette ColorRAM

	mode       GpuMode
	cycles     int
	windowLine int
	frameReady bool

	// per-line background info used for object priority
	bgIndex    [FramebufferWidth]uint8
	bgPriority [FramebufferWidth]bool
}

// NewGpu creates a PPU and attaches it to the LCD and color palette
// registers of mmu.
func NewGpu(mmu *memory.MMU) *GPU {
	g := &GPU{
		memory:   mmu,
		lcdc:     mmu.Register(addr.LCDC),
		stat:     mmu.Register(addr.STAT),
		scy:      mmu.Register(addr.SCY),
		scx:      mmu.Register(addr.SCX),
		ly:       mmu.Register(addr.LY),
		lyc:      mmu.Register(addr.LYC),
		bgp:      mmu.Register(addr.BGP),
		obp0:     mmu.Register(addr.OBP0),
		obp1:     mmu.Register(addr.OBP1),
		wy:       mmu.Register(addr.WY),
		wx:       mmu.Register(addr.WX),
		front:    NewFrameBuffer(FramebufferWidth, FramebufferHeight),
		back:     NewFrameBuffer(FramebufferWidth, FramebufferHeight),
		tileView: NewFrameBuffer(TileViewWidth, TileViewHeight),
	}
	mmu.Attach(addr.LCDC, addr.LYC, g)
	mmu.Attach(addr.BCPS, addr.OCPD, g)
	g.Reset()
	return g
}

// Reset blanks both frames and restarts from line 0.
func (g *GPU) Reset() {
	g.front.Fill(WhiteColor)
	g.back.Fill(WhiteColor)
	g.tileView.Fill(WhiteColor)
	g.bgPalette = newColorRAM()
	g.objPalette = newColorRAM()
	g.cycles = 0
	g.windowLine = 0
	g.frameReady = false
	g.ly.Set(0)
	if g.enabled() {
		g.setMode(oamRead)
	} else {
		g.setMode(hblank)
	}
}

// CurrentFrame returns the last completed frame.
func (g *GPU) CurrentFrame() *FrameBuffer {
	return g.front
}

// TileView returns the tile data debug view, refreshed every VBlank.
func (g *GPU) TileView() *FrameBuffer {
	return g.tileView
}

// ConsumeFrame reports whether a frame completed since the last call.
func (g *GPU) ConsumeFrame() bool {
	ready := g.frameReady
	g.frameReady = false
	return ready
}

// Mode returns the current PPU state.
func (g *GPU) Mode() GpuMode {
	return g.mode
}

// OAM returns the object snapshot of the last OAM scan.
func (g *GPU) OAM() *OAM {
	return &g.oam
}

// Tick simulates gpu behaviour for a certain amount of clock cycles.
func (g *GPU) Tick(cycles int) {
	if !g.enabled() {
		return
	}
	g.cycles += cycles

	for {
		switch g.mode {
		case oamRead:
			if g.cycles < oamScanlineCycles {
				return
			}
			g.cycles -= oamScanlineCycles
			g.setMode(vramRead)
		case vramRead:
			if g.cycles < vramScanlineCycles {
				return
			}
			g.cycles -= vramScanlineCycles
			g.drawScanline(int(g.ly.Get()))
			g.setMode(hblank)
			g.requestStat(statHBlankIRQ)
			g.memory.HBlank()
		case hblank:
			if g.cycles < hblankCycles {
				return
			}
			g.cycles -= hblankCycles
			g.setLine(g.ly.Get() + 1)
			if g.ly.Get() == visibleLines {
				g.enterVBlank()
			} else {
				g.setMode(oamRead)
				g.requestStat(statOAMIRQ)
			}
		case vblank:
			if g.cycles < scanlineCycles {
				return
			}
			g.cycles -= scanlineCycles
			if g.ly.Get() == lastLine {
				g.windowLine = 0
				g.setLine(0)
				g.setMode(oamRead)
				g.requestStat(statOAMIRQ)
			} else {
				g.setLine(g.ly.Get() + 1)
			}
		default:
			panic(fmt.Sprintf("video: unknown GPU mode %d", g.mode))
		}
	}
}

func (g *GPU) enterVBlank() {
	g.setMode(vblank)
	g.memory.RequestInterrupt(addr.VBlankInterrupt)
	g.requestStat(statVBlankIRQ)

	g.front, g.back = g.back, g.front
	g.drawTileView()
	g.frameReady = true
}

func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	g.stat.Set(g.stat.Get()&0xFC | uint8(mode))
	if mode == oamRead {
		g.oam.Scan(g.memory.OAM())
	}
}

func (g *GPU) setLine(line uint8) {
	g.ly.Set(line)
	g.compareLYC()
}

// compareLYC updates the coincidence flag and raises STAT when enabled.
func (g *GPU) compareLYC() {
	equal := g.ly.Get() == g.lyc.Get()
	g.stat.SetBit(statLYCEqual, equal)
	if equal {
		g.requestStat(statLYCIRQ)
	}
}

func (g *GPU) requestStat(source uint8) {
	if g.stat.IsSet(source) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) readLCDCVariable(flag lcdcFlag) bool {
	return g.lcdc.IsSet(uint8(flag))
}

func (g *GPU) enabled() bool {
	return g.readLCDCVariable(lcdDisplayEnable)
}

func (g *GPU) ReadIO(address uint16) byte {
	cgb := g.memory.CGB()
	switch address {
	case addr.STAT:
		return g.stat.Get() | 0x80
	case addr.BCPS:
		if cgb {
			return g.bgPalette.Index()
		}
	case addr.BCPD:
		if cgb {
			return g.bgPalette.Read()
		}
	case addr.OCPS:
		if cgb {
			return g.objPalette.Index()
		}
	case addr.OCPD:
		if cgb {
			return g.objPalette.Read()
		}
	case addr.LCDC:
		return g.lcdc.Get()
	case addr.SCY:
		return g.scy.Get()
	case addr.SCX:
		return g.scx.Get()
	case addr.LY:
		return g.ly.Get()
	case addr.LYC:
		return g.lyc.Get()
	}
	return 0xFF
}

func (g *GPU) WriteIO(address uint16, value byte) {
	cgb := g.memory.CGB()
	switch address {
	case addr.LCDC:
		g.writeLCDC(value)
	case addr.STAT:
		// mode and coincidence bits are read-only
		g.stat.Set(g.stat.Get()&0x07 | value&0x78)
	case addr.LY:
		// read-only
	case addr.LYC:
		g.lyc.Set(value)
		if g.enabled() {
			g.compareLYC()
		}
	case addr.SCY:
		g.scy.Set(value)
	case addr.SCX:
		g.scx.Set(value)
	case addr.BCPS:
		if cgb {
			g.bgPalette.SetIndex(value)
		}
	case addr.BCPD:
		if cgb {
			g.bgPalette.Write(value)
		}
	case addr.OCPS:
		if cgb {
			g.objPalette.SetIndex(value)
		}
	case addr.OCPD:
		if cgb {
			g.objPalette.Write(value)
		}
	}
}

func (g *GPU) writeLCDC(value byte) {
	wasOn := g.enabled()
	g.lcdc.Set(value)
	on := bit.IsSet(uint8(lcdDisplayEnable), value)

	switch {
	case wasOn && !on:
		g.cycles = 0
		g.windowLine = 0
		g.ly.Set(0)
		g.setMode(hblank)
	case !wasOn && on:
		g.cycles = 0
		g.setMode(oamRead)
		g.compareLYC()
	}
}
