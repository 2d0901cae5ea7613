package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

const frameCycles = scanlineCycles * (lastLine + 1)

func newTestGPU(cgb bool) (*GPU, *memory.MMU) {
	mmu := memory.New()
	mmu.SetCGB(cgb)
	g := NewGpu(mmu)
	mmu.Write(addr.BGP, 0xE4)
	mmu.Write(addr.OBP0, 0xE4)
	return g, mmu
}

func interruptFlags(mmu *memory.MMU) uint8 {
	return mmu.Read(addr.IF) & 0x1F
}

func TestModeSequence(t *testing.T) {
	g, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)

	steps := []struct {
		cycles int
		mode   GpuMode
		ly     uint8
	}{
		{0, oamRead, 0},
		{oamScanlineCycles - 1, oamRead, 0},
		{1, vramRead, 0},
		{vramScanlineCycles, hblank, 0},
		{hblankCycles - 1, hblank, 0},
		{1, oamRead, 1},
		{scanlineCycles * 142, oamRead, 143},
		{scanlineCycles, vblank, 144},
		{scanlineCycles * 9, vblank, 153},
		{scanlineCycles, oamRead, 0},
	}
	for i, step := range steps {
		g.Tick(step.cycles)
		assert.Equal(t, step.mode, g.Mode(), "step %d", i)
		assert.Equal(t, step.ly, mmu.Read(addr.LY), "step %d", i)
		assert.Equal(t, uint8(step.mode), mmu.Read(addr.STAT)&0x03, "step %d", i)
	}
}

func TestFrameCompletesEveryFrameCycles(t *testing.T) {
	g, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)

	g.Tick(scanlineCycles*visibleLines - 1)
	assert.False(t, g.ConsumeFrame())
	assert.Zero(t, interruptFlags(mmu)&uint8(addr.VBlankInterrupt))

	g.Tick(1)
	assert.True(t, g.ConsumeFrame())
	assert.False(t, g.ConsumeFrame(), "consumed")
	assert.NotZero(t, interruptFlags(mmu)&uint8(addr.VBlankInterrupt))

	g.Tick(frameCycles)
	assert.True(t, g.ConsumeFrame())
}

func TestStatInterrupts(t *testing.T) {
	tests := []struct {
		name   string
		stat   uint8
		cycles int
	}{
		{"hblank", 0x08, oamScanlineCycles + vramScanlineCycles},
		{"vblank", 0x10, scanlineCycles * visibleLines},
		{"oam", 0x20, scanlineCycles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mmu := newTestGPU(false)
			mmu.Write(addr.LCDC, 0x91)
			mmu.Write(addr.STAT, tt.stat)
			mmu.Write(addr.IF, 0)

			g.Tick(tt.cycles - 1)
			assert.Zero(t, interruptFlags(mmu)&uint8(addr.LCDSTATInterrupt))
			g.Tick(1)
			assert.NotZero(t, interruptFlags(mmu)&uint8(addr.LCDSTATInterrupt))
		})
	}
}

func TestLYCCoincidence(t *testing.T) {
	g, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)
	mmu.Write(addr.LYC, 2)
	mmu.Write(addr.STAT, 0x40)
	mmu.Write(addr.IF, 0)

	g.Tick(scanlineCycles)
	assert.Zero(t, mmu.Read(addr.STAT)&0x04)
	assert.Zero(t, interruptFlags(mmu))

	g.Tick(scanlineCycles)
	assert.Equal(t, uint8(2), mmu.Read(addr.LY))
	assert.NotZero(t, mmu.Read(addr.STAT)&0x04)
	assert.Equal(t, uint8(addr.LCDSTATInterrupt), interruptFlags(mmu))

	g.Tick(scanlineCycles)
	assert.Zero(t, mmu.Read(addr.STAT)&0x04)
}

func TestStatRegisterMasks(t *testing.T) {
	_, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)
	// mode 2 with LY == LYC
	assert.Equal(t, uint8(0x86), mmu.Read(addr.STAT))

	mmu.Write(addr.STAT, 0xFF)
	assert.Equal(t, uint8(0xFE), mmu.Read(addr.STAT))

	mmu.Write(addr.LY, 0x42)
	assert.Zero(t, mmu.Read(addr.LY), "LY is read-only")
}

func TestLCDOff(t *testing.T) {
	g, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)
	g.Tick(scanlineCycles*10 + 100)
	require.Equal(t, uint8(10), mmu.Read(addr.LY))

	mmu.Write(addr.LCDC, 0x11)
	assert.Zero(t, mmu.Read(addr.LY))
	assert.Equal(t, hblank, g.Mode())

	g.Tick(frameCycles * 2)
	assert.Zero(t, mmu.Read(addr.LY))
	assert.False(t, g.ConsumeFrame())

	mmu.Write(addr.LCDC, 0x91)
	assert.Equal(t, oamRead, g.Mode())
}

func TestUnknownModePanics(t *testing.T) {
	g, mmu := newTestGPU(false)
	mmu.Write(addr.LCDC, 0x91)
	g.mode = GpuMode(7)
	assert.Panics(t, func() { g.Tick(4) })
}

func TestColorRegistersDMG(t *testing.T) {
	_, mmu := newTestGPU(false)
	mmu.Write(addr.BCPS, 0x80)
	mmu.Write(addr.BCPD, 0x12)
	assert.Equal(t, uint8(0xFF), mmu.Read(addr.BCPS))
	assert.Equal(t, uint8(0xFF), mmu.Read(addr.BCPD))
}

func TestColorRegistersCGB(t *testing.T) {
	_, mmu := newTestGPU(true)
	mmu.Write(addr.OCPS, 0x80|0x3E)
	mmu.Write(addr.OCPD, 0x11)
	mmu.Write(addr.OCPD, 0x22)

	// index wrapped from 0x3F to 0
	assert.Equal(t, uint8(0xC0), mmu.Read(addr.OCPS))
	mmu.Write(addr.OCPS, 0x3E)
	assert.Equal(t, uint8(0x11), mmu.Read(addr.OCPD))
	mmu.Write(addr.OCPS, 0x3F)
	assert.Equal(t, uint8(0x22), mmu.Read(addr.OCPD))
}

func TestGPUState(t *testing.T) {
	g, mmu := newTestGPU(true)
	writeTile(mmu, 1, solidTile(3))
	mmu.Write(addr.TileMap0, 1)
	mmu.Write(addr.BCPS, 0x80)
	mmu.Write(addr.BCPD, 0x1F)
	mmu.Write(addr.LCDC, 0x91)
	g.Tick(frameCycles + 1234)

	w := state.NewWriter()
	g.Save(w)

	other := NewGpu(memory.New())
	r := state.NewReader(w.Bytes())
	other.Load(r)
	require.NoError(t, r.Err())

	assert.Equal(t, g.Mode(), other.Mode())
	assert.Equal(t, g.cycles, other.cycles)
	assert.Equal(t, g.CurrentFrame().ToSlice(), other.CurrentFrame().ToSlice())
	assert.Equal(t, g.TileView().ToSlice(), other.TileView().ToSlice())
	assert.Equal(t, g.bgPalette.Color(0, 0), other.bgPalette.Color(0, 0))
	assert.Equal(t, g.OAM().Objects(), other.OAM().Objects())
}

func TestGPUStateInvalidMode(t *testing.T) {
	w := state.NewWriter()
	w.Write8(9)

	g, _ := newTestGPU(false)
	r := state.NewReader(w.Bytes())
	g.Load(r)
	assert.Error(t, r.Err())
}
