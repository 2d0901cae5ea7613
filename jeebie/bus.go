package jeebie

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/cartridge"
	"github.com/valerio/go-jeebie-color/jeebie/cpu"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/serial"
	"github.com/valerio/go-jeebie-color/jeebie/state"
	"github.com/valerio/go-jeebie-color/jeebie/timer"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// Divider seeds so DIV reads what the boot ROM leaves behind.
const (
	dmgDividerSeed uint16 = 0xABCC
	cgbDividerSeed uint16 = 0x1EA0
)

// Bus is one complete set of wired components. Loading a save state builds
// a fresh Bus and only swaps it in once decoding succeeded.
type Bus struct {
	CPU    *cpu.CPU
	MMU    *memory.MMU
	GPU    *video.GPU
	APU    *audio.APU
	Timer  *timer.Timer
	Serial *serial.LogSink
}

func newBus(cart *cartridge.Cartridge, cgb bool, cfg *config) *Bus {
	mmu := memory.NewWithCartridge(cart)
	mmu.SetCGB(cgb)

	b := &Bus{
		MMU:    mmu,
		CPU:    cpu.New(mmu),
		GPU:    video.NewGpu(mmu),
		APU:    audio.New(mmu, cfg.audioOptions()...),
		Timer:  timer.New(mmu),
		Serial: serial.NewLogSink(mmu, cfg.serialOptions()...),
	}
	b.Reset()
	return b
}

// Reset puts every component in its post-boot state.
func (b *Bus) Reset() {
	cgb := b.MMU.CGB()
	b.MMU.Reset()
	b.CPU.Reset(cgb)
	b.GPU.Reset()
	b.APU.Reset()
	b.Serial.Reset()
	if cart := b.MMU.Cartridge(); cart != nil {
		cart.Reset()
	}
	if cgb {
		b.Timer.SetSeed(cgbDividerSeed)
	} else {
		b.Timer.SetSeed(dmgDividerSeed)
	}
	initializeIO(b.MMU)
}

// initializeIO writes the I/O values left by the boot ROM. Audio registers
// are owned and seeded by the APU.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#hardware-registers
func initializeIO(mmu *memory.MMU) {
	initial := []struct {
		address uint16
		value   uint8
	}{
		{addr.TIMA, 0x00},
		{addr.TMA, 0x00},
		{addr.TAC, 0xF8},
		{addr.IF, 0xE1},
		{addr.SCY, 0x00},
		{addr.SCX, 0x00},
		{addr.LYC, 0x00},
		{addr.BGP, 0xFC},
		{addr.OBP0, 0xFF},
		{addr.OBP1, 0xFF},
		{addr.WY, 0x00},
		{addr.WX, 0x00},
		{addr.LCDC, 0x91},
		{addr.STAT, 0x85},
		{addr.IE, 0x00},
	}
	for _, r := range initial {
		mmu.Write(r.address, r.value)
	}
}

// TickInstruction executes one CPU instruction and ticks all components.
// It returns the CPU cycles taken and the base clock cycles they amount to;
// in double speed mode the PPU and APU see half as many.
func (b *Bus) TickInstruction() (cycles, base int) {
	cycles = b.CPU.Step()
	b.Timer.Tick(cycles)
	b.Serial.Tick(cycles)

	base = cycles
	if b.MMU.DoubleSpeed() {
		base = cycles / 2
	}
	b.GPU.Tick(base)
	b.APU.Tick(base)
	return cycles, base
}

// components lists the save state participants in stream order.
func (b *Bus) components() []state.Stater {
	return []state.Stater{b.MMU, b.CPU, b.GPU, b.Timer, b.APU, b.Serial}
}

// Save writes the component state in a fixed order.
func (b *Bus) Save(w *state.Writer) {
	for _, c := range b.components() {
		c.Save(w)
	}
}

func (b *Bus) Load(r *state.Reader) {
	for _, c := range b.components() {
		c.Load(r)
	}
}
