package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/cartridge"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM0
	regionWRAMN
	regionEcho
	regionOAM
	regionIO
)

const (
	vramBankSize = 0x2000
	wramBankSize = 0x1000
	vramBanks    = 2
	wramBanks    = 8
	oamSize      = 0xA0
)

// IOHandler is implemented by devices that need to observe or compute
// accesses to their registers in the 0xFF00-0xFF7F page. The register bytes
// still live in the MMU's flat array; handlers reach them via Register.
type IOHandler interface {
	ReadIO(address uint16) byte
	WriteIO(address uint16, value byte)
}

// MMU allows access to all memory mapped I/O and data/registers.
//
// The flat array backs I/O registers, OAM and HRAM. Cartridge space is
// delegated to the cartridge, VRAM and WRAM go through the bank selected by
// VBK and SVBK.
type MMU struct {
	cart      *cartridge.Cartridge
	memory    [0x10000]byte
	vram      [vramBanks][vramBankSize]byte
	wram      [wramBanks][wramBankSize]byte
	regionMap [256]memRegion
	io        [0x80]IOHandler

	cgb      bool
	vramBank int
	wramBank int

	doubleSpeed bool
	hdma        hdma

	joypadButtons uint8 // A/B/Select/Start, 0 = pressed
	joypadDpad    uint8 // Right/Left/Up/Down, 0 = pressed
}

// New creates a memory unit with no cartridge inserted.
func New() *MMU {
	m := &MMU{}
	initRegionMap(m)
	m.Reset()
	return m
}

// NewWithCartridge creates a memory unit with the cartridge inserted.
func NewWithCartridge(cart *cartridge.Cartridge) *MMU {
	m := New()
	m.cart = cart
	return m
}

// Reset clears all memory and banking state. Attached handlers and the
// cartridge are kept.
func (m *MMU) Reset() {
	m.memory = [0x10000]byte{}
	m.vram = [vramBanks][vramBankSize]byte{}
	m.wram = [wramBanks][wramBankSize]byte{}
	m.vramBank = 0
	m.wramBank = 1
	m.doubleSpeed = false
	m.hdma = hdma{}
	m.joypadButtons = 0x0F
	m.joypadDpad = 0x0F
	m.memory[addr.P1] = 0xCF
	m.memory[addr.SVBK] = 0x01
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xCF; i++ {
		m.regionMap[i] = regionWRAM0
	}
	for i := 0xD0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAMN
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// Cartridge returns the inserted cartridge, or nil.
func (m *MMU) Cartridge() *cartridge.Cartridge {
	return m.cart
}

// SetCGB enables Game Boy Color banking and registers.
func (m *MMU) SetCGB(cgb bool) {
	m.cgb = cgb
}

// CGB reports whether Game Boy Color features are enabled.
func (m *MMU) CGB() bool {
	return m.cgb
}

// Attach routes accesses to the I/O registers in [from, to] to h.
func (m *MMU) Attach(from, to uint16, h IOHandler) {
	if from < addr.IOStart || to >= addr.HRAMStart || from > to {
		panic(fmt.Sprintf("memory: invalid I/O handler range 0x%04X-0x%04X", from, to))
	}
	for a := from; a <= to; a++ {
		m.io[a-addr.IOStart] = h
	}
}

// Register returns a handle to a register stored in the flat array. Only
// OAM, I/O, HRAM and IE are backed by the array; any other address panics.
func (m *MMU) Register(address uint16) Register {
	if address < addr.OAMStart {
		panic(fmt.Sprintf("memory: 0x%04X is not backed by the flat array", address))
	}
	return Register{mem: &m.memory, address: address}
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= uint8(interrupt)
}

// ReadBit returns whether the bit at index is set in the byte at address.
func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			return 0xFF
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.vram[m.vramBank][address-addr.VRAMStart]
	case regionWRAM0:
		return m.wram[0][address-addr.WRAMStart]
	case regionWRAMN:
		return m.wram[m.wramBank][address-addr.WRAMBankN]
	case regionEcho:
		return m.Read(address - 0x2000)
	case regionOAM:
		return m.memory[address]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			slog.Debug("Write to cartridge space with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return
		}
		m.cart.Write(address, value)
	case regionVRAM:
		m.vram[m.vramBank][address-addr.VRAMStart] = value
	case regionWRAM0:
		m.wram[0][address-addr.WRAMStart] = value
	case regionWRAMN:
		m.wram[m.wramBank][address-addr.WRAMBankN] = value
	case regionEcho:
		m.Write(address-0x2000, value)
	case regionOAM:
		m.memory[address] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	if address >= addr.HRAMStart {
		return m.memory[address]
	}
	if h := m.io[address-addr.IOStart]; h != nil {
		return h.ReadIO(address)
	}

	switch address {
	case addr.IF:
		// Upper 3 bits are unused and always read as 1.
		return m.memory[address] | 0xE0
	case addr.KEY1:
		if !m.cgb {
			return 0xFF
		}
		return m.memory[address] | 0x7E
	case addr.VBK:
		if !m.cgb {
			return 0xFF
		}
		return 0xFE | uint8(m.vramBank)
	case addr.SVBK:
		if !m.cgb {
			return 0xFF
		}
		return 0xF8 | m.memory[address]&0x07
	case addr.HDMA1, addr.HDMA2, addr.HDMA3, addr.HDMA4:
		return 0xFF
	case addr.HDMA5:
		if !m.cgb {
			return 0xFF
		}
		return m.hdma.status()
	}

	return m.memory[address]
}

func (m *MMU) writeIO(address uint16, value byte) {
	if address >= addr.HRAMStart {
		m.memory[address] = value
		return
	}
	if h := m.io[address-addr.IOStart]; h != nil {
		h.WriteIO(address, value)
		return
	}

	switch address {
	case addr.P1:
		m.writeJoypad(value)
	case addr.IF:
		m.memory[address] = value | 0xE0
	case addr.DMA:
		m.memory[address] = value
		m.oamDMA(value)
	case addr.KEY1:
		if m.cgb {
			m.memory[address] = m.memory[address]&0x80 | value&0x01
		}
	case addr.VBK:
		if m.cgb {
			m.memory[address] = value & 0x01
			m.vramBank = int(value & 0x01)
		}
	case addr.SVBK:
		if m.cgb {
			m.memory[address] = value & 0x07
			m.wramBank = wramBankFor(value)
		}
	case addr.HDMA5:
		m.memory[address] = value
		if m.cgb {
			m.startHDMA(value)
		}
	default:
		m.memory[address] = value
	}
}

func wramBankFor(svbk uint8) int {
	bank := int(svbk & 0x07)
	if bank == 0 {
		bank = 1
	}
	return bank
}

// oamDMA copies 160 bytes from value<<8 into OAM.
func (m *MMU) oamDMA(value byte) {
	source := uint16(value) << 8
	oam := m.memory[addr.OAMStart : addr.OAMStart+oamSize]
	m.copyFrom(oam, source)
}

// copyFrom fills dst with the bytes visible at source. Cartridge sources go
// through the cartridge's own DMA path so banking is applied once.
func (m *MMU) copyFrom(dst []byte, source uint16) {
	if m.cart != nil && isCartridgeAddress(source) && isCartridgeAddress(source+uint16(len(dst))-1) {
		m.cart.DMACopy(dst, source)
		return
	}
	for i := range dst {
		dst[i] = m.Read(source + uint16(i))
	}
}

func isCartridgeAddress(a uint16) bool {
	return a < addr.VRAMStart || (a >= addr.ExtRAMStart && a < addr.WRAMStart)
}

// VRAM returns the backing array of a VRAM bank. The PPU reads tile data
// through it directly.
func (m *MMU) VRAM(bank int) []byte {
	return m.vram[bank&1][:]
}

// OAM returns the 160 bytes of object attribute memory.
func (m *MMU) OAM() []byte {
	return m.memory[addr.OAMStart : addr.OAMStart+oamSize]
}

// VRAMBank returns the bank currently selected by VBK.
func (m *MMU) VRAMBank() int {
	return m.vramBank
}

// WRAMBank returns the bank mapped at 0xD000.
func (m *MMU) WRAMBank() int {
	return m.wramBank
}

// DoubleSpeed reports whether the CPU runs at double speed.
func (m *MMU) DoubleSpeed() bool {
	return m.doubleSpeed
}

// TrySpeedSwitch performs an armed speed switch, as triggered by STOP.
// Returns false when no switch was armed.
func (m *MMU) TrySpeedSwitch() bool {
	if !m.cgb || m.memory[addr.KEY1]&0x01 == 0 {
		return false
	}
	m.doubleSpeed = !m.doubleSpeed
	if m.doubleSpeed {
		m.memory[addr.KEY1] = 0x80
	} else {
		m.memory[addr.KEY1] = 0x00
	}
	slog.Debug("Speed switch", "double_speed", m.doubleSpeed)
	return true
}

// rewire recomputes the bank selection from the bank registers after the
// flat array has been restored.
func (m *MMU) rewire() {
	m.vramBank = 0
	m.wramBank = 1
	if m.cgb {
		m.vramBank = int(m.memory[addr.VBK] & 0x01)
		m.wramBank = wramBankFor(m.memory[addr.SVBK])
	}
}
