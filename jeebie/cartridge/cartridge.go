package cartridge

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash"
)

// Cartridge owns the ROM image and the state of its bank controller.
//
// The controller is a tagged variant: kind selects which of the register
// interpretations below apply, and all kinds share the same fields so the
// state can be serialized as a fixed layout.
type Cartridge struct {
	header Header
	kind   Kind
	hash   uint64

	rom []byte
	ram []byte

	romBanks int
	ramBanks int

	ramEnabled bool

	// bank registers, interpreted per kind:
	//  MBC1: bankLow is the 5 bit ROM register, bankHigh the 2 bit secondary register.
	//  MBC2: bankLow is the 4 bit ROM register.
	//  MBC3: bankLow is the 7 bit ROM register, ramSelect picks a RAM bank or RTC register.
	//  MBC5: bankLow/bankHigh hold bits 0-7 and bit 8 of the ROM bank, ramSelect the RAM bank.
	bankLow   uint8
	bankHigh  uint8
	ramSelect uint8
	mode      uint8

	rtc *RTC

	// offsets derived from the bank registers, recomputed on every bank write
	rom0Offset int
	romNOffset int
	ramOffset  int
}

// New builds a cartridge from a raw ROM image.
func New(data []byte, opts ...Option) (*Cartridge, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	cfg := config{clock: SystemClock}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cartridge{
		header:   header,
		kind:     header.Kind,
		hash:     xxhash.Sum64(data),
		romBanks: header.ROMBanks,
		ramBanks: header.RAMBanks,
	}

	// the image is padded to the declared size so bank arithmetic never runs off the end
	for c.romBanks*romBankSize < len(data) {
		c.romBanks *= 2
	}
	c.rom = make([]byte, c.romBanks*romBankSize)
	copy(c.rom, data)

	switch {
	case c.kind == KindMBC2:
		c.ram = make([]byte, mbc2RAMSize)
	case c.ramBanks > 0:
		c.ram = make([]byte, c.ramBanks*ramBankSize)
	}
	if header.RTC {
		c.rtc = NewRTC(cfg.clock)
	}

	c.Reset()

	slog.Info("Loaded cartridge",
		"title", header.Title,
		"mbc", header.Kind.String(),
		"type", fmt.Sprintf("0x%02X", header.Type),
		"rom_banks", c.romBanks,
		"ram_banks", c.ramBanks,
		"battery", header.Battery,
		"rtc", header.RTC,
		"cgb", header.CGB())

	return c, nil
}

type config struct {
	clock Clock
}

// Option customizes cartridge construction.
type Option func(*config)

// WithClock sets the time source used by the real time clock.
func WithClock(clock Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// Reset puts the bank controller back in its power-on state: RAM disabled
// and bank 1 mapped at 0x4000. RAM and RTC contents are kept.
func (c *Cartridge) Reset() {
	c.ramEnabled = false
	c.bankLow = 1
	c.bankHigh = 0
	c.ramSelect = 0
	c.mode = 0
	c.updateBanks()
}

// Header returns the decoded cartridge header.
func (c *Cartridge) Header() Header {
	return c.header
}

// Kind returns the bank controller variant.
func (c *Cartridge) Kind() Kind {
	return c.kind
}

// Hash returns the xxhash of the ROM image, used to identify it in save files.
func (c *Cartridge) Hash() uint64 {
	return c.hash
}

// HasRAM reports whether the cartridge carries external RAM.
func (c *Cartridge) HasRAM() bool {
	return len(c.ram) > 0
}

// HasBattery reports whether RAM and RTC contents should be persisted.
func (c *Cartridge) HasBattery() bool {
	return c.header.Battery
}

// RTC returns the real time clock, or nil if the cartridge has none.
func (c *Cartridge) RTC() *RTC {
	return c.rtc
}

// ROMBank returns the bank currently mapped at 0x4000-0x7FFF.
func (c *Cartridge) ROMBank() int {
	return c.romNOffset / romBankSize
}

// RAMBank returns the bank currently mapped at 0xA000-0xBFFF.
func (c *Cartridge) RAMBank() int {
	return c.ramOffset / ramBankSize
}

// Read returns the byte visible at address in the 0x0000-0x7FFF or
// 0xA000-0xBFFF windows.
func (c *Cartridge) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return c.rom[c.rom0Offset+int(address)]
	case address < 0x8000:
		return c.rom[c.romNOffset+int(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		return c.readRAM(address)
	default:
		panic(fmt.Sprintf("cartridge: read outside cartridge space: 0x%04X", address))
	}
}

// Write handles bank controller register writes (0x0000-0x7FFF) and
// external RAM writes (0xA000-0xBFFF).
func (c *Cartridge) Write(address uint16, value uint8) {
	switch {
	case address < 0x8000:
		switch c.kind {
		case KindNone:
			// no controller, writes to ROM are ignored
		case KindMBC1:
			c.writeMBC1(address, value)
		case KindMBC2:
			c.writeMBC2(address, value)
		case KindMBC3:
			c.writeMBC3(address, value)
		case KindMBC5:
			c.writeMBC5(address, value)
		default:
			panic(fmt.Sprintf("cartridge: unknown controller kind %d", c.kind))
		}
	case address >= 0xA000 && address < 0xC000:
		c.writeRAM(address, value)
	default:
		panic(fmt.Sprintf("cartridge: write outside cartridge space: 0x%04X", address))
	}
}

// DMACopy fills dst with the bytes visible starting at src, applying the
// same bank translation as Read.
func (c *Cartridge) DMACopy(dst []byte, src uint16) {
	for i := range dst {
		dst[i] = c.Read(src + uint16(i))
	}
}

func (c *Cartridge) ramAccessible() bool {
	if len(c.ram) == 0 {
		return false
	}
	// the plain ROM+RAM cartridges have no enable register
	return c.kind == KindNone || c.ramEnabled
}

func (c *Cartridge) readRAM(address uint16) uint8 {
	if c.kind == KindMBC3 && c.ramSelect >= 0x08 {
		if !c.ramEnabled || c.rtc == nil {
			return 0xFF
		}
		return c.rtc.Read(c.ramSelect)
	}
	if !c.ramAccessible() {
		return 0xFF
	}
	if c.kind == KindMBC2 {
		// only the low nibble exists, the upper bits read as set
		return 0xF0 | c.ram[int(address-0xA000)&(mbc2RAMSize-1)]
	}
	return c.ram[c.ramOffset+int(address-0xA000)]
}

func (c *Cartridge) writeRAM(address uint16, value uint8) {
	if c.kind == KindMBC3 && c.ramSelect >= 0x08 {
		if c.ramEnabled && c.rtc != nil {
			c.rtc.Write(c.ramSelect, value)
		}
		return
	}
	if !c.ramAccessible() {
		return
	}
	if c.kind == KindMBC2 {
		c.ram[int(address-0xA000)&(mbc2RAMSize-1)] = value & 0x0F
		return
	}
	c.ram[c.ramOffset+int(address-0xA000)] = value
}

// updateBanks recomputes the window offsets from the bank registers.
func (c *Cartridge) updateBanks() {
	romMask := c.romBanks - 1
	ramMask := c.ramBanks - 1
	if ramMask < 0 {
		ramMask = 0
	}

	rom0, romN, ramBank := 0, 1, 0

	switch c.kind {
	case KindNone:
		romN = 1
	case KindMBC1:
		romN = MBC1ROMBank(c.bankLow, c.bankHigh, c.romBanks)
		if c.mode == 1 {
			rom0 = (int(c.bankHigh&0x03) << 5) & romMask
			ramBank = int(c.bankHigh&0x03) & ramMask
		}
	case KindMBC2:
		romN = int(c.bankLow&0x0F) & romMask
		if romN == 0 {
			romN = 1
		}
	case KindMBC3:
		romN = int(c.bankLow&0x7F) & romMask
		if romN == 0 {
			romN = 1
		}
		if c.ramSelect <= 0x03 {
			ramBank = int(c.ramSelect) & ramMask
		}
	case KindMBC5:
		romN = (int(c.bankHigh&0x01)<<8 | int(c.bankLow)) & romMask
		ramBank = int(c.ramSelect&0x0F) & ramMask
	}

	c.rom0Offset = rom0 * romBankSize
	c.romNOffset = romN * romBankSize
	c.ramOffset = ramBank * ramBankSize
}

// MBC1ROMBank computes the bank mapped at 0x4000 for the given register
// values. A zero lower register selects 1, and the result never maps
// bank 0 into the switchable window.
func MBC1ROMBank(lower, upper uint8, bankCount int) int {
	lower &= 0x1F
	if lower == 0 {
		lower = 1
	}
	bank := (int(upper&0x03)<<5 | int(lower)) & (bankCount - 1)
	if bank == 0 {
		bank = 1
	}
	return bank
}

func (c *Cartridge) writeMBC1(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		c.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		c.bankLow = value & 0x1F
	case address < 0x6000:
		c.bankHigh = value & 0x03
	default:
		c.mode = value & 0x01
	}
	c.updateBanks()
}

// writeMBC2 decodes both registers from 0x0000-0x3FFF: address bit 8 clear
// selects RAM enable, set selects the ROM bank.
func (c *Cartridge) writeMBC2(address uint16, value uint8) {
	if address >= 0x4000 {
		return
	}
	if address&0x0100 == 0 {
		c.ramEnabled = value&0x0F == 0x0A
	} else {
		c.bankLow = value & 0x0F
	}
	c.updateBanks()
}

func (c *Cartridge) writeMBC3(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		c.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		c.bankLow = value & 0x7F
	case address < 0x6000:
		c.ramSelect = value & 0x0F
	default:
		if c.rtc != nil {
			c.rtc.WriteLatch(value)
		}
	}
	c.updateBanks()
}

func (c *Cartridge) writeMBC5(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		c.ramEnabled = value&0x0F == 0x0A
	case address < 0x3000:
		c.bankLow = value
	case address < 0x4000:
		c.bankHigh = value & 0x01
	case address < 0x6000:
		if c.header.Rumble {
			// bit 3 drives the rumble motor
			value &= 0x07
		}
		c.ramSelect = value & 0x0F
	default:
		// unused on MBC5
	}
	c.updateBanks()
}
