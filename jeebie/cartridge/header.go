package cartridge

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	titleAddress         = 0x134
	titleLength          = 15
	cgbFlagAddress       = 0x143
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	headerChecksumAddr   = 0x14D
	headerEnd            = 0x150

	romBankSize = 0x4000
	ramBankSize = 0x2000

	// MBC2 carries 512 half-byte cells on the controller itself, mirrored
	// across the whole external RAM window.
	mbc2RAMSize = 0x200
)

var (
	// ErrInvalidROM is returned for images too small to hold a cartridge header.
	ErrInvalidROM = errors.New("cartridge: invalid ROM image")
	// ErrUnsupportedCartridge is returned for cartridge types with no controller implementation.
	ErrUnsupportedCartridge = errors.New("cartridge: unsupported cartridge type")
)

// Kind identifies the memory bank controller on the cartridge.
type Kind uint8

const (
	KindNone Kind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ROM"
	case KindMBC1:
		return "MBC1"
	case KindMBC2:
		return "MBC2"
	case KindMBC3:
		return "MBC3"
	case KindMBC5:
		return "MBC5"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type typeInfo struct {
	kind    Kind
	ram     bool
	battery bool
	rtc     bool
	rumble  bool
}

// cartridgeTypes maps the header type byte to the controller and its features.
var cartridgeTypes = map[uint8]typeInfo{
	0x00: {kind: KindNone},
	0x08: {kind: KindNone, ram: true},
	0x09: {kind: KindNone, ram: true, battery: true},
	0x01: {kind: KindMBC1},
	0x02: {kind: KindMBC1, ram: true},
	0x03: {kind: KindMBC1, ram: true, battery: true},
	0x05: {kind: KindMBC2},
	0x06: {kind: KindMBC2, battery: true},
	0x0F: {kind: KindMBC3, battery: true, rtc: true},
	0x10: {kind: KindMBC3, ram: true, battery: true, rtc: true},
	0x11: {kind: KindMBC3},
	0x12: {kind: KindMBC3, ram: true},
	0x13: {kind: KindMBC3, ram: true, battery: true},
	0x19: {kind: KindMBC5},
	0x1A: {kind: KindMBC5, ram: true},
	0x1B: {kind: KindMBC5, ram: true, battery: true},
	0x1C: {kind: KindMBC5, rumble: true},
	0x1D: {kind: KindMBC5, ram: true, rumble: true},
	0x1E: {kind: KindMBC5, ram: true, battery: true, rumble: true},
}

// ramBankCounts maps the RAM size header byte to a number of 8KiB banks.
// Code 0x01 (2KiB) is rounded up to a full bank.
var ramBankCounts = [...]int{0, 1, 1, 4, 16, 8}

// Header holds the decoded cartridge header.
type Header struct {
	Title    string
	CGBFlag  uint8
	Type     uint8
	ROMBanks int
	RAMBanks int
	Kind     Kind
	Battery  bool
	RTC      bool
	Rumble   bool
	Checksum uint8
}

// CGB reports whether the cartridge supports Game Boy Color features.
func (h Header) CGB() bool {
	return h.CGBFlag&0x80 != 0
}

// ParseHeader decodes the header of a ROM image.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerEnd {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidROM, len(data))
	}

	cartType := data[cartridgeTypeAddress]
	info, ok := cartridgeTypes[cartType]
	if !ok {
		return Header{}, fmt.Errorf("%w: type byte 0x%02X", ErrUnsupportedCartridge, cartType)
	}

	romCode := data[romSizeAddress]
	if romCode > 8 {
		return Header{}, fmt.Errorf("%w: ROM size code 0x%02X", ErrInvalidROM, romCode)
	}
	ramCode := data[ramSizeAddress]
	if int(ramCode) >= len(ramBankCounts) {
		return Header{}, fmt.Errorf("%w: RAM size code 0x%02X", ErrInvalidROM, ramCode)
	}

	h := Header{
		Title:    cleanTitle(data[titleAddress : titleAddress+titleLength]),
		CGBFlag:  data[cgbFlagAddress],
		Type:     cartType,
		ROMBanks: 2 << romCode,
		RAMBanks: ramBankCounts[ramCode],
		Kind:     info.kind,
		Battery:  info.battery,
		RTC:      info.rtc,
		Rumble:   info.rumble,
		Checksum: data[headerChecksumAddr],
	}
	if info.ram && h.RAMBanks == 0 {
		h.RAMBanks = 1
	}
	if !info.ram {
		h.RAMBanks = 0
	}

	return h, nil
}

// cleanTitle turns the raw title bytes into a printable string. The CGB
// flag overlaps the last title byte on newer cartridges, so the title stops
// at the first NUL.
func cleanTitle(raw []byte) string {
	var sb strings.Builder
	for _, b := range raw {
		if b == 0 {
			break
		}
		r := rune(b)
		if !unicode.IsPrint(r) || r > unicode.MaxASCII {
			r = '?'
		}
		sb.WriteRune(r)
	}

	title := strings.TrimSpace(sb.String())
	if title == "" {
		return "(Untitled)"
	}
	return title
}
