package memory

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
)

const hdmaBlockSize = 0x10

// hdma tracks a VRAM transfer started through HDMA5. General purpose
// transfers complete immediately and leave no state behind; HBlank transfers
// move one 16 byte block per HBlank until done or cancelled.
type hdma struct {
	source    uint16
	dest      uint16 // offset into VRAM, 0x0000-0x1FF0
	remaining uint8  // blocks left
	active    bool
}

// status is the HDMA5 read value: bit 7 clear while an HBlank transfer runs,
// set once it finished or was cancelled, with the blocks left minus one in
// the low bits. A finished transfer reads 0xFF.
func (h *hdma) status() byte {
	if h.remaining == 0 {
		return 0xFF
	}
	length := (h.remaining - 1) & 0x7F
	if !h.active {
		return 0x80 | length
	}
	return length
}

func (m *MMU) startHDMA(value byte) {
	if m.hdma.active && value&0x80 == 0 {
		m.hdma.active = false
		slog.Debug("HBlank DMA cancelled", "remaining", m.hdma.remaining)
		return
	}

	m.hdma.source = (uint16(m.memory[addr.HDMA1])<<8 | uint16(m.memory[addr.HDMA2])) & 0xFFF0
	m.hdma.dest = (uint16(m.memory[addr.HDMA3])<<8 | uint16(m.memory[addr.HDMA4])) & 0x1FF0
	m.hdma.remaining = value&0x7F + 1

	if value&0x80 != 0 {
		m.hdma.active = true
		return
	}

	for m.hdma.remaining > 0 {
		if !m.copyHDMABlock() {
			break
		}
	}
}

// HBlank advances an active HBlank DMA by one block. The PPU calls it on
// every entry into HBlank while the LCD is on.
func (m *MMU) HBlank() {
	if !m.hdma.active {
		return
	}
	if !m.copyHDMABlock() || m.hdma.remaining == 0 {
		m.hdma.active = false
	}
}

// HDMAActive reports whether an HBlank transfer is in progress.
func (m *MMU) HDMAActive() bool {
	return m.hdma.active
}

// copyHDMABlock moves one block. Returns false when the destination ran past
// the end of VRAM.
func (m *MMU) copyHDMABlock() bool {
	if int(m.hdma.dest)+hdmaBlockSize > vramBankSize {
		m.hdma.remaining = 0
		return false
	}
	block := m.vram[m.vramBank][m.hdma.dest : m.hdma.dest+hdmaBlockSize]
	m.copyFrom(block, m.hdma.source)

	m.hdma.source += hdmaBlockSize
	m.hdma.dest += hdmaBlockSize
	m.hdma.remaining--
	return true
}
