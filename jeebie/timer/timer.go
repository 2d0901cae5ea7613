package timer

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

// tacLookup maps TAC input clock select (bits 1-0) to the bit position
// of the 16-bit internal divider (systemCounter) used as the timer's
// clock source. The timer increments on falling edges of this selected
// bit when the timer is enabled (TAC bit 2 = 1).
//
//	00 -> bit 9  (every 1024 cycles)
//	01 -> bit 3  (every 16 cycles)
//	10 -> bit 5  (every 64 cycles)
//	11 -> bit 7  (every 256 cycles)
var tacLookup = [4]uint8{9, 3, 5, 7}

// overflowDelay is the number of cycles TIMA reads 0x00 after overflowing,
// before TMA is loaded.
const overflowDelay = 4

// Timer encapsulates the Game Boy timer/DIV/TIMA/TMA/TAC behavior.
// DIV is the upper byte of the internal counter, so it increments every 256
// cycles.
type Timer struct {
	mmu  *memory.MMU
	div  memory.Register
	tima memory.Register
	tma  memory.Register
	tac  memory.Register

	systemCounter uint16 // Internal 16-bit counter, DIV is upper 8 bits
	lastTimerBit  bool   // Previous state of timer bit for edge detection
	timaOverflow  int    // Cycles remaining in TIMA overflow state
	timaDelayInt  bool   // Delayed interrupt request (1 cycle after TMA load)
}

// New creates a timer and attaches it to the DIV-TAC registers of mmu.
func New(mmu *memory.MMU) *Timer {
	t := &Timer{
		mmu:  mmu,
		div:  mmu.Register(addr.DIV),
		tima: mmu.Register(addr.TIMA),
		tma:  mmu.Register(addr.TMA),
		tac:  mmu.Register(addr.TAC),
	}
	mmu.Attach(addr.DIV, addr.TAC, t)
	return t
}

// SetSeed initializes the internal divider counter and writes DIV accordingly.
func (t *Timer) SetSeed(seed uint16) {
	t.systemCounter = seed
	t.lastTimerBit = false
	t.timaOverflow = 0
	t.timaDelayInt = false
	t.div.Set(byte(seed >> 8))
}

// Tick advances the timer by the given number of CPU cycles.
func (t *Timer) Tick(cycles int) {
	tac := t.tac.Get()
	for range cycles {
		if t.timaDelayInt {
			t.mmu.RequestInterrupt(addr.TimerInterrupt)
			t.timaDelayInt = false
		}

		t.systemCounter++

		if t.timaOverflow > 0 {
			t.timaOverflow--
			if t.timaOverflow == 0 {
				t.tima.Set(t.tma.Get())
				t.timaDelayInt = true
			}
			continue
		}

		if !bit.IsSet(2, tac) {
			t.lastTimerBit = false
			continue
		}

		current := bit.IsSet16(tacLookup[tac&0x03], t.systemCounter)
		if t.lastTimerBit && !current {
			t.incrementTIMA()
		}
		t.lastTimerBit = current
	}
	t.div.Set(byte(t.systemCounter >> 8))
}

func (t *Timer) incrementTIMA() {
	tima := t.tima.Get()
	if tima == 0xFF {
		t.timaOverflow = overflowDelay
	}
	t.tima.Set(tima + 1)
}

// Counter returns the internal 16-bit divider.
func (t *Timer) Counter() uint16 {
	return t.systemCounter
}

func (t *Timer) ReadIO(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.systemCounter >> 8)
	case addr.TIMA:
		return t.tima.Get()
	case addr.TMA:
		return t.tma.Get()
	case addr.TAC:
		return t.tac.Get() | 0xF8
	}
	return 0xFF
}

func (t *Timer) WriteIO(address uint16, value byte) {
	switch address {
	case addr.DIV:
		// any write resets the whole counter, not just the visible byte
		t.systemCounter = 0
		t.div.Set(0)
	case addr.TIMA:
		// a write during the overflow window cancels the TMA reload
		t.timaOverflow = 0
		t.tima.Set(value)
	case addr.TMA:
		t.tma.Set(value)
	case addr.TAC:
		t.tac.Set(value & 0x07)
	}
}

func (t *Timer) Save(w *state.Writer) {
	w.Write16(t.systemCounter)
	w.WriteBool(t.lastTimerBit)
	w.WriteInt(t.timaOverflow)
	w.WriteBool(t.timaDelayInt)
}

func (t *Timer) Load(r *state.Reader) {
	t.systemCounter = r.Read16()
	t.lastTimerBit = r.ReadBool()
	t.timaOverflow = r.ReadInt()
	t.timaDelayInt = r.ReadBool()
}
