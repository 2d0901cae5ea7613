package cpu

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// Bus provides the interface for component communication
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	// TrySpeedSwitch performs an armed CGB speed switch and reports whether
	// one happened.
	TrySpeedSwitch() bool
}

const (
	baseInterruptAddress uint16 = 0x40
	interruptCycles             = 20
	haltedCycles                = 4
)

// CPU is the main struct holding SM83 state
type CPU struct {
	r Registers

	// metadata
	interruptsEnabled bool
	eiDelay           uint8 // EI delay: interrupts enable after the next instruction
	currentOpcode     uint16
	stopped           bool
	halted            bool
	cycles            uint64
	instructions      uint64

	// haltBug indicates the next opcode fetch should not advance PC.
	// Set by HALT with IME=0 and an interrupt pending.
	haltBug bool

	bus Bus
}

// New returns a CPU in the DMG post-boot state.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.Reset(false)
	return c
}

// Reset loads the register values the boot ROM leaves behind.
func (c *CPU) Reset(cgb bool) {
	if cgb {
		c.r.SetAF(0x1180)
		c.r.SetBC(0x0000)
		c.r.SetDE(0xFF56)
		c.r.SetHL(0x000D)
	} else {
		c.r.SetAF(0x01B0)
		c.r.SetBC(0x0013)
		c.r.SetDE(0x00D8)
		c.r.SetHL(0x014D)
	}
	c.r.SP = 0xFFFE
	c.r.PC = 0x0100

	c.interruptsEnabled = false
	c.eiDelay = 0
	c.halted = false
	c.stopped = false
	c.haltBug = false
	c.currentOpcode = 0
	c.cycles = 0
	c.instructions = 0
}

// Step executes a single instruction, or services an interrupt.
// Returns the amount of cycles that execution has taken.
func (c *CPU) Step() int {
	// only a joypad interrupt ends STOP; nothing is serviced before that
	if c.stopped {
		if c.bus.Read(addr.IF)&uint8(addr.JoypadInterrupt) == 0 {
			c.cycles += haltedCycles
			return haltedCycles
		}
		c.stopped = false
	}

	if c.serviceInterrupt() {
		c.cycles += interruptCycles
		return interruptCycles
	}

	if c.halted {
		// IE & IF wakes the CPU even with IME=0, it just doesn't jump.
		if c.pendingInterrupts() == 0 {
			c.cycles += haltedCycles
			return haltedCycles
		}
		c.halted = false
	}

	opcode := c.fetchOpcode()
	inst := &opcodes[opcode]
	c.currentOpcode = uint16(opcode)
	if opcode == 0xCB {
		cb := c.readImmediate()
		inst = &opcodesCB[cb]
		c.currentOpcode = bit.Combine(0xCB, cb)
	}

	cycles := inst.cycles
	if inst.exec(c) {
		cycles = inst.taken
	}

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.interruptsEnabled = true
		}
	}

	c.cycles += uint64(cycles)
	c.instructions++
	return cycles
}

func (c *CPU) pendingInterrupts() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
}

// serviceInterrupt jumps to the handler of the highest priority pending
// interrupt (bit 0 first), if IME is set. Only one is serviced per call.
func (c *CPU) serviceInterrupt() bool {
	if !c.interruptsEnabled {
		return false
	}
	pending := c.pendingInterrupts()
	if pending == 0 {
		return false
	}

	for i := uint8(0); i < addr.InterruptCount; i++ {
		if !bit.IsSet(i, pending) {
			continue
		}
		// mark as handled by clearing the bit at i
		c.bus.Write(addr.IF, bit.Clear(i, c.bus.Read(addr.IF)))

		c.interruptsEnabled = false
		c.eiDelay = 0
		c.halted = false

		// interrupt handlers are offset by 8
		// 0x40 - 0x48 - 0x50 - 0x58 - 0x60
		c.pushStack(c.r.PC)
		c.r.PC = baseInterruptAddress + uint16(i)*8
		return true
	}
	return false
}

// fetchOpcode reads the opcode at PC. After a HALT bug the PC increment is
// skipped once, so the byte is read twice.
func (c *CPU) fetchOpcode() uint8 {
	op := c.bus.Read(c.r.PC)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.r.PC++
	}
	return op
}

// readImmediate returns the byte at PC ('n' in mnemonics) and advances PC.
func (c *CPU) readImmediate() uint8 {
	n := c.bus.Read(c.r.PC)
	c.r.PC++
	return n
}

// readImmediateWord returns the little endian word at PC ('nn' in mnemonics)
// and advances PC twice.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// readSignedImmediate returns the byte at PC as a signed offset ('e' in mnemonics).
func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) pushStack(value uint16) {
	c.r.SP--
	c.bus.Write(c.r.SP, bit.High(value))
	c.r.SP--
	c.bus.Write(c.r.SP, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.r.SP)
	c.r.SP++
	high := c.bus.Read(c.r.SP)
	c.r.SP++
	return bit.Combine(high, low)
}

func (c *CPU) setFlag(flag Flag) {
	c.r.F |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.r.F &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.r.F&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
		return
	}
	c.resetFlag(flag)
}

// setFlags writes all four flags at once.
func (c *CPU) setFlags(z, n, h, cy bool) {
	c.r.F = 0
	c.setFlagToCondition(zeroFlag, z)
	c.setFlagToCondition(subFlag, n)
	c.setFlagToCondition(halfCarryFlag, h)
	c.setFlagToCondition(carryFlag, cy)
}

// Registers returns a copy of the register file.
func (c *CPU) Registers() Registers { return c.r }

// SetRegisters overwrites the register file. F's low nibble is masked.
func (c *CPU) SetRegisters(r Registers) {
	c.r = r
	c.r.F &= 0xF0
}

func (c *CPU) PC() uint16           { return c.r.PC }
func (c *CPU) Cycles() uint64       { return c.cycles }
func (c *CPU) Instructions() uint64 { return c.instructions }
func (c *CPU) IME() bool            { return c.interruptsEnabled }
func (c *CPU) Halted() bool         { return c.halted }
func (c *CPU) Stopped() bool        { return c.stopped }

// CurrentOpcode returns the last executed opcode, 0xCBxx for prefixed ones.
func (c *CPU) CurrentOpcode() uint16 { return c.currentOpcode }
