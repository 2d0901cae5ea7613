package cpu

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// reg8 reads an operand by its 3-bit encoding: B C D E H L (HL) A.
func (c *CPU) reg8(index uint8) uint8 {
	switch index {
	case 0:
		return c.r.B
	case 1:
		return c.r.C
	case 2:
		return c.r.D
	case 3:
		return c.r.E
	case 4:
		return c.r.H
	case 5:
		return c.r.L
	case 6:
		return c.bus.Read(c.r.HL())
	default:
		return c.r.A
	}
}

func (c *CPU) setReg8(index uint8, value uint8) {
	switch index {
	case 0:
		c.r.B = value
	case 1:
		c.r.C = value
	case 2:
		c.r.D = value
	case 3:
		c.r.E = value
	case 4:
		c.r.H = value
	case 5:
		c.r.L = value
	case 6:
		c.bus.Write(c.r.HL(), value)
	default:
		c.r.A = value
	}
}

// reg16 reads a register pair by its 2-bit encoding: BC DE HL SP.
func (c *CPU) reg16(index uint8) uint16 {
	switch index {
	case 0:
		return c.r.BC()
	case 1:
		return c.r.DE()
	case 2:
		return c.r.HL()
	default:
		return c.r.SP
	}
}

func (c *CPU) setReg16(index uint8, value uint16) {
	switch index {
	case 0:
		c.r.SetBC(value)
	case 1:
		c.r.SetDE(value)
	case 2:
		c.r.SetHL(value)
	default:
		c.r.SP = value
	}
}

// condition evaluates NZ, Z, NC, C by their 2-bit encoding.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, bit.LowNibble(value) == 0x0F)
	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1
	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, bit.LowNibble(value) == 0)
	return result
}

func (c *CPU) addToA(value uint8, carry uint8) {
	a := c.r.A
	partial, c1 := bit.CheckedAdd(a, value)
	result, c2 := bit.CheckedAdd(partial, carry)
	c.setFlags(result == 0, false, bit.LowNibble(a)+bit.LowNibble(value)+carry > 0x0F, c1 || c2)
	c.r.A = result
}

// subtract computes A - value - carry and sets flags. The result is only
// stored when store is set, so CP shares it.
func (c *CPU) subtract(value uint8, carry uint8, store bool) {
	a := c.r.A
	partial, b1 := bit.CheckedSub(a, value)
	result, b2 := bit.CheckedSub(partial, carry)
	c.setFlags(result == 0, true, bit.LowNibble(value)+carry > bit.LowNibble(a), b1 || b2)
	if store {
		c.r.A = result
	}
}

func (c *CPU) add(value uint8) { c.addToA(value, 0) }
func (c *CPU) adc(value uint8) { c.addToA(value, c.flagToBit(carryFlag)) }
func (c *CPU) sub(value uint8) { c.subtract(value, 0, true) }
func (c *CPU) sbc(value uint8) { c.subtract(value, c.flagToBit(carryFlag), true) }
func (c *CPU) cp(value uint8)  { c.subtract(value, 0, false) }

func (c *CPU) and(value uint8) {
	c.r.A &= value
	c.setFlags(c.r.A == 0, false, true, false)
}

func (c *CPU) xor(value uint8) {
	c.r.A ^= value
	c.setFlags(c.r.A == 0, false, false, false)
}

func (c *CPU) or(value uint8) {
	c.r.A |= value
	c.setFlags(c.r.A == 0, false, false, false)
}

// daa adjusts A to packed BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.r.A
	carry := c.isSetFlag(carryFlag)

	if !c.isSetFlag(subFlag) {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.isSetFlag(halfCarryFlag) || bit.LowNibble(a) > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
	}

	c.r.A = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) addToHL(value uint16) {
	hl := c.r.HL()
	sum := uint32(hl) + uint32(value)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	c.setFlagToCondition(carryFlag, sum > 0xFFFF)
	c.r.SetHL(uint16(sum))
}

// addSPSigned returns SP + e. Carries come from the low byte, as for an
// unsigned 8-bit add; Z and N are cleared.
func (c *CPU) addSPSigned(e int8) uint16 {
	sp := c.r.SP
	u := uint16(uint8(e))
	c.setFlags(false, false, (sp&0x0F)+(u&0x0F) > 0x0F, (sp&0xFF)+u > 0xFF)
	return sp + uint16(int16(e))
}

func (c *CPU) rlc(value uint8) uint8 {
	result := value<<1 | value>>7
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) rrc(value uint8) uint8 {
	result := value>>1 | value<<7
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) rl(value uint8) uint8 {
	result := value<<1 | c.flagToBit(carryFlag)
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) rr(value uint8) uint8 {
	result := value>>1 | c.flagToBit(carryFlag)<<7
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.setFlags(result == 0, false, false, value&0x80 != 0)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := bit.LowNibble(value)<<4 | bit.HighNibble(value)
	c.setFlags(result == 0, false, false, false)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.setFlags(result == 0, false, false, value&0x01 != 0)
	return result
}

func (c *CPU) bit(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, value&(1<<index) == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) call(address uint16) {
	c.pushStack(c.r.PC)
	c.r.PC = address
}

func (c *CPU) halt() {
	if !c.interruptsEnabled && c.pendingInterrupts() != 0 {
		c.haltBug = true
		return
	}
	c.halted = true
}

// stop performs a speed switch if one is armed, otherwise enters the
// stopped state until a joypad interrupt arrives.
func (c *CPU) stop() {
	c.readImmediate()
	if c.bus.TrySpeedSwitch() {
		return
	}
	c.bus.Write(addr.DIV, 0)
	c.stopped = true
}
