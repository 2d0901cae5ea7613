package cpu

import (
	"fmt"
	"strings"

	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// instruction is one entry of the decode table. exec reports whether a
// conditional branch was taken, in which case taken cycles are charged
// instead of cycles.
type instruction struct {
	name   string
	exec   func(*CPU) bool
	cycles int
	taken  int
}

var (
	opcodes   [256]instruction
	opcodesCB [256]instruction
)

var (
	regNames  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames = [4]string{"BC", "DE", "HL", "SP"}
	condNames = [4]string{"NZ", "Z", "NC", "C"}
)

// invalidOpcodes locks up real hardware when executed.
var invalidOpcodes = []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}

// Name returns the mnemonic of an opcode. cb selects the 0xCB prefixed table.
func Name(opcode uint8, cb bool) string {
	if cb {
		return opcodesCB[opcode].name
	}
	return opcodes[opcode].name
}

// Length returns the encoded size in bytes of an unprefixed opcode,
// including its immediates. Prefixed opcodes are always 2 bytes.
func Length(opcode uint8) int {
	return opcodeLengths[opcode]
}

var opcodeLengths [256]int

func def(op uint8, name string, cycles int, exec func(*CPU)) {
	opcodes[op] = instruction{
		name:   name,
		exec:   func(c *CPU) bool { exec(c); return false },
		cycles: cycles,
		taken:  cycles,
	}
}

func defBranch(op uint8, name string, cycles, taken int, exec func(*CPU) bool) {
	opcodes[op] = instruction{name: name, exec: exec, cycles: cycles, taken: taken}
}

func init() {
	initMisc()
	initLoads()
	initALU()
	initControl()
	initCB()

	for _, op := range invalidOpcodes {
		opcode := op
		opcodes[op] = instruction{
			name: "INVALID",
			exec: func(c *CPU) bool {
				panic(&InvalidOpcodeError{Opcode: opcode, PC: c.r.PC - 1})
			},
			cycles: 4,
			taken:  4,
		}
	}

	for op := range opcodes {
		if opcodes[op].exec == nil {
			panic(fmt.Sprintf("cpu: opcode 0x%02X has no implementation", op))
		}
		if opcodesCB[op].exec == nil {
			panic(fmt.Sprintf("cpu: opcode 0xCB%02X has no implementation", op))
		}
		opcodeLengths[op] = 1 + immediateSize(opcodes[op].name)
	}
}

// immediateSize derives the operand size from the mnemonic placeholders.
func immediateSize(name string) int {
	switch {
	case strings.Contains(name, "nn"):
		return 2
	case strings.HasSuffix(name, ",n"), strings.HasSuffix(name, " n"), strings.Contains(name, "(n)"),
		strings.HasSuffix(name, "e"), name == "STOP", name == "PREFIX CB":
		return 1
	}
	return 0
}

func initMisc() {
	def(0x00, "NOP", 4, func(c *CPU) {})
	def(0x10, "STOP", 4, (*CPU).stop)
	def(0x76, "HALT", 4, (*CPU).halt)
	def(0xF3, "DI", 4, func(c *CPU) {
		c.interruptsEnabled = false
		c.eiDelay = 0
	})
	def(0xFB, "EI", 4, func(c *CPU) {
		if !c.interruptsEnabled && c.eiDelay == 0 {
			c.eiDelay = 2
		}
	})

	def(0x27, "DAA", 4, (*CPU).daa)
	def(0x2F, "CPL", 4, func(c *CPU) {
		c.r.A = ^c.r.A
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
	})
	def(0x37, "SCF", 4, func(c *CPU) {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
	})
	def(0x3F, "CCF", 4, func(c *CPU) {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
	})

	// accumulator rotates always clear Z
	def(0x07, "RLCA", 4, func(c *CPU) { c.r.A = c.rlc(c.r.A); c.resetFlag(zeroFlag) })
	def(0x0F, "RRCA", 4, func(c *CPU) { c.r.A = c.rrc(c.r.A); c.resetFlag(zeroFlag) })
	def(0x17, "RLA", 4, func(c *CPU) { c.r.A = c.rl(c.r.A); c.resetFlag(zeroFlag) })
	def(0x1F, "RRA", 4, func(c *CPU) { c.r.A = c.rr(c.r.A); c.resetFlag(zeroFlag) })

	// the prefix is resolved by Step, this entry only names it
	def(0xCB, "PREFIX CB", 4, func(c *CPU) {})
}

func initLoads() {
	// LD r, r'
	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := bit.ExtractBits(uint8(op), 5, 3), bit.ExtractBits(uint8(op), 2, 0)
		cycles := 4
		if dst == 6 || src == 6 {
			cycles = 8
		}
		def(uint8(op), fmt.Sprintf("LD %s,%s", regNames[dst], regNames[src]), cycles, func(c *CPU) {
			c.setReg8(dst, c.reg8(src))
		})
	}

	for i := uint8(0); i < 8; i++ {
		r := i
		cycles := 8
		if r == 6 {
			cycles = 12
		}
		def(0x06|r<<3, fmt.Sprintf("LD %s,n", regNames[r]), cycles, func(c *CPU) {
			c.setReg8(r, c.readImmediate())
		})
	}

	for i := uint8(0); i < 4; i++ {
		rr := i
		def(0x01|rr<<4, fmt.Sprintf("LD %s,nn", pairNames[rr]), 12, func(c *CPU) {
			c.setReg16(rr, c.readImmediateWord())
		})
	}

	def(0x02, "LD (BC),A", 8, func(c *CPU) { c.bus.Write(c.r.BC(), c.r.A) })
	def(0x12, "LD (DE),A", 8, func(c *CPU) { c.bus.Write(c.r.DE(), c.r.A) })
	def(0x22, "LD (HL+),A", 8, func(c *CPU) {
		hl := c.r.HL()
		c.bus.Write(hl, c.r.A)
		c.r.SetHL(hl + 1)
	})
	def(0x32, "LD (HL-),A", 8, func(c *CPU) {
		hl := c.r.HL()
		c.bus.Write(hl, c.r.A)
		c.r.SetHL(hl - 1)
	})
	def(0x0A, "LD A,(BC)", 8, func(c *CPU) { c.r.A = c.bus.Read(c.r.BC()) })
	def(0x1A, "LD A,(DE)", 8, func(c *CPU) { c.r.A = c.bus.Read(c.r.DE()) })
	def(0x2A, "LD A,(HL+)", 8, func(c *CPU) {
		hl := c.r.HL()
		c.r.A = c.bus.Read(hl)
		c.r.SetHL(hl + 1)
	})
	def(0x3A, "LD A,(HL-)", 8, func(c *CPU) {
		hl := c.r.HL()
		c.r.A = c.bus.Read(hl)
		c.r.SetHL(hl - 1)
	})

	def(0x08, "LD (nn),SP", 20, func(c *CPU) {
		address := c.readImmediateWord()
		c.bus.Write(address, bit.Low(c.r.SP))
		c.bus.Write(address+1, bit.High(c.r.SP))
	})
	def(0xEA, "LD (nn),A", 16, func(c *CPU) { c.bus.Write(c.readImmediateWord(), c.r.A) })
	def(0xFA, "LD A,(nn)", 16, func(c *CPU) { c.r.A = c.bus.Read(c.readImmediateWord()) })

	def(0xE0, "LDH (n),A", 12, func(c *CPU) { c.bus.Write(0xFF00|uint16(c.readImmediate()), c.r.A) })
	def(0xF0, "LDH A,(n)", 12, func(c *CPU) { c.r.A = c.bus.Read(0xFF00 | uint16(c.readImmediate())) })
	def(0xE2, "LD (C),A", 8, func(c *CPU) { c.bus.Write(0xFF00|uint16(c.r.C), c.r.A) })
	def(0xF2, "LD A,(C)", 8, func(c *CPU) { c.r.A = c.bus.Read(0xFF00 | uint16(c.r.C)) })

	def(0xF8, "LD HL,SP+e", 12, func(c *CPU) { c.r.SetHL(c.addSPSigned(c.readSignedImmediate())) })
	def(0xF9, "LD SP,HL", 8, func(c *CPU) { c.r.SP = c.r.HL() })

	pushNames := [4]string{"BC", "DE", "HL", "AF"}
	for i := uint8(0); i < 4; i++ {
		rr := i
		def(0xC5|rr<<4, "PUSH "+pushNames[rr], 16, func(c *CPU) {
			if rr == 3 {
				c.pushStack(c.r.AF())
				return
			}
			c.pushStack(c.reg16(rr))
		})
		def(0xC1|rr<<4, "POP "+pushNames[rr], 12, func(c *CPU) {
			value := c.popStack()
			if rr == 3 {
				c.r.SetAF(value)
				return
			}
			c.setReg16(rr, value)
		})
	}
}

func initALU() {
	ops := [8]struct {
		name string
		fn   func(*CPU, uint8)
	}{
		{"ADD A,", (*CPU).add},
		{"ADC A,", (*CPU).adc},
		{"SUB ", (*CPU).sub},
		{"SBC A,", (*CPU).sbc},
		{"AND ", (*CPU).and},
		{"XOR ", (*CPU).xor},
		{"OR ", (*CPU).or},
		{"CP ", (*CPU).cp},
	}

	for i, op := range ops {
		fn := op.fn
		for r := uint8(0); r < 8; r++ {
			src := r
			cycles := 4
			if src == 6 {
				cycles = 8
			}
			def(0x80|uint8(i)<<3|src, op.name+regNames[src], cycles, func(c *CPU) {
				fn(c, c.reg8(src))
			})
		}
		def(0xC6|uint8(i)<<3, op.name+"n", 8, func(c *CPU) {
			fn(c, c.readImmediate())
		})
	}

	for i := uint8(0); i < 8; i++ {
		r := i
		cycles := 4
		if r == 6 {
			cycles = 12
		}
		def(0x04|r<<3, "INC "+regNames[r], cycles, func(c *CPU) { c.setReg8(r, c.inc(c.reg8(r))) })
		def(0x05|r<<3, "DEC "+regNames[r], cycles, func(c *CPU) { c.setReg8(r, c.dec(c.reg8(r))) })
	}

	for i := uint8(0); i < 4; i++ {
		rr := i
		def(0x03|rr<<4, "INC "+pairNames[rr], 8, func(c *CPU) { c.setReg16(rr, c.reg16(rr)+1) })
		def(0x0B|rr<<4, "DEC "+pairNames[rr], 8, func(c *CPU) { c.setReg16(rr, c.reg16(rr)-1) })
		def(0x09|rr<<4, "ADD HL,"+pairNames[rr], 8, func(c *CPU) { c.addToHL(c.reg16(rr)) })
	}

	def(0xE8, "ADD SP,e", 16, func(c *CPU) { c.r.SP = c.addSPSigned(c.readSignedImmediate()) })
}

func initControl() {
	def(0x18, "JR e", 12, func(c *CPU) {
		e := c.readSignedImmediate()
		c.r.PC += uint16(int16(e))
	})
	def(0xC3, "JP nn", 16, func(c *CPU) { c.r.PC = c.readImmediateWord() })
	def(0xE9, "JP HL", 4, func(c *CPU) { c.r.PC = c.r.HL() })
	def(0xCD, "CALL nn", 24, func(c *CPU) { c.call(c.readImmediateWord()) })
	def(0xC9, "RET", 16, func(c *CPU) { c.r.PC = c.popStack() })
	def(0xD9, "RETI", 16, func(c *CPU) {
		c.r.PC = c.popStack()
		c.interruptsEnabled = true
		c.eiDelay = 0
	})

	for i := uint8(0); i < 4; i++ {
		cc := i
		defBranch(0x20|cc<<3, "JR "+condNames[cc]+",e", 8, 12, func(c *CPU) bool {
			e := c.readSignedImmediate()
			if !c.condition(cc) {
				return false
			}
			c.r.PC += uint16(int16(e))
			return true
		})
		defBranch(0xC2|cc<<3, "JP "+condNames[cc]+",nn", 12, 16, func(c *CPU) bool {
			nn := c.readImmediateWord()
			if !c.condition(cc) {
				return false
			}
			c.r.PC = nn
			return true
		})
		defBranch(0xC4|cc<<3, "CALL "+condNames[cc]+",nn", 12, 24, func(c *CPU) bool {
			nn := c.readImmediateWord()
			if !c.condition(cc) {
				return false
			}
			c.call(nn)
			return true
		})
		defBranch(0xC0|cc<<3, "RET "+condNames[cc], 8, 20, func(c *CPU) bool {
			if !c.condition(cc) {
				return false
			}
			c.r.PC = c.popStack()
			return true
		})
	}

	for i := uint8(0); i < 8; i++ {
		target := uint16(i) * 8
		def(0xC7|i<<3, fmt.Sprintf("RST 0x%02X", target), 16, func(c *CPU) { c.call(target) })
	}
}
