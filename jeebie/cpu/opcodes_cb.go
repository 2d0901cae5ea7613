package cpu

import (
	"fmt"

	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// initCB fills the 0xCB prefixed table. Cycles include the prefix fetch.
//
//	00xxxrrr  rotate/shift xxx on r
//	01bbbrrr  BIT b, r
//	10bbbrrr  RES b, r
//	11bbbrrr  SET b, r
func initCB() {
	shifts := [8]struct {
		name string
		fn   func(*CPU, uint8) uint8
	}{
		{"RLC", (*CPU).rlc},
		{"RRC", (*CPU).rrc},
		{"RL", (*CPU).rl},
		{"RR", (*CPU).rr},
		{"SLA", (*CPU).sla},
		{"SRA", (*CPU).sra},
		{"SWAP", (*CPU).swap},
		{"SRL", (*CPU).srl},
	}

	for op := 0; op < 256; op++ {
		group := bit.ExtractBits(uint8(op), 7, 6)
		y := bit.ExtractBits(uint8(op), 5, 3)
		r := bit.ExtractBits(uint8(op), 2, 0)

		cycles := 8
		if r == 6 {
			cycles = 16
			if group == 1 {
				cycles = 12
			}
		}

		var name string
		var exec func(*CPU)
		switch group {
		case 0:
			fn := shifts[y].fn
			name = fmt.Sprintf("%s %s", shifts[y].name, regNames[r])
			exec = func(c *CPU) { c.setReg8(r, fn(c, c.reg8(r))) }
		case 1:
			name = fmt.Sprintf("BIT %d,%s", y, regNames[r])
			exec = func(c *CPU) { c.bit(y, c.reg8(r)) }
		case 2:
			name = fmt.Sprintf("RES %d,%s", y, regNames[r])
			exec = func(c *CPU) { c.setReg8(r, bit.Reset(y, c.reg8(r))) }
		default:
			name = fmt.Sprintf("SET %d,%s", y, regNames[r])
			exec = func(c *CPU) { c.setReg8(r, bit.Set(y, c.reg8(r))) }
		}

		opcodesCB[op] = instruction{
			name:   name,
			exec:   func(c *CPU) bool { exec(c); return false },
			cycles: cycles,
			taken:  cycles,
		}
	}
}
