package disasm

import (
	"fmt"
	"strings"

	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/cpu"
)

// Reader is the read-only view of the address space the disassembler needs.
type Reader interface {
	Read(address uint16) uint8
}

// Line represents a single disassembled instruction
type Line struct {
	Address     uint16
	Instruction string
	Length      int
}

// At disassembles the instruction at the given program counter. Operand
// placeholders in the CPU's mnemonics are replaced with the actual bytes.
func At(pc uint16, mem Reader) Line {
	opcode := mem.Read(pc)
	if opcode == 0xCB {
		return Line{Address: pc, Instruction: cpu.Name(mem.Read(pc+1), true), Length: 2}
	}

	name := cpu.Name(opcode, false)
	length := cpu.Length(opcode)
	line := Line{Address: pc, Instruction: name, Length: length}

	switch length {
	case 2:
		line.Instruction = formatByte(name, pc, mem.Read(pc+1))
	case 3:
		nn := bit.Combine(mem.Read(pc+2), mem.Read(pc+1))
		line.Instruction = strings.Replace(name, "nn", fmt.Sprintf("$%04X", nn), 1)
	}
	return line
}

func formatByte(name string, pc uint16, n uint8) string {
	switch {
	case strings.Contains(name, "(n)"):
		return strings.Replace(name, "(n)", fmt.Sprintf("($FF%02X)", n), 1)
	case strings.HasPrefix(name, "JR"):
		target := pc + 2 + uint16(int8(n))
		return name[:len(name)-1] + fmt.Sprintf("$%04X", target)
	case strings.HasSuffix(name, "+e"):
		return name[:len(name)-2] + fmt.Sprintf("%+d", int8(n))
	case strings.HasSuffix(name, "e"):
		return name[:len(name)-1] + fmt.Sprintf("%d", int8(n))
	case strings.HasSuffix(name, "n"):
		return name[:len(name)-1] + fmt.Sprintf("$%02X", n)
	}
	// STOP carries a padding byte
	return name
}

// Range disassembles count instructions starting from start.
func Range(start uint16, count int, mem Reader) []Line {
	lines := make([]Line, 0, count)
	pc := start
	for range count {
		line := At(pc, mem)
		lines = append(lines, line)
		pc += uint16(line.Length)
	}
	return lines
}

// Around disassembles up to before instructions leading to pc, the
// instruction at pc, and after instructions following it.
//
// Instructions have variable length, so decoding backwards is a guess: the
// earliest start address whose decode lands exactly on pc wins.
func Around(pc uint16, before, after int, mem Reader) []Line {
	start, found := pc, 0
	for offset := before * 3; offset > 0; offset-- {
		if int(pc) < offset {
			continue
		}
		candidate := pc - uint16(offset)
		count, cursor := 0, candidate
		for cursor < pc && count <= before {
			cursor += uint16(At(cursor, mem).Length)
			count++
		}
		if cursor == pc && count <= before && count > found {
			start, found = candidate, count
		}
	}
	return Range(start, found+1+after, mem)
}

// Format renders a line for display, marking the current instruction.
func Format(line Line, current bool) string {
	prefix := " "
	if current {
		prefix = ">"
	}
	return fmt.Sprintf("%s%04X: %s", prefix, line.Address, line.Instruction)
}
