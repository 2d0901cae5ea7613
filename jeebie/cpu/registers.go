package cpu

import "github.com/valerio/go-jeebie-color/jeebie/bit"

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// Registers is the SM83 register file. The 16-bit pairs alias the 8-bit
// halves; the low nibble of F always reads 0.
type Registers struct {
	A, F uint8
	B, C uint8
	D, E uint8
	H, L uint8
	SP   uint16
	PC   uint16
}

func (r Registers) AF() uint16 { return bit.Combine(r.A, r.F) }
func (r Registers) BC() uint16 { return bit.Combine(r.B, r.C) }
func (r Registers) DE() uint16 { return bit.Combine(r.D, r.E) }
func (r Registers) HL() uint16 { return bit.Combine(r.H, r.L) }

func (r *Registers) SetAF(value uint16) {
	r.A = bit.High(value)
	r.F = bit.Low(value) & 0xF0
}

func (r *Registers) SetBC(value uint16) {
	r.B = bit.High(value)
	r.C = bit.Low(value)
}

func (r *Registers) SetDE(value uint16) {
	r.D = bit.High(value)
	r.E = bit.Low(value)
}

func (r *Registers) SetHL(value uint16) {
	r.H = bit.High(value)
	r.L = bit.Low(value)
}

// FlagString returns the flags as "ZNHC", with '-' for clear flags.
func (r Registers) FlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if r.F&uint8(f.flag) != 0 {
			flags[i] = f.name
		}
	}
	return string(flags)
}
