package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
)

func TestCPU_arithmetic(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc    string
		op      func(*CPU, uint8)
		a       uint8
		operand uint8
		flagsIn Flag
		want    uint8
		flags   Flag
	}{
		{"ADD half carry", (*CPU).add, 0x0F, 0x01, 0, 0x10, halfCarryFlag},
		{"ADD overflow to zero", (*CPU).add, 0xFF, 0x01, 0, 0x00, zeroFlag | halfCarryFlag | carryFlag},
		{"ADD carry no half", (*CPU).add, 0xF0, 0x10, 0, 0x00, zeroFlag | carryFlag},
		{"ADD clears N", (*CPU).add, 0x01, 0x01, subFlag, 0x02, 0},
		{"ADC carry in half", (*CPU).adc, 0x0E, 0x01, carryFlag, 0x10, halfCarryFlag},
		{"ADC carry in overflow", (*CPU).adc, 0xFF, 0x00, carryFlag, 0x00, zeroFlag | halfCarryFlag | carryFlag},
		{"ADC without carry", (*CPU).adc, 0x10, 0x20, 0, 0x30, 0},
		{"SUB half borrow", (*CPU).sub, 0x10, 0x01, 0, 0x0F, subFlag | halfCarryFlag},
		{"SUB borrow", (*CPU).sub, 0x00, 0x01, 0, 0xFF, subFlag | halfCarryFlag | carryFlag},
		{"SUB to zero", (*CPU).sub, 0x3E, 0x3E, 0, 0x00, zeroFlag | subFlag},
		{"SBC carry in", (*CPU).sbc, 0x10, 0x0F, carryFlag, 0x00, zeroFlag | subFlag | halfCarryFlag},
		{"SBC borrow", (*CPU).sbc, 0x00, 0x00, carryFlag, 0xFF, subFlag | halfCarryFlag | carryFlag},
		{"AND zero", (*CPU).and, 0xF0, 0x0F, carryFlag, 0x00, zeroFlag | halfCarryFlag},
		{"AND", (*CPU).and, 0xFF, 0x0F, 0, 0x0F, halfCarryFlag},
		{"OR zero", (*CPU).or, 0x00, 0x00, carryFlag | subFlag, 0x00, zeroFlag},
		{"OR", (*CPU).or, 0xF0, 0x0F, 0, 0xFF, 0},
		{"XOR self", (*CPU).xor, 0xFF, 0xFF, 0, 0x00, zeroFlag},
		{"CP borrow keeps A", (*CPU).cp, 0x3C, 0x40, 0, 0x3C, subFlag | carryFlag},
		{"CP half borrow keeps A", (*CPU).cp, 0x3C, 0x2F, 0, 0x3C, subFlag | halfCarryFlag},
		{"CP equal", (*CPU).cp, 0x3C, 0x3C, 0, 0x3C, zeroFlag | subFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.A = tC.a
			cpu.r.F = uint8(tC.flagsIn)
			tC.op(cpu, tC.operand)
			assert.Equal(t, tC.want, cpu.r.A)
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_incdec(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc    string
		op      func(*CPU, uint8) uint8
		arg     uint8
		flagsIn Flag
		want    uint8
		flags   Flag
	}{
		{"INC increases", (*CPU).inc, 0x0A, 0, 0x0B, 0},
		{"INC sets zero, keeps carry", (*CPU).inc, 0xFF, carryFlag, 0x00, zeroFlag | halfCarryFlag | carryFlag},
		{"INC half carry", (*CPU).inc, 0x0F, 0, 0x10, halfCarryFlag},
		{"DEC to zero", (*CPU).dec, 0x01, 0, 0x00, zeroFlag | subFlag},
		{"DEC half borrow", (*CPU).dec, 0x10, 0, 0x0F, subFlag | halfCarryFlag},
		{"DEC wraps", (*CPU).dec, 0x00, carryFlag, 0xFF, subFlag | halfCarryFlag | carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.F = uint8(tC.flagsIn)
			assert.Equal(t, tC.want, tC.op(cpu, tC.arg))
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_daa(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc    string
		a       uint8
		flagsIn Flag
		want    uint8
		flags   Flag
	}{
		{"low nibble adjust", 0x0A, 0, 0x10, 0},
		{"both nibbles with carry out", 0x9A, 0, 0x00, zeroFlag | carryFlag},
		{"half carry after add", 0x12, halfCarryFlag, 0x18, 0},
		{"carry after add", 0x20, carryFlag, 0x80, carryFlag},
		{"already BCD", 0x45, 0, 0x45, 0},
		{"half borrow after sub", 0x0F, subFlag | halfCarryFlag, 0x09, subFlag},
		{"borrow after sub", 0xA0, subFlag | carryFlag, 0x40, subFlag | carryFlag},
		{"sub no adjust", 0x42, subFlag, 0x42, subFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.A = tC.a
			cpu.r.F = uint8(tC.flagsIn)
			cpu.daa()
			assert.Equal(t, tC.want, cpu.r.A)
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_addToHL(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc    string
		hl      uint16
		value   uint16
		flagsIn Flag
		want    uint16
		flags   Flag
	}{
		{"half carry from bit 11", 0x0FFF, 0x0001, 0, 0x1000, halfCarryFlag},
		{"carry keeps Z", 0xFFFF, 0x0001, zeroFlag, 0x0000, zeroFlag | halfCarryFlag | carryFlag},
		{"plain", 0x1234, 0x0101, subFlag, 0x1335, 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.F = uint8(tC.flagsIn)
			cpu.r.SetHL(tC.hl)
			cpu.addToHL(tC.value)
			assert.Equal(t, tC.want, cpu.r.HL())
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_addSPSigned(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc  string
		sp    uint16
		e     int8
		want  uint16
		flags Flag
	}{
		{"positive with carries", 0xFFF8, 8, 0x0000, halfCarryFlag | carryFlag},
		{"negative one", 0x0001, -1, 0x0000, halfCarryFlag | carryFlag},
		{"negative no carry", 0x0000, -1, 0xFFFF, 0},
		{"small", 0x1000, 0x10, 0x1010, 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.F = uint8(zeroFlag | subFlag)
			cpu.r.SP = tC.sp
			assert.Equal(t, tC.want, cpu.addSPSigned(tC.e))
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_shifts(t *testing.T) {
	cpu := New(memory.New())

	testCases := []struct {
		desc    string
		op      func(*CPU, uint8) uint8
		arg     uint8
		flagsIn Flag
		want    uint8
		flags   Flag
	}{
		{"RLC carry out", (*CPU).rlc, 0x80, 0, 0x01, carryFlag},
		{"RLC zero", (*CPU).rlc, 0x00, carryFlag, 0x00, zeroFlag},
		{"RRC carry out", (*CPU).rrc, 0x01, 0, 0x80, carryFlag},
		{"RL carry in", (*CPU).rl, 0x00, carryFlag, 0x01, 0},
		{"RL carry out to zero", (*CPU).rl, 0x80, 0, 0x00, zeroFlag | carryFlag},
		{"RR carry in", (*CPU).rr, 0x00, carryFlag, 0x80, 0},
		{"RR carry out", (*CPU).rr, 0x01, 0, 0x00, zeroFlag | carryFlag},
		{"SLA", (*CPU).sla, 0xC1, 0, 0x82, carryFlag},
		{"SRA keeps sign", (*CPU).sra, 0x81, 0, 0xC0, carryFlag},
		{"SRL", (*CPU).srl, 0x81, 0, 0x40, carryFlag},
		{"SWAP", (*CPU).swap, 0xAB, carryFlag, 0xBA, 0},
		{"SWAP zero", (*CPU).swap, 0x00, 0, 0x00, zeroFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.r.F = uint8(tC.flagsIn)
			assert.Equal(t, tC.want, tC.op(cpu, tC.arg))
			assert.Equal(t, uint8(tC.flags), cpu.r.F)
		})
	}
}

func TestCPU_bit(t *testing.T) {
	cpu := New(memory.New())

	cpu.r.F = uint8(carryFlag | subFlag)
	cpu.bit(7, 0x7F)
	assert.Equal(t, uint8(zeroFlag|halfCarryFlag|carryFlag), cpu.r.F)

	cpu.r.F = 0
	cpu.bit(0, 0x01)
	assert.Equal(t, uint8(halfCarryFlag), cpu.r.F)
}

func TestCPU_stack(t *testing.T) {
	cpu := New(memory.New())

	cpu.r.SP = 0xFFFE
	cpu.pushStack(0x0102)
	assert.Equal(t, uint16(0xFFFC), cpu.r.SP)

	assert.Equal(t, uint16(0x0102), cpu.popStack())
	assert.Equal(t, uint16(0xFFFE), cpu.r.SP)
}
