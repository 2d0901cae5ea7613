package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

const programStart = 0xC000

// newTestCPU loads program into WRAM and points PC at it.
func newTestCPU(program ...uint8) (*CPU, *memory.MMU) {
	mmu := memory.New()
	cpu := New(mmu)
	for i, b := range program {
		mmu.Write(programStart+uint16(i), b)
	}
	cpu.r.PC = programStart
	return cpu, mmu
}

func TestReset(t *testing.T) {
	cpu := New(memory.New())

	assert.Equal(t, uint16(0x01B0), cpu.r.AF())
	assert.Equal(t, uint16(0x0013), cpu.r.BC())
	assert.Equal(t, uint16(0x00D8), cpu.r.DE())
	assert.Equal(t, uint16(0x014D), cpu.r.HL())
	assert.Equal(t, uint16(0xFFFE), cpu.r.SP)
	assert.Equal(t, uint16(0x0100), cpu.r.PC)

	cpu.interruptsEnabled = true
	cpu.halted = true
	cpu.Reset(true)
	assert.Equal(t, uint16(0x1180), cpu.r.AF())
	assert.Equal(t, uint16(0x0000), cpu.r.BC())
	assert.Equal(t, uint16(0xFF56), cpu.r.DE())
	assert.Equal(t, uint16(0x000D), cpu.r.HL())
	assert.False(t, cpu.IME())
	assert.False(t, cpu.Halted())
}

func TestStepCycles(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		setup   func(*CPU)
		cycles  int
		pc      uint16
	}{
		{"NOP", []uint8{0x00}, nil, 4, 0xC001},
		{"LD BC,nn", []uint8{0x01, 0x34, 0x12}, nil, 12, 0xC003},
		{"LD (HL),n", []uint8{0x36, 0x42}, func(c *CPU) { c.r.SetHL(0xC100) }, 12, 0xC002},
		{"LD A,(HL)", []uint8{0x7E}, func(c *CPU) { c.r.SetHL(0xC100) }, 8, 0xC001},
		{"INC (HL)", []uint8{0x34}, func(c *CPU) { c.r.SetHL(0xC100) }, 12, 0xC001},
		{"JR taken", []uint8{0x18, 0x05}, nil, 12, 0xC007},
		{"JR backwards", []uint8{0x18, 0xFE}, nil, 12, 0xC000},
		{"JR NZ taken", []uint8{0x20, 0x02}, func(c *CPU) { c.r.F = 0 }, 12, 0xC004},
		{"JR NZ not taken", []uint8{0x20, 0x02}, func(c *CPU) { c.r.F = uint8(zeroFlag) }, 8, 0xC002},
		{"JP nn", []uint8{0xC3, 0x00, 0xD0}, nil, 16, 0xD000},
		{"JP C not taken", []uint8{0xDA, 0x00, 0xD0}, func(c *CPU) { c.r.F = 0 }, 12, 0xC003},
		{"CALL nn", []uint8{0xCD, 0x00, 0xD0}, nil, 24, 0xD000},
		{"CALL Z taken", []uint8{0xCC, 0x00, 0xD0}, func(c *CPU) { c.r.F = uint8(zeroFlag) }, 24, 0xD000},
		{"CALL Z not taken", []uint8{0xCC, 0x00, 0xD0}, func(c *CPU) { c.r.F = 0 }, 12, 0xC003},
		{"RET NC not taken", []uint8{0xD0}, func(c *CPU) { c.r.F = uint8(carryFlag) }, 8, 0xC001},
		{"RST 0x28", []uint8{0xEF}, nil, 16, 0x0028},
		{"JP HL", []uint8{0xE9}, func(c *CPU) { c.r.SetHL(0x1234) }, 4, 0x1234},
		{"CB RLC B", []uint8{0xCB, 0x00}, nil, 8, 0xC002},
		{"CB BIT 0,(HL)", []uint8{0xCB, 0x46}, func(c *CPU) { c.r.SetHL(0xC100) }, 12, 0xC002},
		{"CB SET 0,(HL)", []uint8{0xCB, 0xC6}, func(c *CPU) { c.r.SetHL(0xC100) }, 16, 0xC002},
		{"ADD SP,e", []uint8{0xE8, 0x01}, nil, 16, 0xC002},
		{"LD (nn),SP", []uint8{0x08, 0x00, 0xC1}, nil, 20, 0xC003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, _ := newTestCPU(tt.program...)
			if tt.setup != nil {
				tt.setup(cpu)
			}
			assert.Equal(t, tt.cycles, cpu.Step())
			assert.Equal(t, tt.pc, cpu.r.PC)
		})
	}
}

func TestRetTaken(t *testing.T) {
	cpu, _ := newTestCPU(0xC8) // RET Z
	cpu.r.SP = 0xFFFE
	cpu.pushStack(0xD123)
	cpu.r.F = uint8(zeroFlag)

	assert.Equal(t, 20, cpu.Step())
	assert.Equal(t, uint16(0xD123), cpu.r.PC)
	assert.Equal(t, uint16(0xFFFE), cpu.r.SP)
}

func TestLoadsThroughMemory(t *testing.T) {
	cpu, mmu := newTestCPU(
		0x21, 0x00, 0xC1, // LD HL,0xC100
		0x3E, 0x42, // LD A,0x42
		0x22,       // LD (HL+),A
		0x32,       // LD (HL-),A
		0xEA, 0x10, 0xC1, // LD (0xC110),A
		0xE0, 0x80, // LDH (0x80),A
		0x0E, 0x81, // LD C,0x81
		0xE2,       // LD (C),A
	)
	for range 9 {
		cpu.Step()
	}

	assert.Equal(t, uint8(0x42), mmu.Read(0xC100))
	assert.Equal(t, uint8(0x42), mmu.Read(0xC101))
	assert.Equal(t, uint16(0xC100), cpu.r.HL())
	assert.Equal(t, uint8(0x42), mmu.Read(0xC110))
	assert.Equal(t, uint8(0x42), mmu.Read(0xFF80))
	assert.Equal(t, uint8(0x42), mmu.Read(0xFF81))
}

func TestPushPopAF(t *testing.T) {
	cpu, _ := newTestCPU(
		0x01, 0xFF, 0x12, // LD BC,0x12FF
		0xC5, // PUSH BC
		0xF1, // POP AF
	)
	cpu.Step()
	cpu.Step()
	cpu.Step()

	assert.Equal(t, uint8(0x12), cpu.r.A)
	assert.Equal(t, uint8(0xF0), cpu.r.F, "low nibble of F is never set")
}

func TestInvalidOpcodes(t *testing.T) {
	for _, op := range invalidOpcodes {
		cpu, _ := newTestCPU(op)
		assert.PanicsWithError(t, (&InvalidOpcodeError{Opcode: op, PC: programStart}).Error(), func() {
			cpu.Step()
		})
	}
}

func TestResSetDecoding(t *testing.T) {
	// RES 0,A; SET 7,B; RES 3,(HL)
	cpu, mmu := newTestCPU(0xCB, 0x87, 0xCB, 0xF8, 0xCB, 0x9E)
	cpu.r.A = 0xFF
	cpu.r.B = 0x00
	cpu.r.SetHL(0xC100)
	mmu.Write(0xC100, 0xFF)

	assert.Equal(t, 8, cpu.Step())
	assert.Equal(t, uint8(0xFE), cpu.r.A)
	assert.Equal(t, 8, cpu.Step())
	assert.Equal(t, uint8(0x80), cpu.r.B)
	assert.Equal(t, 16, cpu.Step())
	assert.Equal(t, uint8(0xF7), mmu.Read(0xC100))
}

func TestInterruptPriority(t *testing.T) {
	cpu, mmu := newTestCPU()
	cpu.interruptsEnabled = true
	mmu.Write(addr.IF, 0x1F)
	mmu.Write(addr.IE, 0x1F)

	assert.Equal(t, 20, cpu.Step())
	assert.Equal(t, uint16(0x40), cpu.r.PC)
	assert.Equal(t, uint8(0x1E), mmu.Read(addr.IF)&0x1F, "only VBlank is acknowledged")
	assert.False(t, cpu.IME())
	assert.Equal(t, uint16(programStart), cpu.popStack())

	cpu.interruptsEnabled = true
	cpu.Step()
	assert.Equal(t, uint16(0x48), cpu.r.PC, "STAT is next")
	assert.Equal(t, uint8(0x1C), mmu.Read(addr.IF)&0x1F)
}

func TestInterruptVectors(t *testing.T) {
	tests := []struct {
		interrupt addr.Interrupt
		vector    uint16
	}{
		{addr.VBlankInterrupt, 0x40},
		{addr.LCDSTATInterrupt, 0x48},
		{addr.TimerInterrupt, 0x50},
		{addr.SerialInterrupt, 0x58},
		{addr.JoypadInterrupt, 0x60},
	}
	for _, tt := range tests {
		cpu, mmu := newTestCPU()
		cpu.interruptsEnabled = true
		mmu.Write(addr.IE, 0x1F)
		mmu.Write(addr.IF, 0)
		mmu.RequestInterrupt(tt.interrupt)

		cpu.Step()
		assert.Equal(t, tt.vector, cpu.r.PC)
	}
}

func TestInterruptNotEnabled(t *testing.T) {
	cpu, mmu := newTestCPU(0x00)
	cpu.interruptsEnabled = true
	mmu.Write(addr.IF, 0x04)
	mmu.Write(addr.IE, 0x01)

	assert.Equal(t, 4, cpu.Step())
	assert.Equal(t, uint16(0xC001), cpu.r.PC)
}

func TestEIDelay(t *testing.T) {
	cpu, mmu := newTestCPU(0xFB, 0x00, 0x00) // EI; NOP; NOP
	mmu.Write(addr.IF, 0x01)
	mmu.Write(addr.IE, 0x01)

	cpu.Step() // EI
	assert.False(t, cpu.IME())

	cpu.Step() // the instruction after EI still runs
	assert.Equal(t, uint16(0xC002), cpu.r.PC)
	assert.True(t, cpu.IME())

	assert.Equal(t, 20, cpu.Step())
	assert.Equal(t, uint16(0x40), cpu.r.PC)
	assert.Equal(t, uint16(0xC002), cpu.popStack())
}

func TestEIThenDI(t *testing.T) {
	cpu, mmu := newTestCPU(0xFB, 0xF3, 0x00) // EI; DI; NOP
	mmu.Write(addr.IF, 0x01)
	mmu.Write(addr.IE, 0x01)

	cpu.Step()
	cpu.Step()
	cpu.Step()
	assert.False(t, cpu.IME())
	assert.Equal(t, uint16(0xC003), cpu.r.PC)
}

func TestRETI(t *testing.T) {
	cpu, _ := newTestCPU(0xD9)
	cpu.pushStack(0x0150)

	cpu.Step()
	assert.True(t, cpu.IME(), "RETI enables immediately")
	assert.Equal(t, uint16(0x0150), cpu.r.PC)
}

func TestHalt(t *testing.T) {
	cpu, mmu := newTestCPU(0x76, 0x00) // HALT; NOP
	mmu.Write(addr.IE, 0x04)
	mmu.Write(addr.IF, 0x00)

	cpu.Step()
	require.True(t, cpu.Halted())
	for range 3 {
		assert.Equal(t, 4, cpu.Step())
	}
	assert.Equal(t, uint16(0xC001), cpu.r.PC)

	// IME=0: wakes and continues without jumping
	mmu.RequestInterrupt(addr.TimerInterrupt)
	cpu.Step()
	assert.False(t, cpu.Halted())
	assert.Equal(t, uint16(0xC002), cpu.r.PC)
}

func TestHaltWithIME(t *testing.T) {
	cpu, mmu := newTestCPU(0x76)
	cpu.interruptsEnabled = true
	mmu.Write(addr.IE, 0x04)
	mmu.Write(addr.IF, 0x00)

	cpu.Step()
	mmu.RequestInterrupt(addr.TimerInterrupt)
	assert.Equal(t, 20, cpu.Step())
	assert.Equal(t, uint16(0x50), cpu.r.PC)
	assert.Equal(t, uint16(0xC001), cpu.popStack())
}

func TestHaltBug(t *testing.T) {
	cpu, mmu := newTestCPU(0x76, 0x3C, 0x00) // HALT; INC A; NOP
	mmu.Write(addr.IE, 0x01)
	mmu.Write(addr.IF, 0x01)
	cpu.r.A = 0

	cpu.Step()
	assert.False(t, cpu.Halted(), "pending interrupt with IME=0 skips the halt")

	cpu.Step()
	cpu.Step()
	assert.Equal(t, uint8(2), cpu.r.A, "INC A runs twice")
	assert.Equal(t, uint16(0xC002), cpu.r.PC)
}

func TestStop(t *testing.T) {
	t.Run("enters stopped state without an armed switch", func(t *testing.T) {
		cpu, mmu := newTestCPU(0x10, 0x00, 0x00)
		mmu.Write(addr.IF, 0)

		cpu.Step()
		assert.True(t, cpu.Stopped())
		assert.Equal(t, uint16(0xC002), cpu.r.PC)
		assert.Equal(t, 4, cpu.Step())
		assert.Equal(t, uint16(0xC002), cpu.r.PC)

		mmu.RequestInterrupt(addr.JoypadInterrupt)
		cpu.Step()
		assert.False(t, cpu.Stopped())
		assert.Equal(t, uint16(0xC003), cpu.r.PC)
	})

	t.Run("ignores other interrupts while stopped", func(t *testing.T) {
		cpu, mmu := newTestCPU(0x10, 0x00, 0x00)
		cpu.interruptsEnabled = true
		mmu.Write(addr.IE, 0x1F)
		mmu.Write(addr.IF, 0)

		cpu.Step()
		require.True(t, cpu.Stopped())

		mmu.RequestInterrupt(addr.TimerInterrupt)
		assert.Equal(t, 4, cpu.Step())
		assert.True(t, cpu.Stopped())
		assert.Equal(t, uint16(0xC002), cpu.r.PC)

		mmu.RequestInterrupt(addr.JoypadInterrupt)
		assert.Equal(t, 20, cpu.Step())
		assert.False(t, cpu.Stopped())
		assert.Equal(t, uint16(0x50), cpu.r.PC, "timer outranks joypad once awake")
		assert.Equal(t, uint16(0xC002), cpu.popStack())
	})

	t.Run("performs an armed speed switch", func(t *testing.T) {
		cpu, mmu := newTestCPU(0x10, 0x00)
		mmu.SetCGB(true)
		mmu.Write(addr.KEY1, 0x01)

		cpu.Step()
		assert.False(t, cpu.Stopped())
		assert.True(t, mmu.DoubleSpeed())
	})
}

func TestOpcodeTable(t *testing.T) {
	tests := []struct {
		opcode uint8
		cb     bool
		name   string
		length int
	}{
		{0x00, false, "NOP", 1},
		{0x01, false, "LD BC,nn", 3},
		{0x06, false, "LD B,n", 2},
		{0x10, false, "STOP", 2},
		{0x18, false, "JR e", 2},
		{0x20, false, "JR NZ,e", 2},
		{0x7E, false, "LD A,(HL)", 1},
		{0x86, false, "ADD A,(HL)", 1},
		{0xC3, false, "JP nn", 3},
		{0xCB, false, "PREFIX CB", 2},
		{0xD6, false, "SUB n", 2},
		{0xE0, false, "LDH (n),A", 2},
		{0xF8, false, "LD HL,SP+e", 2},
		{0xFE, false, "CP n", 2},
		{0xFF, false, "RST 0x38", 1},
		{0x11, true, "RL C", 0},
		{0x37, true, "SWAP A", 0},
		{0x7C, true, "BIT 7,H", 0},
		{0x86, true, "RES 0,(HL)", 0},
		{0xFF, true, "SET 7,A", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, Name(tt.opcode, tt.cb))
		if !tt.cb {
			assert.Equal(t, tt.length, Length(tt.opcode), tt.name)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	cpu, _ := newTestCPU(0x3C, 0x04, 0x0C, 0xFB, 0x00)
	for range 4 {
		cpu.Step()
	}

	w := state.NewWriter()
	cpu.Save(w)

	restored := New(memory.New())
	r := state.NewReader(w.Bytes())
	restored.Load(r)
	require.NoError(t, r.Err())
	assert.Equal(t, cpu.Registers(), restored.Registers())
	assert.Equal(t, cpu.eiDelay, restored.eiDelay)
	assert.Equal(t, cpu.Cycles(), restored.Cycles())
	assert.Equal(t, cpu.Instructions(), restored.Instructions())
}
