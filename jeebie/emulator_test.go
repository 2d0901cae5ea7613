package jeebie

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
)

const (
	cartROMOnly      = 0x00
	cartMBC1RAMBatt  = 0x03
	cgbCompatible    = 0x80
	ramCode8KB       = 0x02
	testROMSize      = 0x8000
	programStart     = 0x150
	testCartridgeTtl = "JEEBIETEST"
)

type testROM struct {
	cartType uint8
	ramCode  uint8
	cgbFlag  uint8
	program  []byte
}

// build assembles a 32KB image: JP 0x0150 at the entry point and the
// program right after the header.
func (r testROM) build() []byte {
	rom := make([]byte, testROMSize)
	copy(rom[0x100:], []byte{0x00, 0xC3, 0x50, 0x01})
	copy(rom[0x134:], testCartridgeTtl)
	rom[0x143] = r.cgbFlag
	rom[0x147] = r.cartType
	rom[0x148] = 0x00
	rom[0x149] = r.ramCode

	var sum uint8
	for i := 0x134; i <= 0x14C; i++ {
		sum = sum - rom[i] - 1
	}
	rom[0x14D] = sum

	copy(rom[programStart:], r.program)
	return rom
}

func writeROM(t testing.TB, dir string, rom testROM) string {
	t.Helper()
	path := filepath.Join(dir, "test.gb")
	require.NoError(t, os.WriteFile(path, rom.build(), 0o644))
	return path
}

func newTestEmulator(t testing.TB, rom testROM, opts ...Option) *Emulator {
	t.Helper()
	dir := t.TempDir()
	opts = append([]Option{WithSpeed(0), WithSaveDir(dir)}, opts...)
	e, err := NewWithFile(writeROM(t, dir, rom), opts...)
	require.NoError(t, err)
	return e
}

func runFrames(t testing.TB, e *Emulator, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.RunUntilFrame())
	}
}

// Sends "Passed\n" byte by byte over the link port, then spins.
var passedProgram = []byte{
	0x21, 0x61, 0x01, // LD HL,$0161
	0x2A,       // LD A,(HL+)
	0xB7,       // OR A
	0x28, 0x08, // JR Z,$015F
	0xE0, 0x01, // LDH ($FF01),A
	0x3E, 0x81, // LD A,$81
	0xE0, 0x02, // LDH ($FF02),A
	0x18, 0xF4, // JR $0153
	0x18, 0xFE, // JR $015F
	'P', 'a', 's', 's', 'e', 'd', '\n', 0x00,
}

// Counts in B forever, sending every value over serial and into BGP so
// both the output and the rendered picture keep changing.
var counterProgram = []byte{
	0x04,       // INC B
	0x78,       // LD A,B
	0xE0, 0x01, // LDH ($FF01),A
	0x3E, 0x81, // LD A,$81
	0xE0, 0x02, // LDH ($FF02),A
	0x78,       // LD A,B
	0xE0, 0x47, // LDH ($FF47),A
	0x18, 0xF3, // JR $0150
}

func TestSerialOutput(t *testing.T) {
	e := newTestEmulator(t, testROM{program: passedProgram})

	runFrames(t, e, 2)

	assert.Equal(t, "Passed\n", string(e.SerialOutput()))
	assert.EqualValues(t, 2, e.FrameCount())
	assert.NotZero(t, e.InstructionCount())
}

func TestNoCartridge(t *testing.T) {
	e := New(WithSpeed(0))

	assert.Zero(t, e.Step())
	assert.ErrorIs(t, e.RunUntilFrame(), ErrNoCartridge)
	assert.ErrorIs(t, e.SaveState(&bytes.Buffer{}), ErrNoCartridge)
	assert.ErrorIs(t, e.LoadState(&bytes.Buffer{}), ErrNoCartridge)
	assert.NoError(t, e.Close())

	w, h := e.FrameSize()
	assert.Equal(t, 160, w)
	assert.Equal(t, 144, h)
}

func TestLoadCartridgeFailureKeepsRunningCartridge(t *testing.T) {
	e := newTestEmulator(t, testROM{program: passedProgram})
	runFrames(t, e, 1)

	err := e.LoadCartridge(filepath.Join(t.TempDir(), "missing.gb"))
	require.Error(t, err)

	runFrames(t, e, 1)
	assert.EqualValues(t, 2, e.FrameCount())
	assert.Equal(t, "Passed\n", string(e.SerialOutput()))
}

func TestHardwareModeSelection(t *testing.T) {
	tests := []struct {
		name     string
		cgbFlag  uint8
		forceDMG bool
		wantCGB  bool
		wantA    uint8
	}{
		{"dmg cartridge", 0x00, false, false, 0x01},
		{"cgb cartridge", cgbCompatible, false, true, 0x11},
		{"cgb only cartridge", 0xC0, false, true, 0x11},
		{"cgb cartridge forced to dmg", cgbCompatible, true, false, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEmulator(t, testROM{cgbFlag: tt.cgbFlag, program: passedProgram}, WithForceDMG(tt.forceDMG))

			assert.Equal(t, tt.wantCGB, e.CGB())
			assert.Equal(t, tt.wantA, e.ExtractDebugData().CPU.A)
			assert.Equal(t, uint16(0x0100), e.ExtractDebugData().CPU.PC)
		})
	}
}

func TestPause(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram})
	runFrames(t, e, 1)

	e.Pause()
	assert.True(t, e.Paused())
	assert.Zero(t, e.Step())
	require.NoError(t, e.RunUntilFrame())
	assert.EqualValues(t, 1, e.FrameCount())

	e.Resume()
	assert.False(t, e.Paused())
	runFrames(t, e, 1)
	assert.EqualValues(t, 2, e.FrameCount())
}

func TestHandleAction(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram}, WithSpeed(1))

	e.HandleAction(action.GBButtonStart, true)
	e.HandleAction(action.GBDPadLeft, true)
	buttons := e.bus.MMU.Buttons()
	assert.True(t, buttons.Start)
	assert.True(t, buttons.Left)
	assert.False(t, buttons.A)

	e.HandleAction(action.GBButtonStart, false)
	assert.False(t, e.bus.MMU.Buttons().Start)

	e.HandleAction(action.EmulatorPauseToggle, true)
	assert.True(t, e.Paused())
	e.HandleAction(action.EmulatorPauseToggle, false)
	assert.True(t, e.Paused(), "controls act on press only")
	e.HandleAction(action.EmulatorPauseToggle, true)
	assert.False(t, e.Paused())

	e.HandleAction(action.EmulatorSpeedToggle, true)
	assert.Equal(t, float64(fastForwardSpeed), e.Speed())
	e.HandleAction(action.EmulatorSpeedToggle, true)
	assert.Equal(t, 1.0, e.Speed())

	e.HandleAction(action.AudioSoloChannel2, true)
	assert.Equal(t, [4]bool{true, false, true, true}, e.bus.APU.MutedChannels())
	e.HandleAction(action.AudioUnmuteAll, true)
	assert.Equal(t, [4]bool{}, e.bus.APU.MutedChannels())
	e.HandleAction(action.AudioToggleChannel3, true)
	assert.Equal(t, [4]bool{false, false, true, false}, e.bus.APU.MutedChannels())
}

func TestMuteChannelIndexesMatchStatus(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram})

	e.MuteChannel(0, true)
	assert.Equal(t, [4]bool{true, false, false, false}, e.bus.APU.MutedChannels())
	assert.False(t, e.ChannelStatus()[0])

	e.MuteChannel(0, false)
	e.MuteChannel(3, true)
	assert.Equal(t, [4]bool{false, false, false, true}, e.bus.APU.MutedChannels())

	e.MuteChannel(4, true)
	assert.Equal(t, [4]bool{false, false, false, true}, e.bus.APU.MutedChannels())
}

func TestLCDOffStillCompletesFrames(t *testing.T) {
	e := newTestEmulator(t, testROM{program: []byte{
		0xAF,       // XOR A
		0xE0, 0x40, // LDH ($FF40),A
		0x18, 0xFE, // JR $0153
	}})

	runFrames(t, e, 1)
	before := e.cycles
	runFrames(t, e, 1)

	assert.EqualValues(t, 2, e.FrameCount())
	assert.InDelta(t, timing.CyclesPerFrame, float64(e.cycles-before), 24)
}

func TestDoubleSpeedKeepsFrameTiming(t *testing.T) {
	e := newTestEmulator(t, testROM{cgbFlag: cgbCompatible, program: []byte{
		0x3E, 0x01, // LD A,$01
		0xE0, 0x4D, // LDH ($FF4D),A
		0x10, 0x00, // STOP
		0x18, 0xFE, // JR $0156
	}})

	runFrames(t, e, 1)
	require.True(t, e.bus.MMU.DoubleSpeed())

	// align on a frame boundary, then measure a whole frame
	runFrames(t, e, 1)
	baseBefore, cpuBefore := e.cycles, e.bus.CPU.Cycles()
	runFrames(t, e, 1)
	base := float64(e.cycles - baseBefore)
	cpu := float64(e.bus.CPU.Cycles() - cpuBefore)

	assert.InDelta(t, timing.CyclesPerFrame, base, 24)
	assert.InDelta(t, 2*base, cpu, 8)
}

func TestSaveStateRoundTrip(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram})
	runFrames(t, e, 2)

	var saved bytes.Buffer
	require.NoError(t, e.SaveState(&saved))
	snapshot := saved.Bytes()

	runFrames(t, e, 3)
	wantFrame := slices.Clone(e.CurrentFrame().ToSlice())
	wantSerial := bytes.Clone(e.SerialOutput())
	wantCPU := e.ExtractDebugData().CPU

	require.NoError(t, e.LoadState(bytes.NewReader(snapshot)))
	assert.EqualValues(t, 2, e.FrameCount())

	var again bytes.Buffer
	require.NoError(t, e.SaveState(&again))
	assert.Equal(t, snapshot, again.Bytes(), "save after load reproduces the state")

	runFrames(t, e, 3)
	assert.Equal(t, wantFrame, e.CurrentFrame().ToSlice())
	assert.Equal(t, wantSerial, e.SerialOutput())
	assert.Equal(t, wantCPU, e.ExtractDebugData().CPU)
}

func TestLoadStateKeepsAudioRingAndMutes(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram})
	runFrames(t, e, 1)

	var saved bytes.Buffer
	require.NoError(t, e.SaveState(&saved))

	ring := e.Samples()
	e.MuteChannel(1, true)
	require.NoError(t, e.LoadState(&saved))

	assert.Same(t, ring, e.Samples())
	assert.Equal(t, [4]bool{false, true, false, false}, e.bus.APU.MutedChannels())
}

func TestLoadStateRejectsBadInput(t *testing.T) {
	e := newTestEmulator(t, testROM{program: counterProgram})
	runFrames(t, e, 2)

	var saved bytes.Buffer
	require.NoError(t, e.SaveState(&saved))
	good := saved.Bytes()

	other := newTestEmulator(t, testROM{program: passedProgram})
	var foreign bytes.Buffer
	require.NoError(t, other.SaveState(&foreign))

	badMagic := bytes.Clone(good)
	copy(badMagic, "NOPE")

	badVersion := bytes.Clone(good)
	badVersion[len(stateMagic)] = 0xFF

	tests := []struct {
		name     string
		data     []byte
		mismatch bool
	}{
		{"other rom", foreign.Bytes(), true},
		{"bad magic", badMagic, true},
		{"bad version", badVersion, true},
		{"truncated header", good[:6], false},
		{"truncated body", good[:len(good)/2], false},
		{"trailing bytes", append(bytes.Clone(good), 0x00), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beforeFrame := slices.Clone(e.CurrentFrame().ToSlice())
			beforeSerial := bytes.Clone(e.SerialOutput())

			err := e.LoadState(bytes.NewReader(tt.data))
			require.Error(t, err)
			if tt.mismatch {
				assert.ErrorIs(t, err, ErrStateMismatch)
			}

			assert.EqualValues(t, 2, e.FrameCount())
			assert.Equal(t, beforeFrame, e.CurrentFrame().ToSlice())
			assert.Equal(t, beforeSerial, e.SerialOutput())
		})
	}
}

func TestBatteryPersistsAcrossSessions(t *testing.T) {
	// Sends the first cartridge RAM byte over serial, then stores $42 there.
	rom := testROM{cartType: cartMBC1RAMBatt, ramCode: ramCode8KB, program: []byte{
		0x3E, 0x0A, // LD A,$0A
		0xEA, 0x00, 0x00, // LD ($0000),A
		0xFA, 0x00, 0xA0, // LD A,($A000)
		0xE0, 0x01, // LDH ($FF01),A
		0x3E, 0x81, // LD A,$81
		0xE0, 0x02, // LDH ($FF02),A
		0x3E, 0x42, // LD A,$42
		0xEA, 0x00, 0xA0, // LD ($A000),A
		0x18, 0xFE, // JR $0163
	}}
	dir := t.TempDir()
	path := writeROM(t, dir, rom)

	first, err := NewWithFile(path, WithSpeed(0))
	require.NoError(t, err)
	runFrames(t, first, 1)
	require.Len(t, first.SerialOutput(), 1)
	assert.NotEqual(t, byte(0x42), first.SerialOutput()[0])
	require.NoError(t, first.Close())

	saves, err := filepath.Glob(filepath.Join(dir, "*.sav"))
	require.NoError(t, err)
	require.Len(t, saves, 1, "battery RAM is stored next to the ROM by default")

	second, err := NewWithFile(path, WithSpeed(0))
	require.NoError(t, err)
	runFrames(t, second, 1)
	assert.Equal(t, []byte{0x42}, second.SerialOutput())
}

func TestResetRestartsCartridge(t *testing.T) {
	e := newTestEmulator(t, testROM{program: passedProgram})
	runFrames(t, e, 1)
	require.NotEmpty(t, e.SerialOutput())

	e.Reset()
	assert.Zero(t, e.FrameCount())
	assert.Empty(t, e.SerialOutput())
	assert.Equal(t, uint16(0x0100), e.ExtractDebugData().CPU.PC)

	runFrames(t, e, 1)
	assert.Equal(t, "Passed\n", string(e.SerialOutput()))
}

func TestResetRestoresBankController(t *testing.T) {
	e := newTestEmulator(t, testROM{cartType: cartMBC1RAMBatt, ramCode: ramCode8KB})
	mmu := e.bus.MMU

	mmu.Write(0x0000, 0x0A)
	mmu.Write(0xA000, 0x42)
	require.Equal(t, uint8(0x42), mmu.Read(0xA000))

	e.Reset()
	assert.Equal(t, 1, mmu.Cartridge().ROMBank())
	assert.Equal(t, uint8(0xFF), mmu.Read(0xA000), "RAM enable is cleared")

	mmu.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0x42), mmu.Read(0xA000), "battery RAM survives")
}

func TestExtractDebugData(t *testing.T) {
	e := newTestEmulator(t, testROM{program: passedProgram})

	data := e.ExtractDebugData()
	require.NotEmpty(t, data.Disassembly)
	assert.NotNil(t, data.Audio)
	assert.False(t, data.CGB)

	var current bool
	for _, line := range data.Disassembly {
		if line.Address == 0x0100 {
			current = true
			assert.Equal(t, "NOP", line.Instruction)
		}
	}
	assert.True(t, current, "disassembly covers the program counter")
}
