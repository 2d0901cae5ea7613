package audio

import "github.com/valerio/go-jeebie-color/jeebie/addr"

// Timing constants
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// cyclesPerStep is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	cyclesPerStep = 8192

	cpuFrequency = 4194304

	// DefaultSampleRate is the host output rate in frames per second.
	DefaultSampleRate = 44100

	// DefaultBufferFrames is the default ring capacity, ~185ms at 44.1kHz.
	DefaultBufferFrames = 8192

	// periodNudge is how much the push period is stretched or shrunk when
	// the ring is running too full or too empty.
	periodNudge = 0.0001
)

// Channel constants
const (
	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16

	lengthCeiling     = 64
	waveLengthCeiling = 256

	maxFrequency = 2047

	// sampleAmplitude scales the mixed value (at most 4 channels * 15 * 8
	// volume steps = 480) into the int16 range.
	sampleAmplitude = 64
)

// dutyPatterns holds the 8-step waveforms for 12.5%, 25%, 50% and 75% duty.
var dutyPatterns = [4]uint8{
	0b00000001,
	0b10000001,
	0b10000111,
	0b01111110,
}

// waveShift maps NR32 output level to a right shift. Level 0 mutes.
var waveShift = [4]uint8{4, 0, 1, 2}

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// readMasks are OR'd into register reads: unused and write-only bits read as 1.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
var readMasks = [addr.WaveRAMStart - addr.AudioStart]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // unused
}
