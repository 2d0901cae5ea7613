package audio

import (
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
)

const channelCount = 4

// APU implements the Game Boy's Audio Processing Unit
// Reference: https://gbdev.io/pandocs/Audio.html
//
// Register bytes live in the MMU's flat array; the APU decodes them into
// channel state on write. Samples are pushed into a ring buffer that the
// host audio device drains from its own goroutine.
type APU struct {
	regs [addr.AudioEnd - addr.AudioStart + 1]memory.Register

	powered bool

	ch1 square
	ch2 square
	ch3 wave
	ch4 noise

	// Frame sequencer state
	// Runs at 512 Hz, advances every cyclesPerStep (8192) CPU cycles
	frameStep   int
	frameCycles int

	sampleRate    int
	basePeriod    float64 // cycles per output frame
	period        float64 // basePeriod nudged by ring fullness
	sampleCounter float64

	ring    *RingBuffer[StereoFrame]
	dropped uint64

	// host controls, may be flipped from a UI goroutine
	muted [channelCount]atomic.Bool
}

type Option func(*APU)

// WithSampleRate sets the output rate in frames per second.
func WithSampleRate(rate int) Option {
	return func(a *APU) {
		if rate > 0 {
			a.sampleRate = rate
		}
	}
}

// WithBufferFrames sets the ring capacity, rounded up to a power of two.
func WithBufferFrames(frames int) Option {
	return func(a *APU) {
		if frames > 0 {
			a.ring = NewRingBuffer[StereoFrame](frames)
		}
	}
}

// WithRing makes the APU push into an existing ring, so a host consumer
// keeps working when the APU is rebuilt.
func WithRing(ring *RingBuffer[StereoFrame]) Option {
	return func(a *APU) {
		if ring != nil {
			a.ring = ring
		}
	}
}

// New creates an APU and attaches it to the 0xFF10-0xFF3F registers of mmu.
func New(mmu *memory.MMU, opts ...Option) *APU {
	a := &APU{sampleRate: DefaultSampleRate}
	for _, opt := range opts {
		opt(a)
	}
	if a.ring == nil {
		a.ring = NewRingBuffer[StereoFrame](DefaultBufferFrames)
	}
	a.basePeriod = float64(cpuFrequency) / float64(a.sampleRate)
	a.period = a.basePeriod

	for i := range a.regs {
		a.regs[i] = mmu.Register(addr.AudioStart + uint16(i))
	}
	mmu.Attach(addr.AudioStart, addr.AudioEnd, a)
	a.Reset()
	return a
}

func (a *APU) reg(address uint16) memory.Register {
	return a.regs[address-addr.AudioStart]
}

// Reset powers the APU on with the register values left by the boot ROM.
func (a *APU) Reset() {
	a.powered = true
	a.resetChannels()
	a.frameStep = 0
	a.frameCycles = 0
	a.sampleCounter = 0
	a.period = a.basePeriod
	a.initRegisters()
}

func (a *APU) resetChannels() {
	a.ch1 = newSquare(true)
	a.ch2 = newSquare(false)
	a.ch3 = wave{length: lengthCounter{ceiling: waveLengthCeiling}}
	for i := range a.ch3.ram {
		a.ch3.ram[i] = a.reg(addr.WaveRAMStart + uint16(i))
	}
	a.ch4 = newNoise()
}

// initRegisters sets the initial power-on values for audio registers.
// Trigger bits are not acted upon, so no channel starts playing.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#hardware-registers
func (a *APU) initRegisters() {
	for i := range a.regs[:addr.WaveRAMStart-addr.AudioStart] {
		a.regs[i].Set(0)
	}
	initial := []struct {
		address uint16
		value   uint8
	}{
		{addr.NR10, 0x80}, // Sweep off
		{addr.NR11, 0xBF}, // Duty 50%, length counter loaded with max
		{addr.NR12, 0xF3}, // Max volume, decrease, period 3
		{addr.NR14, 0xBF},
		{addr.NR21, 0x3F},
		{addr.NR22, 0x00},
		{addr.NR24, 0xBF},
		{addr.NR30, 0x7F}, // DAC off
		{addr.NR31, 0xFF},
		{addr.NR32, 0x9F},
		{addr.NR34, 0xBF},
		{addr.NR41, 0xFF},
		{addr.NR42, 0x00},
		{addr.NR43, 0x00},
		{addr.NR44, 0xBF},
		{addr.NR50, 0x77}, // Max volume both sides
		{addr.NR51, 0xF3},
		{addr.NR52, 0xF1},
	}
	for _, r := range initial {
		value := r.value
		if isControlRegister(r.address) {
			value &^= 0x80
		}
		a.reg(r.address).Set(r.value)
		a.decode(r.address, value)
	}
}

func isControlRegister(address uint16) bool {
	return address == addr.NR14 || address == addr.NR24 || address == addr.NR34 || address == addr.NR44
}

// Samples returns the ring the mixer pushes into.
func (a *APU) Samples() *RingBuffer[StereoFrame] {
	return a.ring
}

// SampleRate returns the output rate in frames per second.
func (a *APU) SampleRate() int {
	return a.sampleRate
}

// Dropped returns how many frames were discarded because the ring was full.
func (a *APU) Dropped() uint64 {
	return a.dropped
}

// Tick advances the channels, the frame sequencer and the mixer by cycles
// of the 4.19MHz clock.
func (a *APU) Tick(cycles int) {
	if a.powered {
		a.ch1.tick(cycles)
		a.ch2.tick(cycles)
		a.ch3.tick(cycles)
		a.ch4.tick(cycles)

		a.frameCycles += cycles
		for a.frameCycles >= cyclesPerStep {
			a.frameCycles -= cyclesPerStep
			a.updateFrameSequencer()
		}
	}

	a.sampleCounter += float64(cycles)
	for a.sampleCounter >= a.period {
		a.sampleCounter -= a.period
		a.pushSample()
	}
}

// updateFrameSequencer runs the current step and advances to the next one.
//
//	Step   Length  Sweep  Envelope
//	0      Clock   -      -
//	1      -       -      -
//	2      Clock   Clock  -
//	3      -       -      -
//	4      Clock   -      -
//	5      -       -      -
//	6      Clock   Clock  -
//	7      -       -      Clock
//
// Reference: https://gbdev.io/pandocs/Audio_details.html#div-apu
func (a *APU) updateFrameSequencer() {
	switch a.frameStep {
	case 0, 4:
		a.updateLengthCounters()
	case 2, 6:
		a.updateLengthCounters()
		a.ch1.tickSweep()
	case 7:
		a.ch1.envelope.tick()
		a.ch2.envelope.tick()
		a.ch4.envelope.tick()
	}
	a.frameStep = (a.frameStep + 1) & 7
}

func (a *APU) updateLengthCounters() {
	a.ch1.tickLength()
	a.ch2.tickLength()
	a.ch3.tickLength()
	a.ch4.tickLength()
}

func (a *APU) pushSample() {
	if !a.ring.Push(a.mix()) {
		a.dropped++
	}

	// keep the ring between a quarter and three quarters full by
	// stretching or shrinking the push period slightly
	fill := a.ring.Len() * 4
	switch {
	case fill > a.ring.Cap()*3:
		a.period = a.basePeriod * (1 + periodNudge)
	case fill < a.ring.Cap():
		a.period = a.basePeriod * (1 - periodNudge)
	default:
		a.period = a.basePeriod
	}
}

// mix sums the channels routed to each side by NR51 and scales by NR50.
func (a *APU) mix() StereoFrame {
	if !a.powered {
		return StereoFrame{}
	}
	samples := [channelCount]int{a.ch1.sample(), a.ch2.sample(), a.ch3.sample(), a.ch4.sample()}
	panning := a.reg(addr.NR51).Get()
	volume := a.reg(addr.NR50).Get()

	var left, right int
	for i, s := range samples {
		if a.muted[i].Load() {
			continue
		}
		if bit.IsSet(uint8(i+4), panning) {
			left += s
		}
		if bit.IsSet(uint8(i), panning) {
			right += s
		}
	}
	left *= int(volume>>4&0x07) + 1
	right *= int(volume&0x07) + 1

	return StereoFrame{
		Left:  int16(left * sampleAmplitude),
		Right: int16(right * sampleAmplitude),
	}
}

func (a *APU) ReadIO(address uint16) byte {
	if address >= addr.WaveRAMStart {
		return a.reg(address).Get()
	}
	index := address - addr.AudioStart
	if address == addr.NR52 {
		status := a.reg(address).Get() & 0x80
		for i, on := range a.channelsEnabled() {
			if on {
				status |= 1 << i
			}
		}
		return status | readMasks[index]
	}
	return a.reg(address).Get() | readMasks[index]
}

func (a *APU) WriteIO(address uint16, value byte) {
	if address >= addr.WaveRAMStart {
		a.reg(address).Set(value)
		return
	}
	if address == addr.NR52 {
		a.writePower(value)
		return
	}
	// everything but NR52 and wave RAM is read-only while powered off
	if !a.powered {
		return
	}
	a.reg(address).Set(value)
	a.decode(address, value)
}

func (a *APU) writePower(value byte) {
	on := bit.IsSet(7, value)
	switch {
	case a.powered && !on:
		for i := range a.regs[:addr.NR52-addr.AudioStart] {
			a.regs[i].Set(0)
		}
		a.resetChannels()
		slog.Debug("APU powered off")
	case !a.powered && on:
		a.frameStep = 0
		a.frameCycles = 0
		slog.Debug("APU powered on")
	}
	a.powered = on
	a.reg(addr.NR52).Set(value & 0x80)
}

// decode updates channel state after a register write.
func (a *APU) decode(address uint16, value uint8) {
	switch address {
	case addr.NR10:
		a.ch1.writeSweep(value)
	case addr.NR11:
		a.ch1.duty = value >> 6
		a.ch1.length.load(int(value & 0x3F))
	case addr.NR12:
		a.ch1.envelope.write(value)
		a.ch1.dac = dacEnabled(value)
		a.ch1.enabled = a.ch1.enabled && a.ch1.dac
	case addr.NR13:
		a.ch1.freq = updateFrequencyLow(a.ch1.freq, value)
	case addr.NR14:
		a.ch1.freq = updateFrequencyHigh(a.ch1.freq, value)
		a.ch1.length.enabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch1.trigger()
		}

	case addr.NR21:
		a.ch2.duty = value >> 6
		a.ch2.length.load(int(value & 0x3F))
	case addr.NR22:
		a.ch2.envelope.write(value)
		a.ch2.dac = dacEnabled(value)
		a.ch2.enabled = a.ch2.enabled && a.ch2.dac
	case addr.NR23:
		a.ch2.freq = updateFrequencyLow(a.ch2.freq, value)
	case addr.NR24:
		a.ch2.freq = updateFrequencyHigh(a.ch2.freq, value)
		a.ch2.length.enabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch2.trigger()
		}

	case addr.NR30:
		a.ch3.dac = bit.IsSet(7, value)
		a.ch3.enabled = a.ch3.enabled && a.ch3.dac
	case addr.NR31:
		a.ch3.length.load(int(value))
	case addr.NR32:
		a.ch3.level = (value >> 5) & 0x03
	case addr.NR33:
		a.ch3.freq = updateFrequencyLow(a.ch3.freq, value)
	case addr.NR34:
		a.ch3.freq = updateFrequencyHigh(a.ch3.freq, value)
		a.ch3.length.enabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch3.trigger()
		}

	case addr.NR41:
		a.ch4.length.load(int(value & 0x3F))
	case addr.NR42:
		a.ch4.envelope.write(value)
		a.ch4.dac = dacEnabled(value)
		a.ch4.enabled = a.ch4.enabled && a.ch4.dac
	case addr.NR43:
		a.ch4.write(value)
	case addr.NR44:
		a.ch4.length.enabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.ch4.trigger()
		}
	}
}

func (a *APU) channelsEnabled() [channelCount]bool {
	return [channelCount]bool{a.ch1.enabled, a.ch2.enabled, a.ch3.enabled, a.ch4.enabled}
}

// MuteChannel mutes or unmutes a channel for debugging. Channels are
// indexed 0-3 like ChannelStatus; other indexes are ignored.
func (a *APU) MuteChannel(channel int, muted bool) {
	if channel >= 0 && channel < channelCount {
		a.muted[channel].Store(muted)
	}
}

// ToggleChannel toggles muting for channel 0-3.
func (a *APU) ToggleChannel(channel int) {
	if channel >= 0 && channel < channelCount {
		m := &a.muted[channel]
		m.Store(!m.Load())
	}
}

// SoloChannel mutes all channels except channel 0-3.
func (a *APU) SoloChannel(channel int) {
	if channel < 0 || channel >= channelCount {
		return
	}
	for i := range a.muted {
		a.muted[i].Store(i != channel)
	}
}

// UnmuteAll unmutes all channels
func (a *APU) UnmuteAll() {
	for i := range a.muted {
		a.muted[i].Store(false)
	}
}

// MutedChannels reports which channels are muted on the host side.
func (a *APU) MutedChannels() [4]bool {
	var muted [4]bool
	for i := range a.muted {
		muted[i] = a.muted[i].Load()
	}
	return muted
}

// ChannelStatus reports, per channel, whether it is playing and audible.
func (a *APU) ChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	on := a.channelsEnabled()
	return on[0] && !a.muted[0].Load(),
		on[1] && !a.muted[1].Load(),
		on[2] && !a.muted[2].Load(),
		on[3] && !a.muted[3].Load()
}

// ChannelVolumes returns the current envelope volumes; for the wave
// channel the NR32 output level.
func (a *APU) ChannelVolumes() (ch1, ch2, ch3, ch4 uint8) {
	return a.ch1.envelope.volume, a.ch2.envelope.volume, a.ch3.level, a.ch4.envelope.volume
}

// ChannelFrequencies returns the tone frequency of each channel in Hz. For
// the noise channel it is the LFSR clock rate.
func (a *APU) ChannelFrequencies() [channelCount]float64 {
	tone := func(freq uint16, scale float64) float64 {
		return scale / float64(2048-int(freq))
	}
	return [channelCount]float64{
		tone(a.ch1.freq, 131072),
		tone(a.ch2.freq, 131072),
		tone(a.ch3.freq, 65536),
		float64(cpuFrequency) / float64(a.ch4.period()),
	}
}

// CopyHostControls takes over the mute settings of another APU, used when
// the APU is rebuilt for a state load.
func (a *APU) CopyHostControls(from *APU) {
	for i := range a.muted {
		a.muted[i].Store(from.muted[i].Load())
	}
}
