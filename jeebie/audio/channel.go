package audio

import (
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
)

// lengthCounter counts up from the value written to NRx1. Reaching the
// ceiling with length enabled silences the channel.
type lengthCounter struct {
	value   int
	ceiling int
	enabled bool
}

func (l *lengthCounter) load(v int) {
	l.value = v
}

// tick returns true when the counter just expired.
func (l *lengthCounter) tick() bool {
	if !l.enabled || l.value >= l.ceiling {
		return false
	}
	l.value++
	return l.value == l.ceiling
}

func (l *lengthCounter) trigger() {
	if l.value >= l.ceiling {
		l.value = 0
	}
}

// envelope is the NRx2 volume envelope shared by square and noise channels.
type envelope struct {
	initial uint8
	up      bool
	pace    uint8
	volume  uint8
	timer   uint8
}

func (e *envelope) write(value uint8) {
	e.initial = value >> 4
	e.up = bit.IsSet(3, value)
	e.pace = value & 0x07
}

func (e *envelope) trigger() {
	e.volume = e.initial
	e.timer = 0
}

func (e *envelope) tick() {
	if e.pace == 0 {
		return
	}
	e.timer++
	if e.timer < e.pace {
		return
	}
	e.timer = 0
	if e.up && e.volume < 15 {
		e.volume++
	} else if !e.up && e.volume > 0 {
		e.volume--
	}
}

// dacEnabled reports whether an NRx2 value powers the channel's DAC.
func dacEnabled(nrx2 uint8) bool {
	return nrx2&0xF8 != 0
}

func updateFrequencyLow(current uint16, lowByte uint8) uint16 {
	return (current & 0x700) | uint16(lowByte)
}

func updateFrequencyHigh(current uint16, highBits uint8) uint16 {
	return (current & 0xFF) | (uint16(highBits&0x07) << 8)
}

// square is a pulse channel. Channel 1 also owns the frequency sweep.
type square struct {
	enabled bool
	dac     bool

	duty     uint8
	position uint8
	freq     uint16
	timer    int

	length   lengthCounter
	envelope envelope

	hasSweep     bool
	sweepPace    uint8
	sweepDown    bool
	sweepShift   uint8
	sweepTimer   uint8
	sweepEnabled bool
	shadow       uint16
}

func newSquare(sweep bool) square {
	return square{hasSweep: sweep, length: lengthCounter{ceiling: lengthCeiling}}
}

func (s *square) period() int {
	return int(2048-s.freq) * 4
}

func (s *square) tick(cycles int) {
	if !s.enabled {
		return
	}
	s.timer -= cycles
	for s.timer <= 0 {
		s.timer += s.period()
		s.position = (s.position + 1) & 7
	}
}

func (s *square) sample() int {
	if !s.enabled {
		return 0
	}
	if dutyPatterns[s.duty]>>(7-s.position)&1 == 1 {
		return int(s.envelope.volume)
	}
	return -int(s.envelope.volume)
}

func (s *square) tickLength() {
	if s.length.tick() {
		s.enabled = false
	}
}

func (s *square) trigger() {
	s.enabled = s.dac
	s.length.trigger()
	s.timer = s.period()
	s.envelope.trigger()

	if s.hasSweep {
		s.shadow = s.freq
		s.sweepTimer = s.sweepPeriod()
		s.sweepEnabled = s.sweepPace != 0 || s.sweepShift != 0
		if s.sweepShift != 0 {
			s.nextSweep()
		}
	}
}

func (s *square) writeSweep(value uint8) {
	s.sweepPace = (value >> 4) & 0x07
	s.sweepDown = bit.IsSet(3, value)
	s.sweepShift = value & 0x07
}

// sweepPeriod treats a pace of 0 as 8.
func (s *square) sweepPeriod() uint8 {
	if s.sweepPace == 0 {
		return 8
	}
	return s.sweepPace
}

// nextSweep computes the next frequency, disabling the channel on overflow.
func (s *square) nextSweep() uint16 {
	delta := s.shadow >> s.sweepShift
	next := s.shadow + delta
	if s.sweepDown {
		next = s.shadow - delta
	}
	if next > maxFrequency {
		s.enabled = false
	}
	return next
}

func (s *square) tickSweep() {
	if s.sweepTimer > 0 {
		s.sweepTimer--
	}
	if s.sweepTimer != 0 {
		return
	}
	s.sweepTimer = s.sweepPeriod()
	if !s.sweepEnabled || s.sweepPace == 0 {
		return
	}

	next := s.nextSweep()
	if next <= maxFrequency && s.sweepShift != 0 {
		s.shadow = next
		s.freq = next
		// overflow check against the new frequency
		s.nextSweep()
	}
}

// wave plays 32 4-bit samples from wave RAM.
type wave struct {
	enabled bool
	dac     bool

	freq     uint16
	timer    int
	position uint8
	level    uint8
	current  uint8 // wave RAM byte holding the current sample

	length lengthCounter
	ram    [waveRAMSize]memory.Register
}

func (w *wave) period() int {
	return int(2048-w.freq) * 2
}

func (w *wave) tick(cycles int) {
	if !w.enabled {
		return
	}
	w.timer -= cycles
	for w.timer <= 0 {
		w.timer += w.period()
		w.position = (w.position + 1) & 31
		w.current = w.ram[w.position/2].Get()
	}
}

func (w *wave) sample() int {
	if !w.enabled || w.level == 0 {
		return 0
	}
	nibble := w.current & 0x0F
	if w.position&1 == 0 {
		nibble = w.current >> 4
	}
	return (int(nibble)*2 - 15) >> waveShift[w.level]
}

func (w *wave) tickLength() {
	if w.length.tick() {
		w.enabled = false
	}
}

func (w *wave) trigger() {
	w.enabled = w.dac
	w.length.trigger()
	w.timer = w.period()
	w.position = 0
	w.current = w.ram[0].Get()
}

// noise drives a 15-bit LFSR, optionally narrowed to 7 bits.
type noise struct {
	enabled bool
	dac     bool

	lfsr    uint16
	shift   uint8
	narrow  bool
	divisor uint8
	timer   int

	length   lengthCounter
	envelope envelope
}

func newNoise() noise {
	return noise{lfsr: 0x7FFF, length: lengthCounter{ceiling: lengthCeiling}}
}

func (n *noise) period() int {
	return noiseDivisors[n.divisor] << n.shift
}

func (n *noise) write(value uint8) {
	n.shift = value >> 4
	n.narrow = bit.IsSet(3, value)
	n.divisor = value & 0x07
}

func (n *noise) tick(cycles int) {
	if !n.enabled {
		return
	}
	n.timer -= cycles
	for n.timer <= 0 {
		n.timer += n.period()
		n.step()
	}
}

func (n *noise) step() {
	feedback := (n.lfsr ^ n.lfsr>>1) & 1
	n.lfsr = n.lfsr>>1 | feedback<<14
	if n.narrow {
		n.lfsr = n.lfsr&^(1<<6) | feedback<<6
	}
}

func (n *noise) sample() int {
	if !n.enabled {
		return 0
	}
	if n.lfsr&1 == 0 {
		return int(n.envelope.volume)
	}
	return -int(n.envelope.volume)
}

func (n *noise) tickLength() {
	if n.length.tick() {
		n.enabled = false
	}
}

func (n *noise) trigger() {
	n.enabled = n.dac
	n.length.trigger()
	n.timer = n.period()
	n.lfsr = 0x7FFF
	n.envelope.trigger()
}
