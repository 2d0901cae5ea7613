package audio

import "github.com/valerio/go-jeebie-color/jeebie/state"

func (l *lengthCounter) saveState(w *state.Writer) {
	w.WriteInt(l.value)
	w.WriteBool(l.enabled)
}

func (l *lengthCounter) loadState(r *state.Reader) {
	l.value = r.ReadInt()
	l.enabled = r.ReadBool()
}

func (e *envelope) saveState(w *state.Writer) {
	w.Write8(e.initial)
	w.WriteBool(e.up)
	w.Write8(e.pace)
	w.Write8(e.volume)
	w.Write8(e.timer)
}

func (e *envelope) loadState(r *state.Reader) {
	e.initial = r.Read8()
	e.up = r.ReadBool()
	e.pace = r.Read8()
	e.volume = r.Read8()
	e.timer = r.Read8()
}

func (s *square) saveState(w *state.Writer) {
	w.WriteBool(s.enabled)
	w.WriteBool(s.dac)
	w.Write8(s.duty)
	w.Write8(s.position)
	w.Write16(s.freq)
	w.WriteInt(s.timer)
	s.length.saveState(w)
	s.envelope.saveState(w)
	w.Write8(s.sweepPace)
	w.WriteBool(s.sweepDown)
	w.Write8(s.sweepShift)
	w.Write8(s.sweepTimer)
	w.WriteBool(s.sweepEnabled)
	w.Write16(s.shadow)
}

func (s *square) loadState(r *state.Reader) {
	s.enabled = r.ReadBool()
	s.dac = r.ReadBool()
	s.duty = r.Read8() & 0x03
	s.position = r.Read8() & 0x07
	s.freq = r.Read16() & maxFrequency
	s.timer = r.ReadInt()
	s.length.loadState(r)
	s.envelope.loadState(r)
	s.sweepPace = r.Read8()
	s.sweepDown = r.ReadBool()
	s.sweepShift = r.Read8()
	s.sweepTimer = r.Read8()
	s.sweepEnabled = r.ReadBool()
	s.shadow = r.Read16()
}

func (w *wave) saveState(sw *state.Writer) {
	sw.WriteBool(w.enabled)
	sw.WriteBool(w.dac)
	sw.Write16(w.freq)
	sw.WriteInt(w.timer)
	sw.Write8(w.position)
	sw.Write8(w.level)
	sw.Write8(w.current)
	w.length.saveState(sw)
}

func (w *wave) loadState(r *state.Reader) {
	w.enabled = r.ReadBool()
	w.dac = r.ReadBool()
	w.freq = r.Read16() & maxFrequency
	w.timer = r.ReadInt()
	w.position = r.Read8() & 31
	w.level = r.Read8() & 0x03
	w.current = r.Read8()
	w.length.loadState(r)
}

func (n *noise) saveState(w *state.Writer) {
	w.WriteBool(n.enabled)
	w.WriteBool(n.dac)
	w.Write16(n.lfsr)
	w.Write8(n.shift)
	w.WriteBool(n.narrow)
	w.Write8(n.divisor)
	w.WriteInt(n.timer)
	n.length.saveState(w)
	n.envelope.saveState(w)
}

func (n *noise) loadState(r *state.Reader) {
	n.enabled = r.ReadBool()
	n.dac = r.ReadBool()
	n.lfsr = r.Read16()
	n.shift = r.Read8()
	n.narrow = r.ReadBool()
	n.divisor = r.Read8() & 0x07
	n.timer = r.ReadInt()
	n.length.loadState(r)
	n.envelope.loadState(r)
}

// Save writes channel and sequencer state. Register bytes travel with the
// MMU; host mute settings are not part of the machine state.
func (a *APU) Save(w *state.Writer) {
	w.WriteBool(a.powered)
	w.WriteInt(a.frameStep)
	w.WriteInt(a.frameCycles)
	w.WriteFloat64(a.sampleCounter)
	a.ch1.saveState(w)
	a.ch2.saveState(w)
	a.ch3.saveState(w)
	a.ch4.saveState(w)
}

func (a *APU) Load(r *state.Reader) {
	a.powered = r.ReadBool()
	a.frameStep = r.ReadInt() & 7
	a.frameCycles = r.ReadInt()
	a.sampleCounter = r.ReadFloat64()
	a.ch1.loadState(r)
	a.ch2.loadState(r)
	a.ch3.loadState(r)
	a.ch4.loadState(r)
	a.period = a.basePeriod
}
