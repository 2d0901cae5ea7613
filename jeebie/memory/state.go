package memory

import (
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

func (m *MMU) Save(w *state.Writer) {
	w.WriteBool(m.cgb)
	w.WriteBytes(m.memory[:])
	for i := range m.vram {
		w.WriteBytes(m.vram[i][:])
	}
	for i := range m.wram {
		w.WriteBytes(m.wram[i][:])
	}
	w.WriteBool(m.doubleSpeed)
	w.Write16(m.hdma.source)
	w.Write16(m.hdma.dest)
	w.Write8(m.hdma.remaining)
	w.WriteBool(m.hdma.active)
	w.Write8(m.joypadButtons)
	w.Write8(m.joypadDpad)
}

// Load restores the state written by Save and recomputes the bank mapping.
func (m *MMU) Load(r *state.Reader) {
	m.cgb = r.ReadBool()
	r.ExpectBytes(m.memory[:])
	for i := range m.vram {
		r.ExpectBytes(m.vram[i][:])
	}
	for i := range m.wram {
		r.ExpectBytes(m.wram[i][:])
	}
	m.doubleSpeed = r.ReadBool()
	m.hdma.source = r.Read16()
	m.hdma.dest = r.Read16()
	m.hdma.remaining = r.Read8()
	m.hdma.active = r.ReadBool()
	m.joypadButtons = r.Read8() & 0x0F
	m.joypadDpad = r.Read8() & 0x0F
	m.rewire()
}
