package cpu

import "github.com/valerio/go-jeebie-color/jeebie/state"

func (c *CPU) Save(w *state.Writer) {
	w.Write8(c.r.A)
	w.Write8(c.r.F)
	w.Write8(c.r.B)
	w.Write8(c.r.C)
	w.Write8(c.r.D)
	w.Write8(c.r.E)
	w.Write8(c.r.H)
	w.Write8(c.r.L)
	w.Write16(c.r.SP)
	w.Write16(c.r.PC)
	w.WriteBool(c.interruptsEnabled)
	w.Write8(c.eiDelay)
	w.WriteBool(c.halted)
	w.WriteBool(c.stopped)
	w.WriteBool(c.haltBug)
	w.Write16(c.currentOpcode)
	w.Write64(c.cycles)
	w.Write64(c.instructions)
}

func (c *CPU) Load(r *state.Reader) {
	c.r.A = r.Read8()
	c.r.F = r.Read8() & 0xF0
	c.r.B = r.Read8()
	c.r.C = r.Read8()
	c.r.D = r.Read8()
	c.r.E = r.Read8()
	c.r.H = r.Read8()
	c.r.L = r.Read8()
	c.r.SP = r.Read16()
	c.r.PC = r.Read16()
	c.interruptsEnabled = r.ReadBool()
	c.eiDelay = r.Read8()
	c.halted = r.ReadBool()
	c.stopped = r.ReadBool()
	c.haltBug = r.ReadBool()
	c.currentOpcode = r.Read16()
	c.cycles = r.Read64()
	c.instructions = r.Read64()
}
