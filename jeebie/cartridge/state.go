package cartridge

import (
	"fmt"

	"github.com/valerio/go-jeebie-color/jeebie/state"
)

// Save writes the controller tag followed by its fixed-layout payload.
func (c *Cartridge) Save(w *state.Writer) {
	w.Write8(uint8(c.kind))
	w.WriteBool(c.ramEnabled)
	w.Write8(c.bankLow)
	w.Write8(c.bankHigh)
	w.Write8(c.ramSelect)
	w.Write8(c.mode)
	w.WriteBytes(c.ram)

	w.WriteBool(c.rtc != nil)
	if c.rtc != nil {
		data, _ := c.rtc.MarshalBinary()
		w.WriteBytes(data)
	}
}

// Load restores the state written by Save. The controller kind must match
// the loaded ROM.
func (c *Cartridge) Load(r *state.Reader) {
	kind := Kind(r.Read8())
	if r.Err() == nil && kind != c.kind {
		r.Fail(fmt.Errorf("cartridge: state is for %s, cartridge is %s", kind, c.kind))
		return
	}
	c.ramEnabled = r.ReadBool()
	c.bankLow = r.Read8()
	c.bankHigh = r.Read8()
	c.ramSelect = r.Read8()
	c.mode = r.Read8()
	r.ExpectBytes(c.ram)

	hasRTC := r.ReadBool()
	if r.Err() != nil {
		return
	}
	if hasRTC != (c.rtc != nil) {
		r.Fail(fmt.Errorf("cartridge: RTC presence mismatch"))
		return
	}
	if hasRTC {
		if err := c.rtc.UnmarshalBinary(r.ReadBytes()); err != nil {
			r.Fail(err)
			return
		}
	}
	c.updateBanks()
}

// Clone returns a cartridge sharing the read-only ROM image but owning
// copies of all mutable state.
func (c *Cartridge) Clone() *Cartridge {
	clone := *c
	if c.ram != nil {
		clone.ram = make([]byte, len(c.ram))
		copy(clone.ram, c.ram)
	}
	if c.rtc != nil {
		rtc := *c.rtc
		clone.rtc = &rtc
	}
	return &clone
}
