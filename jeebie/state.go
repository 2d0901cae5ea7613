package jeebie

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/state"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
)

const (
	stateMagic          = "JBCS"
	stateVersion uint16 = 1
)

// ErrStateMismatch is returned when a save state has the wrong format
// version or was made with a different ROM.
var ErrStateMismatch = errors.New("save state mismatch")

// SaveState writes the complete machine state to w.
//
// Layout: magic, version, ROM hash, then bus (MMU, CPU, PPU, timer, APU,
// serial), emulator counters, pacer and finally the cartridge.
func (e *Emulator) SaveState(w io.Writer) error {
	if e.cart == nil {
		return ErrNoCartridge
	}

	sw := state.NewWriter()
	sw.WriteRaw([]byte(stateMagic))
	sw.Write16(stateVersion)
	sw.Write64(e.cart.Hash())

	e.bus.Save(sw)
	sw.Write64(e.frameCount)
	sw.Write64(e.cycles)
	e.pacer.Save(sw)
	e.cart.Save(sw)

	if _, err := w.Write(sw.Bytes()); err != nil {
		return fmt.Errorf("writing save state: %w", err)
	}
	slog.Debug("Saved state", "bytes", len(sw.Bytes()), "frame", e.frameCount)
	return nil
}

// LoadState restores a state written by SaveState. Decoding happens into a
// freshly built set of components; the running emulator is only touched
// once the whole stream decoded cleanly, so a failed load changes nothing.
func (e *Emulator) LoadState(r io.Reader) error {
	if e.cart == nil {
		return ErrNoCartridge
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading save state: %w", err)
	}

	sr := state.NewReader(data)
	magic := make([]byte, len(stateMagic))
	sr.ReadRaw(magic)
	version := sr.Read16()
	hash := sr.Read64()
	if err := sr.Err(); err != nil {
		return fmt.Errorf("reading save state header: %w", err)
	}
	if string(magic) != stateMagic || version != stateVersion {
		return fmt.Errorf("%w: format %q version %d", ErrStateMismatch, magic, version)
	}
	if hash != e.cart.Hash() {
		return fmt.Errorf("%w: state is for ROM %016x, loaded ROM is %016x", ErrStateMismatch, hash, e.cart.Hash())
	}

	cart := e.cart.Clone()
	bus := newBus(cart, e.cgb, &e.cfg)
	bus.Load(sr)
	frameCount := sr.Read64()
	cycles := sr.Read64()
	pacer := timing.NewPacer()
	pacer.Load(sr)
	cart.Load(sr)

	if err := sr.Err(); err != nil {
		return fmt.Errorf("decoding save state: %w", err)
	}
	if n := sr.Remaining(); n != 0 {
		return fmt.Errorf("decoding save state: %d trailing bytes", n)
	}

	bus.APU.CopyHostControls(e.bus.APU)
	e.bus = bus
	e.cart = cart
	e.cgb = bus.MMU.CGB()
	e.frameCount = frameCount
	e.cycles = cycles
	e.pacer = pacer
	slog.Debug("Loaded state", "bytes", len(data), "frame", frameCount)
	return nil
}
