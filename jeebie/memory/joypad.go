package memory

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Buttons is a full snapshot of the joypad, true meaning held down.
type Buttons struct {
	A, B, Select, Start   bool
	Right, Left, Up, Down bool
}

// Pressed reports whether key is held in the snapshot.
func (b Buttons) Pressed(key JoypadKey) bool {
	switch key {
	case JoypadRight:
		return b.Right
	case JoypadLeft:
		return b.Left
	case JoypadUp:
		return b.Up
	case JoypadDown:
		return b.Down
	case JoypadA:
		return b.A
	case JoypadB:
		return b.B
	case JoypadSelect:
		return b.Select
	case JoypadStart:
		return b.Start
	}
	return false
}

// lines returns the active-low button and d-pad nibbles.
func (b Buttons) lines() (buttons, dpad uint8) {
	buttons, dpad = 0x0F, 0x0F
	set := func(v *uint8, index uint8, held bool) {
		if held {
			*v = bit.Clear(index, *v)
		}
	}
	set(&dpad, 0, b.Right)
	set(&dpad, 1, b.Left)
	set(&dpad, 2, b.Up)
	set(&dpad, 3, b.Down)
	set(&buttons, 0, b.A)
	set(&buttons, 1, b.B)
	set(&buttons, 2, b.Select)
	set(&buttons, 3, b.Start)
	return buttons, dpad
}

// Buttons returns the currently held keys.
func (m *MMU) Buttons() Buttons {
	return Buttons{
		Right:  !bit.IsSet(0, m.joypadDpad),
		Left:   !bit.IsSet(1, m.joypadDpad),
		Up:     !bit.IsSet(2, m.joypadDpad),
		Down:   !bit.IsSet(3, m.joypadDpad),
		A:      !bit.IsSet(0, m.joypadButtons),
		B:      !bit.IsSet(1, m.joypadButtons),
		Select: !bit.IsSet(2, m.joypadButtons),
		Start:  !bit.IsSet(3, m.joypadButtons),
	}
}

// SetButtons replaces the whole joypad state. A joypad interrupt is requested
// when any line goes from released to pressed.
func (m *MMU) SetButtons(b Buttons) {
	buttons, dpad := b.lines()
	m.setLines(buttons, dpad)
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	buttons, dpad := m.joypadButtons, m.joypadDpad
	switch {
	case key <= JoypadDown:
		dpad = bit.Clear(uint8(key), dpad)
	default:
		buttons = bit.Clear(uint8(key-JoypadA), buttons)
	}
	m.setLines(buttons, dpad)
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	buttons, dpad := m.joypadButtons, m.joypadDpad
	switch {
	case key <= JoypadDown:
		dpad = bit.Set(uint8(key), dpad)
	default:
		buttons = bit.Set(uint8(key-JoypadA), buttons)
	}
	m.setLines(buttons, dpad)
}

func (m *MMU) setLines(buttons, dpad uint8) {
	pressed := (m.joypadButtons &^ buttons) | (m.joypadDpad &^ dpad)
	m.joypadButtons = buttons
	m.joypadDpad = dpad
	if pressed != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
	m.updateJoypadRegister()
}

// updateJoypadRegister sets the joypad register (P1) according to selection bits
// and hardware (buttons) status.
//
// The mapping:
//   - if bit 4 is clear, bits 0-3 are mapped to the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 are mapped to A, B, Select, Start
//   - if both are clear, hw does an AND of both button sets
//   - if neither are clear, return 0x0F (high impedence state)
//
// Note that 1 -> button released, 0 -> button pressed.
// Bits 6-7 are unused, they always read as 1 on real hardware.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000)
	result |= p1 & 0b00110000

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	// Only bits 4-5 are writable (selection bits)
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}
