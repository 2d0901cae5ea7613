package debug

import "github.com/valerio/go-jeebie-color/jeebie/disasm"

// CPUState contains all CPU register information for debugging
type CPUState struct {
	A, F uint8
	B, C uint8
	D, E uint8
	H, L uint8

	SP     uint16
	PC     uint16
	IME    bool
	Halted bool
	Cycles uint64
}

// Data contains all debug information needed by debug displays
type Data struct {
	CPU          CPUState
	Disassembly  []disasm.Line
	Audio        *AudioData
	Frames       uint64
	Instructions uint64
	Speed        float64
	Paused       bool
	CGB          bool
	DoubleSpeed  bool

	InterruptEnable uint8 // IE register at 0xFFFF
	InterruptFlags  uint8 // IF register at 0xFF0F
}
