package cpu

import "fmt"

// InvalidOpcodeError is the panic value raised when the CPU fetches one of
// the 11 unassigned opcodes. Executing one locks up real hardware, so
// emulation cannot continue.
type InvalidOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}
