package bit

// Combine joins two bytes into a word, high byte first.
func Combine(high, low uint8) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// High returns the most significant byte of a word.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// Low returns the least significant byte of a word.
func Low(value uint16) uint8 {
	return uint8(value)
}

// HighNibble returns bits 4-7 of a byte, shifted down.
func HighNibble(value uint8) uint8 {
	return value >> 4
}

// LowNibble returns bits 0-3 of a byte.
func LowNibble(value uint8) uint8 {
	return value & 0x0F
}

// CheckedAdd adds two bytes and reports whether the result wrapped.
func CheckedAdd(a, b uint8) (result uint8, overflow bool) {
	sum := uint16(a) + uint16(b)
	return uint8(sum), sum > 0xFF
}

// CheckedSub subtracts b from a and reports whether a borrow happened.
func CheckedSub(a, b uint8) (result uint8, borrow bool) {
	return a - b, b > a
}

// IsSet reports whether the bit at index is 1.
func IsSet(index, value uint8) bool {
	return (value>>index)&1 == 1
}

// IsSet16 is IsSet for words.
func IsSet16(index uint8, value uint16) bool {
	return (value>>index)&1 == 1
}

// Set returns value with the bit at index set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Clear returns value with the bit at index set to 0.
func Clear(index, value uint8) uint8 {
	return value &^ (1 << index)
}

// Reset is an alias of Clear, matching the mnemonic used by the RES instruction.
func Reset(index, value uint8) uint8 {
	return Clear(index, value)
}

// SetTo sets or clears the bit at index depending on on.
func SetTo(index, value uint8, on bool) uint8 {
	if on {
		return Set(index, value)
	}
	return Clear(index, value)
}

// GetBitValue returns 1 if the bit at index is set, 0 otherwise.
func GetBitValue(index, value uint8) uint8 {
	return (value >> index) & 1
}

// ExtractBits returns bits highBit..lowBit (inclusive), shifted down.
// ExtractBits(0b11010110, 6, 4) == 0b101.
func ExtractBits(value uint8, highBit, lowBit uint8) uint8 {
	width := highBit - lowBit + 1
	mask := uint8((uint16(1) << width) - 1)
	return (value >> lowBit) & mask
}
