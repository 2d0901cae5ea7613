package action

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorSpeedToggle
	EmulatorDebugToggle
	EmulatorQuit

	// Audio debug controls
	AudioToggleChannel1
	AudioToggleChannel2
	AudioToggleChannel3
	AudioToggleChannel4
	AudioSoloChannel1
	AudioSoloChannel2
	AudioSoloChannel3
	AudioSoloChannel4
	AudioUnmuteAll
)

// IsGameBoy reports whether a is one of the eight joypad buttons.
func (a Action) IsGameBoy() bool {
	return a >= GBButtonA && a <= GBDPadRight
}
