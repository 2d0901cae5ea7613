package timing

import "time"

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()

	// SetSpeed scales the frame rate. 0 disables limiting.
	SetSpeed(speed float64)
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}
func (n *noOpLimiter) SetSpeed(float64)  {}

// Constants for Game Boy timing
const (
	CyclesPerFrame = 70224
	CPUFrequency   = 4194304
)

// TargetFPS calculates the exact Game Boy frame rate.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// ScaledFrameDuration returns the frame duration at the given speed
// multiplier, or 0 when speed disables limiting.
func ScaledFrameDuration(speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	return time.Duration(float64(FrameDuration()) / speed)
}
