package backend

import (
	"context"
	"fmt"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/debug"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// Backend represents a complete emulator platform (rendering + input + audio)
// Backends are responsible for:
// - Rendering frames to their specific output (terminal, SDL window, etc.)
// - Translating platform-specific input events to Actions
// - Handling backend-specific features (snapshots, audio output, debug panels)
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update renders the frame and returns the input events that happened
	// since the previous call.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// InputEvent is a platform event already translated to an action.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title     string
	Scale     int
	ShowDebug bool // Backends may ignore unsupported features

	// Samples is the APU output. Backends that play or record audio drain
	// it; the others leave it alone and the APU drops what doesn't fit.
	Samples    *audio.RingBuffer[audio.StereoFrame]
	SampleRate int

	// DebugData, when set, is polled by backends that show a debug panel.
	DebugData func() *debug.Data
	// TileView, when set, returns the rendering of the VRAM tiles.
	TileView func() *video.FrameBuffer
}

// Emulator is what Run drives.
type Emulator interface {
	RunUntilFrame() error
	CurrentFrame() *video.FrameBuffer
	Paused() bool
}

// Run is the frontend main loop: emulate a frame, hand it to the backend,
// dispatch the returned events through the input manager. It returns nil
// when the backend asks to quit, ctx.Err() when ctx is cancelled.
//
// While the emulator is paused the loop keeps polling the backend, paced by
// limiter so it doesn't spin.
func Run(ctx context.Context, emu Emulator, b Backend, mgr *input.Manager, limiter timing.Limiter) error {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}

	wasPaused := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		paused := emu.Paused()
		if paused {
			if !wasPaused {
				limiter.Reset()
			}
			limiter.WaitForNextFrame()
		} else if err := emu.RunUntilFrame(); err != nil {
			return fmt.Errorf("running frame: %w", err)
		}
		wasPaused = paused

		events, err := b.Update(emu.CurrentFrame())
		if err != nil {
			return fmt.Errorf("backend update: %w", err)
		}
		for _, evt := range events {
			if evt.Action == action.EmulatorQuit {
				if evt.Type == event.Press {
					return nil
				}
				continue
			}
			mgr.Trigger(evt.Action, evt.Type)
		}
	}
}
