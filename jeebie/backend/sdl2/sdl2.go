//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/display"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

const (
	audioBufferSamples = 1024
	// maxQueuedAudioFrames caps device latency at about 100ms; beyond that new
	// samples are dropped until the device catches up.
	maxQueuedAudioFrames = 4410
)

// Backend implements the Backend interface using SDL2 bindings
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed renderer, see build tags (sdl2)
type Backend struct {
	view
	config backend.BackendConfig
	events []backend.InputEvent

	audioDev     sdl.AudioDeviceID
	audioScratch []audio.StereoFrame
	audioBytes   []byte

	debugWindow *DebugWindow
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{
		debugWindow: NewDebugWindow(),
	}
}

// Init initializes the SDL2 backend
func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config
	scale := int32(config.Scale)
	if scale <= 0 {
		scale = display.DefaultPixelScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	if err := s.open(config.Title, video.FramebufferWidth, video.FramebufferHeight, scale, sdl.WINDOW_SHOWN); err != nil {
		sdl.Quit()
		return err
	}

	if config.Samples != nil {
		if err := s.openAudio(config.SampleRate); err != nil {
			slog.Warn("Audio output unavailable", "error", err)
		}
	}

	if config.ShowDebug {
		s.toggleDebugWindow()
	}

	slog.Info("SDL2 backend initialized", "scale", scale, "audio", s.audioDev != 0)
	return nil
}

func (s *Backend) openAudio(sampleRate int) error {
	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  audioBufferSamples,
	}
	dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		return err
	}
	s.audioDev = dev
	s.audioScratch = make([]audio.StereoFrame, audio.DefaultBufferFrames)
	sdl.PauseAudioDevice(dev, false)
	return nil
}

// Update renders a frame and processes events
func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		s.handleEvent(ev)
	}
	events := s.events
	s.events = nil

	s.queueAudio()
	if frame != nil {
		if err := s.present(frame); err != nil {
			return events, err
		}
	}
	if s.debugWindow.IsVisible() && s.config.TileView != nil {
		if err := s.debugWindow.Render(s.config.TileView()); err != nil {
			slog.Warn("Failed to render tile view", "error", err)
		}
	}
	return events, nil
}

// queueAudio moves everything in the ring to the device queue.
func (s *Backend) queueAudio() {
	if s.audioDev == 0 {
		return
	}
	for {
		n := s.config.Samples.PopInto(s.audioScratch)
		if n == 0 {
			return
		}
		if sdl.GetQueuedAudioSize(s.audioDev) > maxQueuedAudioFrames*bytesPerFrame {
			continue
		}
		s.audioBytes = stereoBytes(s.audioScratch[:n], s.audioBytes)
		if err := sdl.QueueAudio(s.audioDev, s.audioBytes); err != nil {
			slog.Warn("Failed to queue audio", "error", err)
			return
		}
	}
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.audioDev != 0 {
		sdl.CloseAudioDevice(s.audioDev)
	}
	s.debugWindow.Cleanup()
	s.destroy()
	sdl.Quit()

	return nil
}

func (s *Backend) handleEvent(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		s.events = append(s.events, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_CLOSE && s.debugWindow.Owns(e.WindowID) {
			s.debugWindow.SetVisible(false)
		} else if e.Event == sdl.WINDOWEVENT_CLOSE {
			s.events = append(s.events, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
		}

	case *sdl.KeyboardEvent:
		name, ok := keyNames[e.Keysym.Sym]
		if !ok {
			return
		}
		act, ok := input.GetDefaultMapping(name)
		if !ok {
			return
		}

		switch {
		case e.Type == sdl.KEYDOWN && e.Repeat != 0:
			return
		case e.Type == sdl.KEYDOWN:
			if act == action.EmulatorDebugToggle {
				s.toggleDebugWindow()
			}
			s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Press})
		case e.Type == sdl.KEYUP && act.IsGameBoy():
			s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}
}

// keyNames maps SDL2 keys to the key names of the default mapping.
var keyNames = map[sdl.Keycode]string{
	sdl.K_z:      "z",
	sdl.K_x:      "x",
	sdl.K_RETURN: "Enter",
	sdl.K_LSHIFT: "Shift",
	sdl.K_RSHIFT: "Shift",
	sdl.K_TAB:    "Tab",
	sdl.K_UP:     "Up",
	sdl.K_DOWN:   "Down",
	sdl.K_LEFT:   "Left",
	sdl.K_RIGHT:  "Right",
	sdl.K_w:      "w",
	sdl.K_a:      "a",
	sdl.K_s:      "s",
	sdl.K_d:      "d",
	sdl.K_SPACE:  "Space",
	sdl.K_p:      "p",
	sdl.K_t:      "t",
	sdl.K_q:      "q",
	sdl.K_ESCAPE: "Escape",
	sdl.K_F1:     "F1",
	sdl.K_F2:     "F2",
	sdl.K_F3:     "F3",
	sdl.K_F4:     "F4",
	sdl.K_F9:     "F9",
	sdl.K_F10:    "F10",
	sdl.K_0:      "0",
	sdl.K_1:      "1",
	sdl.K_2:      "2",
	sdl.K_3:      "3",
	sdl.K_4:      "4",
}

// toggleDebugWindow shows/hides the tile view window
func (s *Backend) toggleDebugWindow() {
	if !s.debugWindow.IsInitialized() {
		if err := s.debugWindow.Init(); err != nil {
			slog.Warn("Failed to initialize debug window", "error", err)
			return
		}
	}
	visible := !s.debugWindow.IsVisible()
	s.debugWindow.SetVisible(visible)
	slog.Debug("Debug window visibility changed", "visible", visible)
}

var _ backend.Backend = (*Backend)(nil)
