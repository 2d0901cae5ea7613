package jeebie

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/cartridge"
	"github.com/valerio/go-jeebie-color/jeebie/debug"
	"github.com/valerio/go-jeebie-color/jeebie/disasm"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// ErrNoCartridge is returned by operations that need a cartridge inserted.
var ErrNoCartridge = errors.New("no cartridge loaded")

// fastForwardSpeed is the speed used while the speed toggle is on.
const fastForwardSpeed = 4

// Emulator represents the root struct and entry point for running the emulation
type Emulator struct {
	cfg     config
	bus     *Bus
	cart    *cartridge.Cartridge
	romPath string
	cgb     bool

	pacer *timing.Pacer
	ring  *audio.RingBuffer[audio.StereoFrame]

	paused      atomic.Bool
	normalSpeed float64

	frameCount uint64
	cycles     uint64 // base clock cycles since reset
}

// New creates a new emulator instance with no cartridge inserted.
func New(opts ...Option) *Emulator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	frames := cfg.bufferFrames
	if frames <= 0 {
		frames = audio.DefaultBufferFrames
	}
	// one ring for the emulator's lifetime, so audio consumers survive
	// cartridge swaps and state loads
	cfg.ring = audio.NewRingBuffer[audio.StereoFrame](frames)
	e := &Emulator{
		cfg:         cfg,
		pacer:       timing.NewPacer(),
		ring:        cfg.ring,
		normalSpeed: cfg.speed,
	}
	e.pacer.SetSpeed(cfg.speed)
	e.bus = newBus(nil, false, &e.cfg)
	return e
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string, opts ...Option) (*Emulator, error) {
	e := New(opts...)
	if err := e.LoadCartridge(path); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadCartridge inserts the ROM at path. The running cartridge is only
// replaced, and its battery flushed, once the new one loaded successfully.
func (e *Emulator) LoadCartridge(path string) error {
	cart, err := cartridge.Load(path, cartridge.WithClock(e.cfg.clock))
	if err != nil {
		slog.Error("Failed to load cartridge", "path", path, "error", err)
		return err
	}

	if e.cart != nil {
		if err := e.Close(); err != nil {
			slog.Warn("Failed to save battery of previous cartridge", "error", err)
		}
	}

	e.cart = cart
	e.romPath = path
	e.cgb = cart.Header().CGB() && !e.cfg.forceDMG
	if err := cart.LoadBattery(e.saveDir()); err != nil {
		slog.Warn("Failed to load battery data", "dir", e.saveDir(), "error", err)
	}

	e.bus = newBus(cart, e.cgb, &e.cfg)
	e.resetCounters()
	slog.Info("Cartridge inserted", "path", path, "cgb", e.cgb)
	return nil
}

func (e *Emulator) saveDir() string {
	if e.cfg.saveDir != "" {
		return e.cfg.saveDir
	}
	return filepath.Dir(e.romPath)
}

// Reset restarts the inserted cartridge from its post-boot state. Battery
// RAM survives, as it would on hardware.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.resetCounters()
}

func (e *Emulator) resetCounters() {
	e.frameCount = 0
	e.cycles = 0
	e.pacer.Reset()
}

// Step executes one CPU instruction and advances the rest of the system
// accordingly. It returns the CPU cycles taken, 0 when paused or without a
// cartridge.
func (e *Emulator) Step() int {
	if e.cart == nil || e.paused.Load() {
		return 0
	}
	cycles, base := e.bus.TickInstruction()
	e.cycles += uint64(base)
	e.pacer.Advance(base)
	return cycles
}

// RunUntilFrame steps until the PPU completes a frame. With the LCD off no
// frame ever completes, so one frame's worth of cycles counts as a frame.
func (e *Emulator) RunUntilFrame() error {
	if e.cart == nil {
		return ErrNoCartridge
	}
	if e.paused.Load() {
		return nil
	}

	elapsed := 0
	for {
		before := e.cycles
		if e.Step() == 0 {
			return nil
		}
		elapsed += int(e.cycles - before)

		if e.bus.GPU.ConsumeFrame() {
			break
		}
		if elapsed >= timing.CyclesPerFrame && !e.bus.MMU.ReadBit(7, addr.LCDC) {
			break
		}
	}
	e.frameCount++
	return nil
}

// SetSpeed changes the emulation speed multiplier. 0 runs unthrottled.
func (e *Emulator) SetSpeed(speed float64) {
	e.pacer.SetSpeed(speed)
	slog.Debug("Emulation speed changed", "speed", e.pacer.Speed())
}

func (e *Emulator) Speed() float64 {
	return e.pacer.Speed()
}

// Samples returns the ring the APU pushes into. It stays the same across
// cartridge loads and save state loads.
func (e *Emulator) Samples() *audio.RingBuffer[audio.StereoFrame] {
	return e.ring
}

func (e *Emulator) SampleRate() int {
	return e.bus.APU.SampleRate()
}

func (e *Emulator) FrameSize() (w, h int) {
	return video.FramebufferWidth, video.FramebufferHeight
}

func (e *Emulator) CurrentFrame() *video.FrameBuffer {
	return e.bus.GPU.CurrentFrame()
}

// TileView returns the rendering of all VRAM bank 0 tiles, refreshed every frame.
func (e *Emulator) TileView() *video.FrameBuffer {
	return e.bus.GPU.TileView()
}

// MuteChannel mutes or unmutes APU channel 0-3 on the host side. The index
// matches ChannelStatus.
func (e *Emulator) MuteChannel(channel int, muted bool) {
	e.bus.APU.MuteChannel(channel, muted)
}

// ChannelStatus reports for each APU channel whether it is playing and audible.
func (e *Emulator) ChannelStatus() [4]bool {
	ch1, ch2, ch3, ch4 := e.bus.APU.ChannelStatus()
	return [4]bool{ch1, ch2, ch3, ch4}
}

func (e *Emulator) Pause() {
	e.paused.Store(true)
	slog.Info("Emulation paused")
}

// Resume continues emulation. The pacer restarts so it doesn't try to catch
// up on the time spent paused.
func (e *Emulator) Resume() {
	e.pacer.Reset()
	e.paused.Store(false)
	slog.Info("Emulation resumed")
}

func (e *Emulator) Paused() bool {
	return e.paused.Load()
}

// SetButtons replaces the whole joypad state.
func (e *Emulator) SetButtons(b memory.Buttons) {
	e.bus.MMU.SetButtons(b)
}

// HandleAction applies an input action. Joypad buttons follow pressed;
// emulator controls act on press only.
func (e *Emulator) HandleAction(act action.Action, pressed bool) {
	if key, ok := input.JoypadKey(act); ok {
		if pressed {
			e.bus.MMU.HandleKeyPress(key)
		} else {
			e.bus.MMU.HandleKeyRelease(key)
		}
		return
	}
	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		if e.Paused() {
			e.Resume()
		} else {
			e.Pause()
		}
	case action.EmulatorSpeedToggle:
		if e.Speed() == e.normalSpeed {
			e.SetSpeed(fastForwardSpeed)
		} else {
			e.SetSpeed(e.normalSpeed)
		}
	case action.AudioToggleChannel1, action.AudioToggleChannel2, action.AudioToggleChannel3, action.AudioToggleChannel4:
		e.bus.APU.ToggleChannel(int(act - action.AudioToggleChannel1))
	case action.AudioSoloChannel1, action.AudioSoloChannel2, action.AudioSoloChannel3, action.AudioSoloChannel4:
		e.bus.APU.SoloChannel(int(act - action.AudioSoloChannel1))
	case action.AudioUnmuteAll:
		e.bus.APU.UnmuteAll()
	}
}

// SerialOutput returns the most recent bytes the game sent over the link
// port, up to serial.OutputLimit.
func (e *Emulator) SerialOutput() []byte {
	return e.bus.Serial.Output()
}

// Close flushes battery RAM and the real time clock to the save directory.
func (e *Emulator) Close() error {
	if e.cart == nil {
		return nil
	}
	if err := e.cart.SaveBattery(e.saveDir()); err != nil {
		return fmt.Errorf("saving battery: %w", err)
	}
	return nil
}

func (e *Emulator) FrameCount() uint64 {
	return e.frameCount
}

func (e *Emulator) InstructionCount() uint64 {
	return e.bus.CPU.Instructions()
}

// CGB reports whether the cartridge runs in Game Boy Color mode.
func (e *Emulator) CGB() bool {
	return e.cgb
}

// ExtractDebugData collects CPU, disassembly and audio state for debug displays.
func (e *Emulator) ExtractDebugData() *debug.Data {
	r := e.bus.CPU.Registers()
	mmu := e.bus.MMU
	return &debug.Data{
		CPU: debug.CPUState{
			A: r.A, F: r.F, B: r.B, C: r.C,
			D: r.D, E: r.E, H: r.H, L: r.L,
			SP:     r.SP,
			PC:     r.PC,
			IME:    e.bus.CPU.IME(),
			Halted: e.bus.CPU.Halted(),
			Cycles: e.bus.CPU.Cycles(),
		},
		Disassembly:     disasm.Around(r.PC, 4, 8, mmu),
		Audio:           debug.ExtractAudioData(e.bus.APU),
		Frames:          e.frameCount,
		Instructions:    e.bus.CPU.Instructions(),
		Speed:           e.Speed(),
		Paused:          e.Paused(),
		CGB:             e.cgb,
		DoubleSpeed:     mmu.DoubleSpeed(),
		InterruptEnable: mmu.Read(addr.IE),
		InterruptFlags:  mmu.Read(addr.IF),
	}
}
