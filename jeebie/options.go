package jeebie

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/cartridge"
	"github.com/valerio/go-jeebie-color/jeebie/serial"
)

type config struct {
	speed        float64
	saveDir      string
	forceDMG     bool
	clock        cartridge.Clock
	sampleRate   int
	bufferFrames int
	serialLogger *slog.Logger

	ring *audio.RingBuffer[audio.StereoFrame]
}

func defaultConfig() config {
	return config{
		speed:      1,
		clock:      cartridge.SystemClock,
		sampleRate: audio.DefaultSampleRate,
	}
}

// Option configures an Emulator at construction.
type Option func(*config)

// WithSpeed sets the emulation speed multiplier. 0 runs unthrottled.
func WithSpeed(speed float64) Option {
	return func(c *config) {
		if speed >= 0 {
			c.speed = speed
		}
	}
}

// WithSaveDir sets where battery RAM and RTC files are kept. By default
// they live next to the ROM.
func WithSaveDir(dir string) Option {
	return func(c *config) { c.saveDir = dir }
}

// WithForceDMG runs CGB capable cartridges in DMG mode.
func WithForceDMG(force bool) Option {
	return func(c *config) { c.forceDMG = force }
}

// WithClock sets the time source of cartridge real time clocks.
func WithClock(clock cartridge.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSampleRate sets the audio output rate in frames per second.
func WithSampleRate(rate int) Option {
	return func(c *config) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithAudioBuffer sets the capacity of the audio ring in frames.
func WithAudioBuffer(frames int) Option {
	return func(c *config) { c.bufferFrames = frames }
}

// WithSerialSink routes completed serial lines to logger.
func WithSerialSink(logger *slog.Logger) Option {
	return func(c *config) { c.serialLogger = logger }
}

func (c *config) audioOptions() []audio.Option {
	opts := []audio.Option{audio.WithSampleRate(c.sampleRate)}
	if c.ring != nil {
		opts = append(opts, audio.WithRing(c.ring))
	} else if c.bufferFrames > 0 {
		opts = append(opts, audio.WithBufferFrames(c.bufferFrames))
	}
	return opts
}

func (c *config) serialOptions() []serial.LogSinkOption {
	if c.serialLogger == nil {
		return nil
	}
	return []serial.LogSinkOption{serial.WithLogger(c.serialLogger)}
}
