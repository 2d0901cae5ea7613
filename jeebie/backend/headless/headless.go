package headless

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/debug"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// Backend implements the Backend interface for automated testing and batch processing
type Backend struct {
	config         backend.BackendConfig
	frameCount     int
	maxFrames      int
	snapshotConfig SnapshotConfig

	wavPath  string
	recorder *debug.WAVRecorder
	lastSnap string
}

// SnapshotConfig holds configuration for frame snapshots
type SnapshotConfig struct {
	Enabled   bool
	Interval  int    // Save snapshot every N frames
	Directory string // Directory to save snapshots
	ROMName   string // ROM name for snapshot filenames
	Scale     int    // Integer upscale factor, 1 when unset
}

// Option configures optional headless features.
type Option func(*Backend)

// WithWAV records the APU output to path.
func WithWAV(path string) Option {
	return func(h *Backend) { h.wavPath = path }
}

func New(maxFrames int, snapshotConfig SnapshotConfig, opts ...Option) *Backend {
	h := &Backend{
		maxFrames:      maxFrames,
		snapshotConfig: snapshotConfig,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Backend) Init(config backend.BackendConfig) error {
	h.config = config

	slog.Info("Running headless mode",
		"frames", h.maxFrames,
		"snapshot_interval", h.snapshotConfig.Interval,
		"snapshot_dir", h.snapshotConfig.Directory,
		"wav", h.wavPath)

	// Set up debug logging for headless mode
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))

	if h.wavPath != "" {
		if config.Samples == nil {
			return fmt.Errorf("wav recording needs an audio source")
		}
		rec, err := debug.NewWAVRecorder(h.wavPath, config.SampleRate)
		if err != nil {
			return err
		}
		h.recorder = rec
	}
	return nil
}

// Update processes a frame and handles snapshots
func (h *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	var events []backend.InputEvent

	h.frameCount++

	if h.recorder != nil {
		if err := h.recorder.Drain(h.config.Samples); err != nil {
			return nil, err
		}
	}

	if h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval == 0 {
		h.saveSnapshot(frame)
	}

	// Log progress periodically
	if h.frameCount%60 == 0 {
		slog.Info("Frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.frameCount >= h.maxFrames {
		// Save final snapshot if enabled and we haven't just saved one
		if h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval != 0 {
			h.saveSnapshot(frame)
		}

		if h.snapshotConfig.Enabled {
			slog.Info("Headless execution completed", "frames", h.maxFrames, "png_snapshots_saved_to", h.snapshotConfig.Directory)
		} else {
			slog.Info("Headless execution completed", "frames", h.maxFrames)
		}

		// Signal completion via quit event
		events = append(events, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
	}

	return events, nil
}

func (h *Backend) Cleanup() error {
	if h.recorder == nil {
		return nil
	}
	frames := h.recorder.Frames()
	if err := h.recorder.Close(); err != nil {
		return fmt.Errorf("closing wav recording: %w", err)
	}
	slog.Info("WAV recording written", "path", h.wavPath, "frames", frames)
	h.recorder = nil
	return nil
}

// FrameCount returns the number of frames processed so far.
func (h *Backend) FrameCount() int {
	return h.frameCount
}

// LastSnapshot returns the path of the most recently written snapshot.
func (h *Backend) LastSnapshot() string {
	return h.lastSnap
}

// CreateSnapshotConfig creates a snapshot configuration from CLI parameters
func CreateSnapshotConfig(interval int, directory, romPath string, scale int) (SnapshotConfig, error) {
	config := SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
		Scale:    scale,
	}

	if !config.Enabled {
		return config, nil
	}

	// Set up snapshot directory
	if directory == "" {
		tempDir, err := os.MkdirTemp("", "jeebie-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = tempDir
	} else {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = directory
	}

	// Extract ROM name for snapshot filenames
	config.ROMName = strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))

	return config, nil
}

// saveSnapshot saves a PNG snapshot for the current frame
func (h *Backend) saveSnapshot(frame *video.FrameBuffer) {
	pngBaseName := fmt.Sprintf("%s_frame_%d", h.snapshotConfig.ROMName, h.frameCount)

	path, err := debug.SaveFramePNGToDir(frame, pngBaseName, h.snapshotConfig.Directory, h.snapshotConfig.Scale)
	if err != nil {
		slog.Error("Failed to save PNG snapshot", "frame", h.frameCount, "error", err)
		return
	}
	h.lastSnap = path
}

var _ backend.Backend = (*Backend)(nil)
