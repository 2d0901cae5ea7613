package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/valerio/go-jeebie-color/jeebie"
	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/headless"
	"github.com/valerio/go-jeebie-color/jeebie/backend/sdl2"
	"github.com/valerio/go-jeebie-color/jeebie/backend/terminal"
	"github.com/valerio/go-jeebie-color/jeebie/debug"
	"github.com/valerio/go-jeebie-color/jeebie/display"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A Game Boy and Game Boy Color emulator"
	app.Usage = "jeebie [options] <ROM file>"
	app.Version = "2.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "rom",
			Usage:  "Path to the ROM file (.gb, .gbc, .zip or .7z)",
			EnvVar: "JEEBIE_ROM",
		},
		cli.StringFlag{
			Name:   "backend",
			Usage:  "Frontend to use: terminal, headless or sdl2",
			Value:  "terminal",
			EnvVar: "JEEBIE_BACKEND",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.Float64Flag{
			Name:   "speed",
			Usage:  "Emulation speed multiplier (0 = unthrottled, the headless default)",
			Value:  1,
			EnvVar: "JEEBIE_SPEED",
		},
		cli.BoolFlag{
			Name:   "dmg",
			Usage:  "Run Game Boy Color cartridges in DMG mode",
			EnvVar: "JEEBIE_DMG",
		},
		cli.StringFlag{
			Name:   "save-dir",
			Usage:  "Directory for battery saves (default: next to the ROM)",
			EnvVar: "JEEBIE_SAVE_DIR",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "Save state file to load before running",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Save state file to write on exit",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Scale factor of saved snapshots",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "record-wav",
			Usage: "Record the audio output to a WAV file in headless mode",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Start with the debug view open",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "Log level: debug, info, warn or error",
			Value:  "info",
			EnvVar: "JEEBIE_LOG_LEVEL",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emulator panic: %v", r)
		}
	}()

	if err := setupLogging(c.String("log-level")); err != nil {
		return err
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	b, limiter, err := createBackend(c, romPath)
	if err != nil {
		return err
	}
	if s, ok := limiter.(interface{ Stop() }); ok {
		defer s.Stop()
	}

	speed := c.Float64("speed")
	if c.String("backend") == "headless" && !c.IsSet("speed") {
		speed = 0
	}

	emu, err := jeebie.NewWithFile(romPath,
		jeebie.WithSpeed(speed),
		jeebie.WithSaveDir(c.String("save-dir")),
		jeebie.WithForceDMG(c.Bool("dmg")),
		jeebie.WithSerialSink(slog.Default().With("device", "serial")),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := emu.Close(); cerr != nil {
			slog.Error("Failed to save battery", "error", cerr)
		}
	}()

	if path := c.String("load-state"); path != "" {
		if err := loadState(emu, path); err != nil {
			return err
		}
	}

	config := backend.BackendConfig{
		Title:      windowTitle(romPath, emu.CGB()),
		Scale:      display.DefaultPixelScale,
		ShowDebug:  c.Bool("debug"),
		Samples:    emu.Samples(),
		SampleRate: emu.SampleRate(),
		DebugData:  emu.ExtractDebugData,
		TileView:   emu.TileView,
	}
	if err := b.Init(config); err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}
	defer func() {
		if cerr := b.Cleanup(); cerr != nil {
			slog.Error("Failed to clean up backend", "error", cerr)
		}
	}()

	mgr := input.NewManager(emu)
	registerControls(mgr, emu, c.String("snapshot-dir"), romPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := backend.Run(ctx, emu, b, mgr, limiter)
	if errors.Is(runErr, context.Canceled) {
		slog.Info("Interrupted, shutting down")
		runErr = nil
	}

	if path := c.String("save-state"); path != "" {
		if err := saveState(emu, path); err != nil {
			return errors.Join(runErr, err)
		}
	}

	slog.Info("Emulation finished", "frames", emu.FrameCount(), "instructions", emu.InstructionCount())
	return runErr
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// createBackend picks the frontend and the limiter pacing it while the
// emulator is paused.
func createBackend(c *cli.Context, romPath string) (backend.Backend, timing.Limiter, error) {
	switch name := c.String("backend"); name {
	case "headless":
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, nil, errors.New("headless mode requires --frames option with a positive value")
		}
		snapshots, err := headless.CreateSnapshotConfig(
			c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath, c.Int("snapshot-scale"))
		if err != nil {
			return nil, nil, err
		}
		var opts []headless.Option
		if path := c.String("record-wav"); path != "" {
			opts = append(opts, headless.WithWAV(path))
		}
		return headless.New(frames, snapshots, opts...), timing.NewNoOpLimiter(), nil

	case "terminal":
		return terminal.New(), timing.NewTickerLimiter(), nil

	case "sdl2":
		return sdl2.New(), timing.NewAdaptiveLimiter(), nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
}

// registerControls wires emulator controls coming from the backends.
// Joypad buttons reach the emulator through the manager directly.
func registerControls(mgr *input.Manager, emu *jeebie.Emulator, snapshotDir, romPath string) {
	controls := []action.Action{
		action.EmulatorPauseToggle,
		action.EmulatorSpeedToggle,
		action.AudioToggleChannel1,
		action.AudioToggleChannel2,
		action.AudioToggleChannel3,
		action.AudioToggleChannel4,
		action.AudioSoloChannel1,
		action.AudioSoloChannel2,
		action.AudioSoloChannel3,
		action.AudioSoloChannel4,
		action.AudioUnmuteAll,
	}
	for _, act := range controls {
		mgr.On(act, event.Press, func() { emu.HandleAction(act, true) })
	}

	if snapshotDir == "" {
		snapshotDir = os.TempDir()
	}
	base := romBaseName(romPath)
	mgr.On(action.EmulatorSnapshot, event.Press, func() {
		name := fmt.Sprintf("%s_snapshot_%d", base, emu.FrameCount())
		path, err := debug.SaveFramePNGToDir(emu.CurrentFrame(), name, snapshotDir, display.DefaultPixelScale)
		if err != nil {
			slog.Error("Failed to save snapshot", "error", err)
			return
		}
		slog.Info("Saved snapshot", "path", path)
	})
}

func loadState(emu *jeebie.Emulator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening save state: %w", err)
	}
	defer f.Close()
	if err := emu.LoadState(f); err != nil {
		return fmt.Errorf("loading save state %s: %w", path, err)
	}
	slog.Info("Loaded save state", "path", path)
	return nil
}

func saveState(emu *jeebie.Emulator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating save state: %w", err)
	}
	if err := emu.SaveState(f); err != nil {
		f.Close()
		return fmt.Errorf("writing save state %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Saved state", "path", path)
	return nil
}

func romBaseName(romPath string) string {
	name := filepath.Base(romPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func windowTitle(romPath string, cgb bool) string {
	mode := "DMG"
	if cgb {
		mode = "CGB"
	}
	return fmt.Sprintf("Jeebie - %s [%s]", romBaseName(romPath), mode)
}
