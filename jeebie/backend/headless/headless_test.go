package headless_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/headless"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/input/event"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

func newFrame() *video.FrameBuffer {
	return video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)
}

func TestHeadlessBackend(t *testing.T) {
	h := headless.New(3, headless.SnapshotConfig{})
	require.NoError(t, h.Init(backend.BackendConfig{Title: "Test"}))

	frame := newFrame()
	for i := 0; i < 3; i++ {
		events, err := h.Update(frame)
		require.NoError(t, err)

		if i < 2 {
			assert.Empty(t, events, "no quit before reaching max frames")
		} else {
			require.Len(t, events, 1)
			assert.Equal(t, action.EmulatorQuit, events[0].Action)
			assert.Equal(t, event.Press, events[0].Type)
		}
	}
	assert.Equal(t, 3, h.FrameCount())
	assert.NoError(t, h.Cleanup())
}

func TestHeadlessSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg, err := headless.CreateSnapshotConfig(2, dir, "/roms/tetris.gb", 2)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "tetris", cfg.ROMName)

	h := headless.New(5, cfg)
	require.NoError(t, h.Init(backend.BackendConfig{}))

	frame := newFrame()
	for i := 0; i < 5; i++ {
		_, err := h.Update(frame)
		require.NoError(t, err)
	}

	// every second frame, plus the final one
	for _, name := range []string{"tetris_frame_2.png", "tetris_frame_4.png", "tetris_frame_5.png"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "tetris_frame_3.png"))
	assert.Equal(t, filepath.Join(dir, "tetris_frame_5.png"), h.LastSnapshot())
}

func TestCreateSnapshotConfigDisabled(t *testing.T) {
	cfg, err := headless.CreateSnapshotConfig(0, "", "game.gbc", 1)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Directory)
}

func TestHeadlessWAVRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	ring := audio.NewRingBuffer[audio.StereoFrame](1024)

	h := headless.New(2, headless.SnapshotConfig{}, headless.WithWAV(path))
	require.NoError(t, h.Init(backend.BackendConfig{Samples: ring, SampleRate: 44100}))

	for i := 0; i < 100; i++ {
		ring.Push(audio.StereoFrame{Left: int16(i), Right: int16(-i)})
	}
	_, err := h.Update(newFrame())
	require.NoError(t, err)
	assert.Zero(t, ring.Len(), "update drains the ring")

	require.NoError(t, h.Cleanup())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 44100, buf.Format.SampleRate)
	require.Len(t, buf.Data, 200)
	assert.Equal(t, []int{5, -5}, buf.Data[10:12])
}

func TestHeadlessWAVNeedsSamples(t *testing.T) {
	h := headless.New(1, headless.SnapshotConfig{}, headless.WithWAV(filepath.Join(t.TempDir(), "out.wav")))
	assert.Error(t, h.Init(backend.BackendConfig{}))
}
