package debug

import (
	"fmt"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/valerio/go-jeebie-color/jeebie/audio"
)

const (
	wavBitDepth = 16
	wavChannels = 2
	wavPCM      = 1
)

// WAVRecorder drains APU output into a 16-bit stereo WAV file. It is the
// ring's consumer, so it must not share the ring with an audio device.
type WAVRecorder struct {
	file    *os.File
	encoder *wav.Encoder
	format  *goaudio.Format
	scratch []audio.StereoFrame
	buffer  goaudio.IntBuffer
	frames  int
}

func NewWAVRecorder(path string, sampleRate int) (*WAVRecorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating WAV file %s: %w", path, err)
	}
	format := &goaudio.Format{NumChannels: wavChannels, SampleRate: sampleRate}
	return &WAVRecorder{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, wavBitDepth, wavChannels, wavPCM),
		format:  format,
		scratch: make([]audio.StereoFrame, audio.DefaultBufferFrames),
		buffer:  goaudio.IntBuffer{Format: format, SourceBitDepth: wavBitDepth},
	}, nil
}

// Drain moves everything currently in ring into the file.
func (w *WAVRecorder) Drain(ring *audio.RingBuffer[audio.StereoFrame]) error {
	for {
		n := ring.PopInto(w.scratch)
		if n == 0 {
			return nil
		}
		if err := w.Write(w.scratch[:n]); err != nil {
			return err
		}
	}
}

// Write appends frames to the file.
func (w *WAVRecorder) Write(frames []audio.StereoFrame) error {
	data := w.buffer.Data[:0]
	for _, f := range frames {
		data = append(data, int(f.Left), int(f.Right))
	}
	w.buffer.Data = data
	if err := w.encoder.Write(&w.buffer); err != nil {
		return fmt.Errorf("writing WAV samples: %w", err)
	}
	w.frames += len(frames)
	return nil
}

// Frames returns how many stereo frames were written.
func (w *WAVRecorder) Frames() int {
	return w.frames
}

// Close finalizes the WAV header and closes the file.
func (w *WAVRecorder) Close() error {
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalizing WAV file: %w", err)
	}
	slog.Info("WAV recording saved", "path", w.file.Name(), "frames", w.frames)
	return w.file.Close()
}
