package debug

import (
	"fmt"
	"math"
)

// ChannelInfo describes what one APU channel is playing.
type ChannelInfo struct {
	Enabled   bool
	Frequency float64
	Volume    uint8
	Note      string
}

type AudioData struct {
	Channels [4]ChannelInfo
}

// AudioSource is implemented by the APU.
type AudioSource interface {
	ChannelStatus() (ch1, ch2, ch3, ch4 bool)
	ChannelVolumes() (ch1, ch2, ch3, ch4 uint8)
	ChannelFrequencies() [4]float64
}

func ExtractAudioData(src AudioSource) *AudioData {
	data := &AudioData{}
	e1, e2, e3, e4 := src.ChannelStatus()
	v1, v2, v3, v4 := src.ChannelVolumes()
	enabled := [4]bool{e1, e2, e3, e4}
	volumes := [4]uint8{v1, v2, v3, v4}
	freqs := src.ChannelFrequencies()

	for i := range data.Channels {
		ch := &data.Channels[i]
		ch.Enabled = enabled[i]
		ch.Volume = volumes[i]
		ch.Frequency = freqs[i]
		ch.Note = FrequencyToNote(freqs[i])
	}
	data.Channels[3].Note = "Noise"
	return data
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// FrequencyToNote names the closest equal-tempered note, A4 = 440Hz.
// Frequencies outside the audible range return "--".
func FrequencyToNote(freq float64) string {
	if freq < 20 || freq > 20000 {
		return "--"
	}
	midi := int(math.Round(12*math.Log2(freq/440))) + 69
	octave := midi/12 - 1
	if octave < 0 || octave > 9 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[midi%12], octave)
}

// String renders a one line summary, e.g. "1:A4 2:-- 3:C5 4:Noise".
func (d *AudioData) String() string {
	s := ""
	for i, ch := range d.Channels {
		note := ch.Note
		if !ch.Enabled {
			note = "--"
		}
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d:%s", i+1, note)
	}
	return s
}
