package audio

// Provider is the audio surface a host backend consumes.
type Provider interface {
	// Samples returns the ring the host drains for playback.
	Samples() *RingBuffer[StereoFrame]
	SampleRate() int

	// Audio debugging controls

	MuteChannel(channel int, muted bool)
	ToggleChannel(channel int)
	SoloChannel(channel int)
	ChannelStatus() (ch1, ch2, ch3, ch4 bool)
}

var _ Provider = (*APU)(nil)
