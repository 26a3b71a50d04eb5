package audio

import (
	"time"
)

const (
	// SampleRate is the rate every waveform is resampled to.
	SampleRate = 16000
	// ChunkSeconds is the length of the window language detection inspects.
	ChunkSeconds = 30
	// NSamples is the number of samples in one detection window.
	NSamples = ChunkSeconds * SampleRate
)

// Waveform holds mono samples in [-1, 1) at SampleRate.
type Waveform []float32

// Duration reports the playback length of the waveform.
func (w Waveform) Duration() time.Duration {
	return time.Duration(len(w)) * time.Second / SampleRate
}

// PadOrTrim returns a waveform of exactly length samples, truncating or
// appending silence as needed. The input is never modified.
func PadOrTrim(w Waveform, length int) Waveform {
	if length <= 0 {
		return Waveform{}
	}
	out := make(Waveform, length)
	copy(out, w)
	return out
}
