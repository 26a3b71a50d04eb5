package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth      = 16
	wavFormatPCM  = 1
	monoChannels  = 1
	featurePrefix = "features-"
)

// Features is the model-ready input derived from a waveform.
type Features struct {
	// Path is the 16-bit PCM WAV clip backends upload or read.
	Path string
	// Samples is the number of samples in the clip.
	Samples int
	// Duration is the playback length of the clip.
	Duration time.Duration
}

// Remove deletes the backing clip.
func (f Features) Remove() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ComputeFeatures writes w as a WAV clip under dir and returns its handle.
// Callers own the file and should Remove it when done.
func ComputeFeatures(w Waveform, dir string) (Features, error) {
	if len(w) == 0 {
		return Features{}, fmt.Errorf("compute features: %w", ErrNoSamples)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Features{}, fmt.Errorf("compute features: ensure dir: %w", err)
		}
	}
	file, err := os.CreateTemp(dir, featurePrefix+"*.wav")
	if err != nil {
		return Features{}, fmt.Errorf("compute features: create clip: %w", err)
	}
	path := file.Name()

	if err := encodeWAV(file, w); err != nil {
		file.Close()
		os.Remove(path)
		return Features{}, fmt.Errorf("compute features: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return Features{}, fmt.Errorf("compute features: close clip: %w", err)
	}
	return Features{Path: path, Samples: len(w), Duration: w.Duration()}, nil
}

func encodeWAV(file *os.File, w Waveform) error {
	enc := wav.NewEncoder(file, SampleRate, bitDepth, monoChannels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: monoChannels, SampleRate: SampleRate},
		Data:           toInt16Range(w),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func toInt16Range(w Waveform) []int {
	out := make([]int, len(w))
	for i, sample := range w {
		scaled := math.Round(float64(sample) * 32768.0)
		out[i] = int(max(math.MinInt16, min(math.MaxInt16, scaled)))
	}
	return out
}
