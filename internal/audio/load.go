package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegCommand is the default decoder binary.
const FFmpegCommand = "ffmpeg"

// ErrNoSamples reports a decode that produced no audio.
var ErrNoSamples = errors.New("audio: decoded stream contains no samples")

// CommandRunner executes name with args and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Preprocessor decodes audio files through ffmpeg.
type Preprocessor struct {
	ffmpegBinary  string
	commandRunner CommandRunner
}

// NewPreprocessor creates a Preprocessor using the given ffmpeg binary.
func NewPreprocessor(ffmpegBinary string) *Preprocessor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Preprocessor{ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Preprocessor) WithCommandRunner(runner CommandRunner) {
	p.commandRunner = runner
}

// Load decodes path into a mono SampleRate waveform.
func (p *Preprocessor) Load(ctx context.Context, path string) (Waveform, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("load audio: path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	raw, err := p.run(ctx, p.ffmpegBinary, buildDecodeArgs(path)...)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	wave := decodePCM16(raw)
	if len(wave) == 0 {
		return nil, fmt.Errorf("load audio %s: %w", path, ErrNoSamples)
	}
	return wave, nil
}

func buildDecodeArgs(source string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-threads", "0",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-f", "s16le",
		"-ac", "1",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-",
	}
}

// decodePCM16 converts little-endian signed 16-bit samples to floats. A
// trailing odd byte is dropped.
func decodePCM16(raw []byte) Waveform {
	n := len(raw) / 2
	out := make(Waveform, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float32(sample) / 32768.0
	}
	return out
}

func (p *Preprocessor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if p.commandRunner != nil {
		return p.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
