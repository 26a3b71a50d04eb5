package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"polyglot/internal/audio"
	"polyglot/internal/detect"
)

// Task selects what decoding produces.
type Task string

const (
	// TaskTranscribe keeps the spoken language.
	TaskTranscribe Task = "transcribe"
	// TaskTranslate renders the speech in English.
	TaskTranslate Task = "translate"
)

// ParseTask validates a task name. Empty input means TaskTranscribe.
func ParseTask(value string) (Task, error) {
	switch Task(strings.ToLower(strings.TrimSpace(value))) {
	case "", TaskTranscribe:
		return TaskTranscribe, nil
	case TaskTranslate:
		return TaskTranslate, nil
	default:
		return "", fmt.Errorf("unknown task %q (want %q or %q)", value, TaskTranscribe, TaskTranslate)
	}
}

// DecodingOptions control a decode call.
type DecodingOptions struct {
	// Language is the ISO 639-1 code of the spoken language. Empty lets the
	// model detect it.
	Language string
	Task     Task
}

// Segment is one timed span of decoded text.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Result is the output of a decode.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments,omitempty"`
	Model    string    `json:"model"`
	Backend  string    `json:"backend"`
}

// Model is a pretrained speech model.
type Model interface {
	// Name returns the model size or identifier, e.g. "medium".
	Name() string
	// DetectLanguage returns a probability per language code for the clip.
	DetectLanguage(ctx context.Context, feats audio.Features) (detect.Probabilities, error)
	// Decode converts a single feature clip to text.
	Decode(ctx context.Context, feats audio.Features, opts DecodingOptions) (Result, error)
	// Transcribe decodes an entire audio file.
	Transcribe(ctx context.Context, path string, opts DecodingOptions) (Result, error)
	// HealthCheck verifies the backend is reachable and usable.
	HealthCheck(ctx context.Context) error
}
