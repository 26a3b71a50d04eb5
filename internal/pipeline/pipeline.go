package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"polyglot/internal/audio"
	"polyglot/internal/detect"
	"polyglot/internal/language"
	"polyglot/internal/logging"
	"polyglot/internal/services"
	"polyglot/internal/speech"
)

// Step names recorded in ProcessingError.Op and the log stage field.
const (
	StepLoadAudio       = "load audio"
	StepComputeFeatures = "compute features"
	StepDetectLanguage  = "detect language"
	StepSelectLanguage  = "select language"
	StepDecode          = "decode audio"
	StepTranscribe      = "transcribe audio"
)

const defaultTopN = 3

// Preprocessor decodes audio files into waveforms.
type Preprocessor interface {
	Load(ctx context.Context, path string) (audio.Waveform, error)
}

// Options tune the pipeline.
type Options struct {
	// WorkDir receives temporary feature clips.
	WorkDir string
	// TopN is how many candidates Detection.Candidates carries.
	TopN int
	// ChunkSamples overrides the detection window length (audio.NSamples).
	ChunkSamples int
}

// Pipeline wires a model and preprocessor together.
type Pipeline struct {
	model  speech.Model
	prep   Preprocessor
	logger *slog.Logger
	opts   Options
}

// Detection is the outcome of language identification.
type Detection struct {
	Top           detect.Candidate     `json:"top"`
	Candidates    []detect.Candidate   `json:"candidates"`
	Probabilities detect.Probabilities `json:"-"`
}

// DetectionResult is the outcome of detect-then-transcribe.
type DetectionResult struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// New constructs a Pipeline.
func New(model speech.Model, prep Preprocessor, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.ChunkSamples <= 0 {
		opts.ChunkSamples = audio.NSamples
	}
	return &Pipeline{
		model:  model,
		prep:   prep,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		opts:   opts,
	}
}

// DetectLanguage identifies the spoken language of the first window of path.
func (p *Pipeline) DetectLanguage(ctx context.Context, path string) (Detection, error) {
	ctx = withCorrelation(ctx)
	det, feats, err := p.detect(ctx, path)
	p.removeFeatures(ctx, feats)
	return det, err
}

// DetectAndTranscribe detects the language, rejects it when its probability
// is below threshold, and transcribes the detection window in that language.
func (p *Pipeline) DetectAndTranscribe(ctx context.Context, path string, threshold float64) (DetectionResult, error) {
	ctx = withCorrelation(ctx)
	det, feats, err := p.detect(ctx, path)
	defer p.removeFeatures(ctx, feats)
	if err != nil {
		return DetectionResult{}, err
	}

	logger := p.stageLogger(ctx, "gate")
	if err := detect.CheckCandidate(logger, det.Top, threshold); err != nil {
		return DetectionResult{}, err
	}

	ctx = services.WithStage(ctx, "decode")
	opts := speech.DecodingOptions{Language: det.Top.Language, Task: speech.TaskTranscribe}
	result, err := p.model.Decode(ctx, feats, opts)
	if err != nil {
		return DetectionResult{}, p.fail(ctx, StepDecode, err)
	}
	p.stageLogger(ctx, "decode").Info("transcription complete",
		logging.String("language", language.Label(det.Top.Language)),
		logging.Int("characters", len(result.Text)),
	)
	return DetectionResult{
		Text:       result.Text,
		Language:   det.Top.Language,
		Confidence: det.Top.Probability,
	}, nil
}

// Transcribe decodes the whole file in its spoken language. An empty
// language lets the model detect it.
func (p *Pipeline) Transcribe(ctx context.Context, path, lang string) (speech.Result, error) {
	return p.decodeFile(withCorrelation(ctx), path, speech.DecodingOptions{Language: lang, Task: speech.TaskTranscribe})
}

// Translate decodes the whole file into English. When lang is empty the
// source language is detected first.
func (p *Pipeline) Translate(ctx context.Context, path, lang string) (speech.Result, error) {
	ctx = withCorrelation(ctx)
	if lang == "" {
		det, err := p.DetectLanguage(ctx, path)
		if err != nil {
			return speech.Result{}, err
		}
		lang = det.Top.Language
	}
	return p.decodeFile(ctx, path, speech.DecodingOptions{Language: lang, Task: speech.TaskTranslate})
}

func (p *Pipeline) decodeFile(ctx context.Context, path string, opts speech.DecodingOptions) (speech.Result, error) {
	ctx = services.WithStage(ctx, string(opts.Task))
	logger := p.stageLogger(ctx, string(opts.Task))
	start := time.Now()
	logger.Info("decoding file",
		logging.String("path", path),
		logging.String("language", hintLabel(opts.Language)),
		logging.String("model", p.model.Name()),
	)
	result, err := p.model.Transcribe(ctx, path, opts)
	if err != nil {
		return speech.Result{}, p.fail(ctx, StepTranscribe, err)
	}
	logger.Info("decoding complete",
		logging.String("language", language.Label(result.Language)),
		logging.Int("segments", len(result.Segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// detect runs load -> pad/trim -> features -> model -> select. The returned
// features must be removed by the caller even on error.
func (p *Pipeline) detect(ctx context.Context, path string) (Detection, audio.Features, error) {
	ctx = services.WithStage(ctx, "detect")
	logger := p.stageLogger(ctx, "detect")

	wave, err := p.prep.Load(ctx, path)
	if err != nil {
		return Detection{}, audio.Features{}, p.fail(ctx, StepLoadAudio, err)
	}
	window := audio.PadOrTrim(wave, p.opts.ChunkSamples)
	feats, err := audio.ComputeFeatures(window, p.opts.WorkDir)
	if err != nil {
		return Detection{}, audio.Features{}, p.fail(ctx, StepComputeFeatures, err)
	}
	logger.Debug("features ready",
		logging.String("clip", feats.Path),
		logging.Duration("source_duration", wave.Duration()),
		logging.Duration("window", feats.Duration),
	)

	probs, err := p.model.DetectLanguage(ctx, feats)
	if err != nil {
		return Detection{}, feats, p.fail(ctx, StepDetectLanguage, err)
	}
	top, err := detect.SelectTop(probs)
	if err != nil {
		return Detection{}, feats, p.fail(ctx, StepSelectLanguage, err)
	}
	logger.Info("detected language",
		logging.String("language", language.Label(top.Language)),
		logging.String("confidence", detect.FormatProbability(top.Probability)),
		logging.Int("candidates", probs.Len()),
	)
	return Detection{
		Top:           top,
		Candidates:    detect.TopN(probs, p.opts.TopN),
		Probabilities: probs,
	}, feats, nil
}

func (p *Pipeline) removeFeatures(ctx context.Context, feats audio.Features) {
	if err := feats.Remove(); err != nil {
		logging.WarnWithContext(p.stageLogger(ctx, "cleanup"), "failed to remove feature clip", "feature_cleanup_failed",
			logging.String("clip", feats.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually from the work directory"),
			logging.String(logging.FieldImpact, "a temporary clip stays on disk"),
		)
	}
}

// fail records a step failure and wraps err for the caller.
func (p *Pipeline) fail(ctx context.Context, step string, err error) error {
	wrapped := detect.Wrap(step, err)
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "pipeline step failed", "pipeline_step_failed",
		logging.String("step", step),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run `polyglot doctor` to check the backend and dependencies"),
	)
	return wrapped
}

func (p *Pipeline) stageLogger(ctx context.Context, stage string) *slog.Logger {
	return logging.WithContext(services.WithStage(ctx, stage), p.logger)
}

// withCorrelation stamps a correlation ID unless ctx already carries one.
func withCorrelation(ctx context.Context) context.Context {
	if _, ok := services.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return services.WithRequestID(ctx, uuid.NewString())
}

func hintLabel(code string) string {
	if code == "" {
		return "auto"
	}
	return language.Label(code)
}
