package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"polyglot/internal/audio"
	"polyglot/internal/detect"
	langpkg "polyglot/internal/language"
	"polyglot/internal/logging"
	"polyglot/internal/services"
	"polyglot/internal/speech"
)

// BackendName identifies this backend in results and logs.
const BackendName = "whisperx"

// CommandRunner executes name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

var detectedLanguagePattern = regexp.MustCompile(`Detected language:\s*([A-Za-z_-]+)\s*\(([0-9]*\.?[0-9]+)\)`)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	info          speech.ModelInfo
	logger        *slog.Logger
	commandRunner CommandRunner
	tokenCheck    TokenValidator
	tokenOnce     sync.Once
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	info, err := speech.LookupModel(cfg.Model)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, BackendName, "init", "", err)
	}
	cfg.Model = info.Name
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:    cfg,
		info:   info,
		logger: logging.NewComponentLogger(logger, BackendName),
	}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// SetVADMethod updates the VAD method at runtime. ensureVAD calls it when the
// pyannote token is rejected.
func (s *Service) SetVADMethod(method string) {
	s.cfg.VADMethod = method
}

// Name returns the configured model name.
func (s *Service) Name() string {
	return s.cfg.Model
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, lastLines(string(output), 5))
	}
	return output, nil
}

// DetectLanguage runs WhisperX on the feature clip without a language hint and
// reports the language it settles on.
func (s *Service) DetectLanguage(ctx context.Context, feats audio.Features) (detect.Probabilities, error) {
	if !s.info.SupportsDetection() {
		return nil, services.Wrap(services.ErrValidation, BackendName, "detect language", s.info.Name, speech.ErrEnglishOnly)
	}
	run, err := s.invoke(ctx, feats.Path, speech.DecodingOptions{Task: speech.TaskTranscribe})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, BackendName, "detect language", "", err)
	}
	defer run.cleanup()
	code, probability, ok := ParseDetectedLanguage(string(run.output))
	if !ok {
		return nil, services.Wrap(services.ErrExternalTool, BackendName, "detect language",
			"no \"Detected language\" line in whisperx output", detect.ErrNoProbabilities)
	}
	s.logger.Debug("whisperx detected language",
		logging.String("language", code),
		logging.Float64("probability", probability),
	)
	return detect.Probabilities{code: probability}, nil
}

// Decode transcribes or translates the feature clip.
func (s *Service) Decode(ctx context.Context, feats audio.Features, opts speech.DecodingOptions) (speech.Result, error) {
	return s.transcribe(ctx, "decode", feats.Path, opts)
}

// Transcribe decodes an entire audio file. WhisperX decodes the container
// itself, so no preprocessing is required.
func (s *Service) Transcribe(ctx context.Context, path string, opts speech.DecodingOptions) (speech.Result, error) {
	return s.transcribe(ctx, "transcribe", path, opts)
}

// HealthCheck verifies uvx is runnable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if _, err := s.run(ctx, UVXCommand, "--version"); err != nil {
		return services.Wrap(services.ErrExternalTool, BackendName, "health", "uvx unavailable", err)
	}
	return nil
}

func (s *Service) transcribe(ctx context.Context, op, source string, opts speech.DecodingOptions) (speech.Result, error) {
	if err := s.info.CheckOptions(opts); err != nil {
		return speech.Result{}, services.Wrap(services.ErrValidation, BackendName, op, "", err)
	}
	run, err := s.invoke(ctx, source, opts)
	if err != nil {
		return speech.Result{}, services.Wrap(services.ErrExternalTool, BackendName, op, "", err)
	}
	defer run.cleanup()
	transcript, err := LoadTranscript(run.jsonPath)
	if err != nil {
		return speech.Result{}, services.Wrap(services.ErrExternalTool, BackendName, op, "read transcript", err)
	}
	result := transcript.result()
	if result.Language == "" {
		result.Language = langpkg.ToISO2(opts.Language)
	}
	if result.Language == "" {
		if code, _, ok := ParseDetectedLanguage(string(run.output)); ok {
			result.Language = code
		}
	}
	result.Model = s.cfg.Model
	result.Backend = BackendName
	return result, nil
}

type invocation struct {
	dir      string
	output   []byte
	jsonPath string
}

func (inv invocation) cleanup() {
	if inv.dir != "" {
		_ = os.RemoveAll(inv.dir)
	}
}

// invoke runs WhisperX on source inside a fresh output directory. On success
// the caller must call cleanup.
func (s *Service) invoke(ctx context.Context, source string, opts speech.DecodingOptions) (invocation, error) {
	var inv invocation
	if strings.TrimSpace(source) == "" {
		return inv, fmt.Errorf("source path required")
	}
	if s.cfg.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
			return inv, fmt.Errorf("ensure work dir: %w", err)
		}
	}
	outputDir, err := os.MkdirTemp(s.cfg.WorkDir, "whisperx-")
	if err != nil {
		return inv, fmt.Errorf("create output dir: %w", err)
	}

	s.ensureVAD(ctx)
	args := s.buildArgs(source, outputDir, opts)
	start := time.Now()
	output, err := s.run(ctx, UVXCommand, args...)
	if err != nil {
		_ = os.RemoveAll(outputDir)
		return inv, err
	}
	s.logger.Debug("whisperx finished",
		logging.String("source", source),
		logging.String("task", string(opts.Task)),
		logging.Duration("elapsed", time.Since(start)),
	)
	inv.dir = outputDir
	inv.output = output
	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	inv.jsonPath = filepath.Join(outputDir, baseName+".json")
	return inv, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string, opts speech.DecodingOptions) []string {
	args := make([]string, 0, 40)

	// Index URLs
	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	task := opts.Task
	if task == "" {
		task = speech.TaskTranscribe
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.cfg.Model,
		"--task", string(task),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	// Alignment models only exist for transcription output.
	if task == speech.TaskTranslate {
		args = append(args, "--no_align")
	}

	// VAD method
	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	// Language
	if lang := langpkg.ToISO2(opts.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	// Device
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// ParseDetectedLanguage extracts the language code and probability from
// WhisperX console output.
func ParseDetectedLanguage(output string) (string, float64, bool) {
	match := detectedLanguagePattern.FindStringSubmatch(output)
	if match == nil {
		return "", 0, false
	}
	code := langpkg.ToISO2(match[1])
	if code == "" {
		code = strings.ToLower(match[1])
	}
	probability, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return "", 0, false
	}
	return code, probability, true
}

// Word represents a single word with timing from WhisperX output.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Transcript is the JSON document WhisperX writes.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadTranscript loads a WhisperX JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	var payload Transcript
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

func (t Transcript) result() speech.Result {
	segments := make([]speech.Segment, 0, len(t.Segments))
	var parts []string
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		segments = append(segments, speech.Segment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  text,
		})
		if text != "" {
			parts = append(parts, text)
		}
	}
	return speech.Result{
		Text:     strings.Join(parts, " "),
		Language: langpkg.ToISO2(t.Language),
		Segments: segments,
	}
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
