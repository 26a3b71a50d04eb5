package whisperx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"polyglot/internal/audio"
	"polyglot/internal/services"
	"polyglot/internal/speech"
)

type fakeRun struct {
	name string
	args []string
}

func argValue(args []string, flag string) string {
	if i := slices.Index(args, flag); i >= 0 && i+1 < len(args) {
		return args[i+1]
	}
	return ""
}

// fakeWhisperX writes transcript next to the requested output dir and echoes
// console output the way the real CLI does.
func fakeWhisperX(t *testing.T, transcript, console string, runs *[]fakeRun) CommandRunner {
	t.Helper()
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*runs = append(*runs, fakeRun{name: name, args: args})
		outDir := argValue(args, "--output_dir")
		source := args[slices.Index(args, "whisperx")+1]
		base := filepath.Base(source)
		base = base[:len(base)-len(filepath.Ext(base))]
		if transcript != "" {
			if err := os.WriteFile(filepath.Join(outDir, base+".json"), []byte(transcript), 0o644); err != nil {
				t.Errorf("write transcript: %v", err)
			}
		}
		return []byte(console), nil
	}
}

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	svc, err := NewService(cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.WithTokenValidator(func(context.Context, string) error { return nil })
	return svc
}

func TestParseDetectedLanguage(t *testing.T) {
	code, p, ok := ParseDetectedLanguage("Lightning upgraded\nDetected language: nl (0.97) in first 30s of audio...\n")
	if !ok || code != "nl" || p != 0.97 {
		t.Fatalf("got %q %v %v", code, p, ok)
	}
	if _, _, ok := ParseDetectedLanguage("no detection here"); ok {
		t.Fatal("expected no match")
	}
}

func TestDetectLanguageSingleEntry(t *testing.T) {
	var runs []fakeRun
	svc := newService(t, Config{Model: "medium"})
	svc.WithCommandRunner(fakeWhisperX(t, `{"segments":[],"language":"nl"}`,
		"Detected language: nl (0.82) in first 30s of audio...", &runs))

	feats := audio.Features{Path: filepath.Join(t.TempDir(), "features-1.wav")}
	probs, err := svc.DetectLanguage(context.Background(), feats)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if len(probs) != 1 || probs["nl"] != 0.82 {
		t.Fatalf("unexpected probabilities %v", probs)
	}
	if len(runs) != 1 || runs[0].name != UVXCommand {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if slices.Contains(runs[0].args, "--language") {
		t.Fatalf("detection must not pass a language hint: %v", runs[0].args)
	}
	if _, err := os.Stat(argValue(runs[0].args, "--output_dir")); !os.IsNotExist(err) {
		t.Fatalf("expected output dir cleaned up, stat err=%v", err)
	}
}

func TestDetectLanguageWithoutDetectionLine(t *testing.T) {
	var runs []fakeRun
	svc := newService(t, Config{})
	svc.WithCommandRunner(fakeWhisperX(t, `{"segments":[]}`, "nothing useful", &runs))
	_, err := svc.DetectLanguage(context.Background(), audio.Features{Path: "clip.wav"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribeBuildsTaskArgs(t *testing.T) {
	var runs []fakeRun
	svc := newService(t, Config{Model: "small", VADMethod: VADMethodPyannote, HFToken: "hf"})
	svc.WithCommandRunner(fakeWhisperX(t,
		`{"language":"nl","segments":[{"text":" Goedemorgen ","start":0,"end":1.25},{"text":"allemaal","start":1.25,"end":2}]}`,
		"", &runs))

	result, err := svc.Transcribe(context.Background(), "/audio/dutch.mp3",
		speech.DecodingOptions{Language: "dutch", Task: speech.TaskTranslate})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	args := runs[0].args
	checks := map[string]string{
		"--model":         "small",
		"--task":          "translate",
		"--language":      "nl",
		"--vad_method":    VADMethodPyannote,
		"--hf_token":      "hf",
		"--device":        CPUDevice,
		"--index-url":     PypiIndexURL,
		"--output_format": OutputFormat,
	}
	for flag, want := range checks {
		if got := argValue(args, flag); got != want {
			t.Errorf("%s = %q, want %q (args %v)", flag, got, want, args)
		}
	}
	if !slices.Contains(args, "--no_align") {
		t.Errorf("translate should disable alignment: %v", args)
	}
	if result.Text != "Goedemorgen allemaal" || result.Language != "nl" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Backend != BackendName || result.Model != "small" {
		t.Fatalf("unexpected result metadata %+v", result)
	}
	if len(result.Segments) != 2 || result.Segments[0].End != 1250*time.Millisecond {
		t.Fatalf("unexpected segments %+v", result.Segments)
	}
}

func TestCUDAArgs(t *testing.T) {
	svc := newService(t, Config{CUDAEnabled: true})
	args := svc.buildArgs("a.wav", "/out", speech.DecodingOptions{})
	if argValue(args, "--index-url") != CUDAIndexURL || argValue(args, "--extra-index-url") != PypiIndexURL {
		t.Fatalf("unexpected index urls %v", args)
	}
	if argValue(args, "--device") != CUDADevice || slices.Contains(args, "--compute_type") {
		t.Fatalf("unexpected device args %v", args)
	}
	if argValue(args, "--task") != string(speech.TaskTranscribe) {
		t.Fatalf("expected default transcribe task %v", args)
	}
}

func TestRunnerFailureIsWrapped(t *testing.T) {
	svc := newService(t, Config{})
	boom := errors.New("uvx exploded")
	svc.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, boom
	})
	_, err := svc.Decode(context.Background(), audio.Features{Path: "clip.wav"}, speech.DecodingOptions{})
	if !errors.Is(err, boom) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if err := svc.HealthCheck(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected health failure, got %v", err)
	}
}

func TestEnglishOnlyModel(t *testing.T) {
	svc := newService(t, Config{Model: "medium.en"})
	svc.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Error("runner should not be called")
		return nil, nil
	})
	if _, err := svc.DetectLanguage(context.Background(), audio.Features{Path: "clip.wav"}); !errors.Is(err, speech.ErrEnglishOnly) {
		t.Fatalf("expected ErrEnglishOnly from detection, got %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), "clip.wav", speech.DecodingOptions{Language: "nl"}); !errors.Is(err, speech.ErrEnglishOnly) {
		t.Fatalf("expected ErrEnglishOnly from transcribe, got %v", err)
	}
}

func TestRejectedTokenFallsBackToSilero(t *testing.T) {
	var runs []fakeRun
	svc := newService(t, Config{VADMethod: VADMethodPyannote, HFToken: "hf_bad"})
	checks := 0
	svc.WithTokenValidator(func(_ context.Context, token string) error {
		checks++
		if token != "hf_bad" {
			t.Errorf("validator got token %q", token)
		}
		return ErrTokenUnauthorized
	})
	svc.WithCommandRunner(fakeWhisperX(t, `{"language":"nl","segments":[]}`, "", &runs))

	for range 2 {
		if _, err := svc.Transcribe(context.Background(), "/audio/dutch.mp3", speech.DecodingOptions{Language: "nl"}); err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
	}
	if checks != 1 {
		t.Fatalf("token validated %d times, want 1", checks)
	}
	if svc.VADMethod() != VADMethodSilero {
		t.Fatalf("VADMethod = %q, want silero", svc.VADMethod())
	}
	for _, run := range runs {
		if got := argValue(run.args, "--vad_method"); got != VADMethodSilero {
			t.Fatalf("--vad_method = %q, want silero", got)
		}
		if slices.Contains(run.args, "--hf_token") {
			t.Fatalf("silero run must not pass the token: %v", run.args)
		}
	}
}

func TestAcceptedTokenKeepsPyannote(t *testing.T) {
	var runs []fakeRun
	svc := newService(t, Config{VADMethod: VADMethodPyannote, HFToken: "hf_good"})
	svc.WithCommandRunner(fakeWhisperX(t, `{"language":"nl","segments":[]}`, "", &runs))

	if _, err := svc.Transcribe(context.Background(), "/audio/dutch.mp3", speech.DecodingOptions{Language: "nl"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if svc.VADMethod() != VADMethodPyannote {
		t.Fatalf("VADMethod = %q, want pyannote", svc.VADMethod())
	}
	if got := argValue(runs[0].args, "--hf_token"); got != "hf_good" {
		t.Fatalf("--hf_token = %q, want hf_good", got)
	}
}

func TestWhoAmIValidator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer hf_good":
			_, _ = w.Write([]byte(`{"name":"polyglot"}`))
		case "Bearer hf_flaky":
			http.Error(w, "try later", http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(server.Close)
	validate := whoAmIValidator(server.URL)
	ctx := context.Background()

	if err := validate(ctx, "hf_good"); err != nil {
		t.Fatalf("good token rejected: %v", err)
	}
	if err := validate(ctx, "hf_bad"); !errors.Is(err, ErrTokenUnauthorized) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected unauthorized validation error, got %v", err)
	}
	if err := validate(ctx, "hf_flaky"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if err := validate(ctx, " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for blank token, got %v", err)
	}
}
