package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// WhisperServer fakes the ASR HTTP API used by the remote backend.
type WhisperServer struct {
	*httptest.Server

	// Probabilities is returned from /detect-language.
	Probabilities map[string]float64
	// Text is returned from /asr, prefixed with the task for translate.
	Text string

	mu       sync.Mutex
	requests []WhisperRequest
}

// WhisperRequest records the form fields of one /asr or /detect-language call.
type WhisperRequest struct {
	Path     string
	Task     string
	Language string
	Model    string
}

// NewWhisperServer starts a fake server and registers its shutdown.
func NewWhisperServer(t testing.TB, probs map[string]float64, text string) *WhisperServer {
	t.Helper()
	ws := &WhisperServer{Probabilities: probs, Text: text}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /detect-language", func(w http.ResponseWriter, r *http.Request) {
		if !ws.record(w, r) {
			return
		}
		writeJSON(w, map[string]any{"language_probs": ws.Probabilities})
	})
	mux.HandleFunc("POST /asr", func(w http.ResponseWriter, r *http.Request) {
		if !ws.record(w, r) {
			return
		}
		lang := r.FormValue("language")
		text := ws.Text
		if r.FormValue("task") == "translate" {
			lang = "en"
			text = "[translated] " + text
		}
		writeJSON(w, map[string]any{
			"text":     text,
			"language": lang,
			"segments": []map[string]any{{"start": 0.0, "end": 2.0, "text": text}},
		})
	})
	ws.Server = httptest.NewServer(mux)
	t.Cleanup(ws.Close)
	return ws
}

// Requests returns a copy of the recorded calls.
func (ws *WhisperServer) Requests() []WhisperRequest {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]WhisperRequest(nil), ws.requests...)
}

func (ws *WhisperServer) record(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	file, _, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "audio_file required", http.StatusBadRequest)
		return false
	}
	_ = file.Close()
	ws.mu.Lock()
	ws.requests = append(ws.requests, WhisperRequest{
		Path:     r.URL.Path,
		Task:     r.FormValue("task"),
		Language: r.FormValue("language"),
		Model:    r.FormValue("model"),
	})
	ws.mu.Unlock()
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
