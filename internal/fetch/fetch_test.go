package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"polyglot/internal/fetch"
	"polyglot/internal/services"
)

func TestDownloadWritesFile(t *testing.T) {
	payload := strings.Repeat("audio", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "polyglot/test" {
			t.Errorf("unexpected user agent %q", got)
		}
		_, _ = io.WriteString(w, payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "dutch.mp3")
	var progress bytes.Buffer
	res, err := fetch.Download(context.Background(), server.URL+"/dutch.mp3", dest, fetch.Options{
		UserAgent: "polyglot/test",
		Progress:  &progress,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Path != dest || res.Bytes != int64(len(payload)) || res.Reused {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != payload {
		t.Fatalf("unexpected file contents err=%v len=%d", err, len(data))
	}
	entries, _ := os.ReadDir(filepath.Dir(dest))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".download-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestDownloadReusesExistingFile(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, "fresh")
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(dest, []byte("cached"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := fetch.Download(context.Background(), server.URL+"/clip.mp3", dest, fetch.Options{Progress: io.Discard})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !res.Reused || res.Bytes != int64(len("cached")) || calls.Load() != 0 {
		t.Fatalf("expected reuse without request, got %+v calls=%d", res, calls.Load())
	}

	res, err = fetch.Download(context.Background(), server.URL+"/clip.mp3", dest, fetch.Options{Overwrite: true, Progress: io.Discard})
	if err != nil {
		t.Fatalf("Download overwrite: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if res.Reused || string(data) != "fresh" || calls.Load() != 1 {
		t.Fatalf("expected overwrite, got %+v data=%q", res, data)
	}
}

func TestDownloadNon200(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing.mp3")
	_, err := fetch.Download(context.Background(), server.URL+"/missing.mp3", dest, fetch.Options{Progress: io.Discard})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("destination should not exist, stat err=%v", statErr)
	}
}

func TestDownloadRejectsBadInput(t *testing.T) {
	if _, err := fetch.Download(context.Background(), "ftp://example.com/a.mp3", filepath.Join(t.TempDir(), "a"), fetch.Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for scheme, got %v", err)
	}
	if _, err := fetch.Download(context.Background(), "https://example.com/a.mp3", "", fetch.Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for dest, got %v", err)
	}
}

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://github.com/a/b.mp3": true,
		"http://host/x":             true,
		"/tmp/local.wav":            false,
		"local.wav":                 false,
		"file:///tmp/a.wav":         false,
	}
	for input, want := range cases {
		if got := fetch.IsURL(input); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestDestinationFor(t *testing.T) {
	dir := "/data"
	cases := map[string]string{
		"https://github.com/fenago/whisper/raw/refs/heads/main/test_audio_files/dutch_the_netherlands.mp3": "/data/dutch_the_netherlands.mp3",
		"https://example.com/":             "/data/download",
		"https://example.com/a%20clip.wav": "/data/a clip.wav",
		"https://example.com/x.mp3?dl=1":   "/data/x.mp3",
		"https://example.com/a%2Fb.mp3":    "/data/a-b.mp3",
		"https://example.com/..":           "/data/download",
	}
	for input, want := range cases {
		if got := fetch.DestinationFor(input, dir); got != want {
			t.Errorf("DestinationFor(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDownloadFailsWhileLockHeld(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "audio")
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "clip.mp3")
	held := flock.New(dest + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	defer func() { _ = held.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := fetch.Download(ctx, server.URL+"/clip.mp3", dest, fetch.Options{Progress: io.Discard})
	if !errors.Is(err, fetch.ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("server must not be contacted while the lock is held")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "clip.mp3.lock" {
			t.Fatalf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestDownloadWaitsForLockThenReuses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "fresh")
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "clip.mp3")
	held := flock.New(dest + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	// the holder finishes its download, then releases
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = os.WriteFile(dest, []byte("first writer"), 0o644)
		_ = held.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := fetch.Download(ctx, server.URL+"/clip.mp3", dest, fetch.Options{Progress: io.Discard})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !res.Reused || hits.Load() != 0 {
		t.Fatalf("expected reuse of the first writer's file, got %+v (hits=%d)", res, hits.Load())
	}
}
