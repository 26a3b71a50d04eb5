package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"polyglot/internal/logging"
	"polyglot/internal/services"
	"polyglot/internal/textutil"
)

const (
	componentName    = "fetch"
	defaultTimeout   = 2 * time.Minute
	defaultUserAgent = "polyglot/dev"
	lockRetryDelay   = 100 * time.Millisecond
	fallbackFileName = "download"
	progressThrottle = 65 * time.Millisecond
	tempFilePattern  = ".download-*"
	lockFileSuffix   = ".lock"
	progressBarWidth = 30
)

// ErrLockBusy reports that another download held the destination lock
// until the context ended.
var ErrLockBusy = errors.New("download lock busy")

// Options tune a download.
type Options struct {
	// Overwrite replaces an existing destination instead of reusing it.
	Overwrite bool
	Timeout   time.Duration
	UserAgent string
	// Progress receives a progress bar. Nil shows one on stderr when stderr
	// is a terminal.
	Progress   io.Writer
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Result describes a completed download.
type Result struct {
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Reused bool   `json:"reused"`
}

// IsURL reports whether value is an http(s) URL.
func IsURL(value string) bool {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// DestinationFor returns dir joined with the last path element of rawURL.
func DestinationFor(rawURL, dir string) string {
	name := fallbackFileName
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			if unescaped, err := url.PathUnescape(base); err == nil {
				base = unescaped
			}
			name = textutil.SanitizeFileName(base, fallbackFileName)
		}
	}
	return filepath.Join(dir, name)
}

// Download fetches rawURL into dest.
func Download(ctx context.Context, rawURL, dest string, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, componentName)

	if !IsURL(rawURL) {
		return Result{}, services.Wrap(services.ErrValidation, componentName, "download", fmt.Sprintf("not an http(s) url: %q", rawURL), nil)
	}
	if strings.TrimSpace(dest) == "" {
		return Result{}, services.Wrap(services.ErrValidation, componentName, "download", "destination required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, componentName, "download", "create destination directory", err)
	}

	// Waits for a concurrent download of dest; the loser then reuses its file.
	lock := flock.New(dest + lockFileSuffix)
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, services.Wrap(services.ErrTransient, componentName, "download", dest,
				fmt.Errorf("%w: %w", ErrLockBusy, ctxErr))
		}
		return Result{}, services.Wrap(services.ErrTransient, componentName, "download", "acquire lock", err)
	}
	defer func() { _ = lock.Unlock() }()

	if !opts.Overwrite {
		if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			logger.Info("reusing existing download",
				logging.String("path", dest),
				logging.String("size", humanize.Bytes(uint64(info.Size()))),
			)
			return Result{Path: dest, Bytes: info.Size(), Reused: true}, nil
		}
	}

	start := time.Now()
	written, err := download(ctx, rawURL, dest, opts)
	if err != nil {
		return Result{}, err
	}
	logger.Info("download complete",
		logging.String("url", rawURL),
		logging.String("path", dest),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Result{Path: dest, Bytes: written}, nil
}

func download(ctx context.Context, rawURL, dest string, opts Options) (int64, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, componentName, "download", "build request", err)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, componentName, "download", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		} else if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return 0, services.Wrap(marker, componentName, "download", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), tempFilePattern)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, componentName, "download", "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	var sink io.Writer = tmp
	if bar := newProgressBar(opts.Progress, resp.ContentLength, filepath.Base(dest)); bar != nil {
		sink = io.MultiWriter(tmp, bar)
		defer bar.Close()
	}

	written, err := io.Copy(sink, resp.Body)
	if err != nil {
		cleanup()
		return 0, services.Wrap(services.ErrTransient, componentName, "download", "read body", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		cleanup()
		return 0, services.Wrap(services.ErrTransient, componentName, "download",
			fmt.Sprintf("short body: got %d of %d bytes", written, resp.ContentLength), nil)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, services.Wrap(services.ErrExternalTool, componentName, "download", "close temp file", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return 0, services.Wrap(services.ErrExternalTool, componentName, "download", "replace destination", err)
	}
	return written, nil
}

func newProgressBar(out io.Writer, size int64, description string) *progressbar.ProgressBar {
	if out == nil {
		if !isTerminal(os.Stderr) {
			return nil
		}
		out = os.Stderr
	}
	if size <= 0 {
		size = -1
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
