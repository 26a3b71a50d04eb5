package whisperapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"polyglot/internal/audio"
	"polyglot/internal/detect"
	"polyglot/internal/logging"
	"polyglot/internal/services"
	"polyglot/internal/speech"
)

// BackendName identifies this backend in results and logs.
const BackendName = "remote"

const (
	defaultHTTPTimeout    = 300 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	componentName         = "whisperapi"
)

// Config captures the runtime settings required to talk to the server.
type Config struct {
	BaseURL        string
	Token          string
	Model          string
	TimeoutSeconds int
	// Retries is the number of extra attempts after the first.
	Retries int
}

// Client implements speech.Model against a whisper ASR server.
type Client struct {
	cfg        Config
	info       speech.ModelInfo
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, componentName)
		}
	}
}

// NewClient constructs a client. The model name must be known or end in a
// recognizable suffix; see speech.LookupModel.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "init", "base url required", nil)
	}
	info, err := speech.LookupModel(cfg.Model)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, componentName, "init", "", err)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := defaultRetryAttempts
	if cfg.Retries >= 0 {
		attempts = cfg.Retries + 1
	}
	client := &Client{
		cfg: Config{
			BaseURL:        cfg.BaseURL,
			Token:          strings.TrimSpace(cfg.Token),
			Model:          info.Name,
			TimeoutSeconds: cfg.TimeoutSeconds,
			Retries:        cfg.Retries,
		},
		info:             info,
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logging.NewNop(),
		retryMaxAttempts: attempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name returns the configured model size.
func (c *Client) Name() string {
	return c.cfg.Model
}

// DetectLanguage uploads the feature clip and returns per-language probabilities.
func (c *Client) DetectLanguage(ctx context.Context, feats audio.Features) (detect.Probabilities, error) {
	if !c.info.SupportsDetection() {
		return nil, services.Wrap(services.ErrValidation, componentName, "detect language", c.info.Name, speech.ErrEnglishOnly)
	}
	var parsed detectResponse
	err := c.postAudioWithRetry(ctx, "detect language", "/detect-language", feats.Path, map[string]string{
		"model": c.cfg.Model,
	}, &parsed)
	if err != nil {
		return nil, err
	}
	probs := parsed.probabilities()
	if probs.Len() == 0 {
		return nil, services.Wrap(services.ErrExternalTool, componentName, "detect language", "server returned no language probabilities", detect.ErrNoProbabilities)
	}
	return probs, nil
}

// Decode transcribes or translates the 30 second feature clip.
func (c *Client) Decode(ctx context.Context, feats audio.Features, opts speech.DecodingOptions) (speech.Result, error) {
	return c.asr(ctx, "decode", feats.Path, opts)
}

// Transcribe decodes an entire audio file.
func (c *Client) Transcribe(ctx context.Context, path string, opts speech.DecodingOptions) (speech.Result, error) {
	return c.asr(ctx, "transcribe", path, opts)
}

func (c *Client) asr(ctx context.Context, op, path string, opts speech.DecodingOptions) (speech.Result, error) {
	if err := c.info.CheckOptions(opts); err != nil {
		return speech.Result{}, services.Wrap(services.ErrValidation, componentName, op, "", err)
	}
	task := opts.Task
	if task == "" {
		task = speech.TaskTranscribe
	}
	fields := map[string]string{
		"model": c.cfg.Model,
		"task":  string(task),
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	var parsed asrResponse
	if err := c.postAudioWithRetry(ctx, op, "/asr", path, fields, &parsed); err != nil {
		return speech.Result{}, err
	}
	result := parsed.result()
	result.Model = c.cfg.Model
	result.Backend = BackendName
	if result.Language == "" {
		result.Language = opts.Language
	}
	return result, nil
}

// HealthCheck queries the server health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.getHealth(ctx); err != nil {
		return services.Wrap(services.ErrExternalTool, componentName, "health", c.cfg.BaseURL, err)
	}
	return nil
}

func (c *Client) postAudioWithRetry(ctx context.Context, op, endpoint, path string, fields map[string]string, target any) error {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.postAudioOnce(ctx, endpoint, path, fields, target)
		if err == nil {
			return nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if lastErr == nil {
				return c.classify(op, err)
			}
			return c.classify(op, fmt.Errorf("failed after %d attempts: %w", attempt, err))
		}
		c.logger.Debug("retrying whisper server request",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return c.classify(op, err)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return c.classify(op, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr))
}

func (c *Client) classify(op string, err error) error {
	marker := services.ErrExternalTool
	var statusErr *httpStatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.transient():
		marker = services.ErrTransient
	case errors.Is(err, context.DeadlineExceeded):
		marker = services.ErrTransient
	}
	return services.Wrap(marker, componentName, op, "", err)
}
