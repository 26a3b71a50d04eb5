package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateModel() error {
	switch c.Model.Backend {
	case BackendRemote:
		if strings.TrimSpace(c.Model.RemoteURL) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("model.remote_url is required for the remote backend. Edit %s (create with 'polyglot config init')", defaultPath)
		}
		if err := validateHTTPURL("model.remote_url", c.Model.RemoteURL); err != nil {
			return err
		}
	case BackendWhisperX:
	default:
		return fmt.Errorf("model.backend must be %q or %q (got %q)", BackendRemote, BackendWhisperX, c.Model.Backend)
	}
	switch c.Model.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("model.vad_method must be \"silero\" or \"pyannote\" (got %q)", c.Model.VADMethod)
	}
	if c.Model.Backend == BackendWhisperX && c.Model.VADMethod == "pyannote" && c.Model.HFToken == "" {
		return errors.New("model.hf_token must be set when model.vad_method is pyannote (or set HF_TOKEN)")
	}
	if c.Model.TimeoutSeconds <= 0 {
		return errors.New("model.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return errors.New("detection.confidence_threshold must be between 0 and 1")
	}
	if c.Detection.TopN < 1 {
		return errors.New("detection.top_n must be >= 1")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.TimeoutSeconds <= 0 {
		return errors.New("download.timeout_seconds must be positive")
	}
	return validateHTTPURL("download.sample_url", c.Download.SampleURL)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func validateHTTPURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL (got %q)", key, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", key)
	}
	return nil
}
