package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeModel()
	c.normalizeDetection()
	c.normalizeDownload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeModel() {
	c.Model.Backend = strings.ToLower(strings.TrimSpace(c.Model.Backend))
	if c.Model.Backend == "" {
		c.Model.Backend = defaultBackend
	}
	c.Model.Name = strings.TrimSpace(c.Model.Name)
	if c.Model.Name == "" {
		c.Model.Name = defaultModelName
	}
	c.Model.RemoteURL = strings.TrimRight(strings.TrimSpace(c.Model.RemoteURL), "/")
	c.Model.RemoteToken = strings.TrimSpace(c.Model.RemoteToken)
	if c.Model.RemoteToken == "" {
		if value, ok := os.LookupEnv("POLYGLOT_REMOTE_TOKEN"); ok {
			c.Model.RemoteToken = strings.TrimSpace(value)
		}
	}
	if c.Model.TimeoutSeconds <= 0 {
		c.Model.TimeoutSeconds = defaultModelTimeoutSeconds
	}
	if c.Model.Retries < 0 {
		c.Model.Retries = 0
	}
	c.Model.VADMethod = strings.ToLower(strings.TrimSpace(c.Model.VADMethod))
	if c.Model.VADMethod == "" {
		c.Model.VADMethod = defaultVADMethod
	}
	c.Model.HFToken = strings.TrimSpace(c.Model.HFToken)
	if c.Model.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Model.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Model.HFToken = strings.TrimSpace(value)
		}
	}
}

// A zero threshold is meaningful (accept everything), so only TopN is defaulted.
func (c *Config) normalizeDetection() {
	if c.Detection.TopN == 0 {
		c.Detection.TopN = defaultTopN
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	c.Download.SampleURL = strings.TrimSpace(c.Download.SampleURL)
	if c.Download.SampleURL == "" {
		c.Download.SampleURL = defaultSampleURL
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
