package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"polyglot/internal/audio"
	"polyglot/internal/config"
	"polyglot/internal/deps"
	"polyglot/internal/detect"
	"polyglot/internal/fetch"
	"polyglot/internal/logging"
	"polyglot/internal/models"
	"polyglot/internal/pipeline"
	"polyglot/internal/preflight"
	"polyglot/internal/services"
)

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once, applies flag overrides, and
// creates the configured directories.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if c.applyOverrides(cfg) {
			if err := cfg.Validate(); err != nil {
				c.configErr = fmt.Errorf("config overrides: %w", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) bool {
	changed := false
	if v := strings.TrimSpace(c.flags.logLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
		changed = true
	}
	if v := strings.TrimSpace(c.flags.backend); v != "" {
		cfg.Model.Backend = strings.ToLower(v)
		changed = true
	}
	if v := strings.TrimSpace(c.flags.model); v != "" {
		cfg.Model.Name = v
		changed = true
	}
	return changed
}

// ensureLogger builds the CLI logger and prunes expired log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.LogFilePattern, cfg.Logging.RetentionDays, time.Now())
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newPipeline loads the configured model backend and wraps it in a pipeline.
func (c *commandContext) newPipeline(ctx context.Context, topN int) (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "check dependencies",
			fmt.Sprintf("%s: %s (run `polyglot doctor`)", missing[0].Name, missing[0].Detail), nil)
	}
	model, err := models.Load(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = cfg.Detection.TopN
	}
	prep := audio.NewPreprocessor(cfg.FFmpegBinary())
	return pipeline.New(model, prep, logger, pipeline.Options{
		WorkDir: cfg.Paths.WorkDir,
		TopN:    topN,
	}), nil
}

// resolveAudio returns a local path for arg, downloading http(s) URLs into
// the download directory.
func (c *commandContext) resolveAudio(cmd *cobra.Command, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve audio", "audio path or URL required", nil)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if fetch.IsURL(arg) {
		res, err := c.download(cmd, arg, fetch.DestinationFor(arg, cfg.Paths.DownloadDir), false)
		if err != nil {
			return "", err
		}
		return res.Path, nil
	}
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "cli", "resolve audio", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "cli", "resolve audio", path+" is a directory", nil)
	}
	return path, nil
}

func (c *commandContext) download(cmd *cobra.Command, rawURL, dest string, overwrite bool) (fetch.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fetch.Result{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return fetch.Result{}, err
	}
	res, err := fetch.Download(cmd.Context(), rawURL, dest, fetch.Options{
		Overwrite: overwrite,
		Timeout:   time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
		UserAgent: cfg.Download.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		return fetch.Result{}, detect.Wrap("download audio", err)
	}
	return res, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
