// Package models selects and constructs the configured speech model backend.
package models

import (
	"context"
	"fmt"
	"log/slog"

	"polyglot/internal/config"
	"polyglot/internal/logging"
	"polyglot/internal/services"
	"polyglot/internal/services/whisperapi"
	"polyglot/internal/services/whisperx"
	"polyglot/internal/speech"
)

// Load returns the backend named by cfg.Model.Backend, loaded with the model
// size in cfg.Model.Name. It does not contact the backend; call HealthCheck
// for that.
func Load(_ context.Context, cfg *config.Config, logger *slog.Logger) (speech.Model, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "models", "load", "config required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if _, err := speech.LookupModel(cfg.Model.Name); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "models", "load", "", err)
	}

	switch cfg.Model.Backend {
	case config.BackendRemote:
		client, err := whisperapi.NewClient(whisperapi.Config{
			BaseURL:        cfg.Model.RemoteURL,
			Token:          cfg.Model.RemoteToken,
			Model:          cfg.Model.Name,
			TimeoutSeconds: cfg.Model.TimeoutSeconds,
			Retries:        cfg.Model.Retries,
		}, whisperapi.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Debug("speech model selected",
			logging.String("backend", whisperapi.BackendName),
			logging.String("model", client.Name()),
			logging.String("url", cfg.Model.RemoteURL),
		)
		return client, nil
	case config.BackendWhisperX:
		svc, err := whisperx.NewService(whisperx.Config{
			Model:       cfg.Model.Name,
			CUDAEnabled: cfg.Model.CUDAEnabled,
			VADMethod:   cfg.Model.VADMethod,
			HFToken:     cfg.Model.HFToken,
			WorkDir:     cfg.Paths.WorkDir,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("speech model selected",
			logging.String("backend", whisperx.BackendName),
			logging.String("model", svc.Name()),
			logging.Bool("cuda", svc.CUDAEnabled()),
		)
		return svc, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "models", "load",
			fmt.Sprintf("unknown backend %q", cfg.Model.Backend), nil)
	}
}
