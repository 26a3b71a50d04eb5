package preflight

import (
	"context"
	"fmt"
	"log/slog"

	"polyglot/internal/config"
	"polyglot/internal/models"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every applicable preflight check for the given config.
// The model backend is probed with a single attempt.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Command
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}

	probeCfg := *cfg
	probeCfg.Model.Retries = 0
	name := fmt.Sprintf("Model backend (%s)", cfg.Model.Backend)
	model, err := models.Load(ctx, &probeCfg, logger)
	if err != nil {
		results = append(results, Result{Name: name, Detail: err.Error()})
		return results
	}
	results = append(results, CheckModel(ctx, name, model))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
