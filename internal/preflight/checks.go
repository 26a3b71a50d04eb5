package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"polyglot/internal/config"
	"polyglot/internal/deps"
	"polyglot/internal/speech"
)

const modelCheckTimeout = 30 * time.Second

// CheckModel verifies that the speech model backend answers a health check.
func CheckModel(ctx context.Context, name string, model speech.Model) Result {
	if model == nil {
		return Result{Name: name, Detail: "model not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	if err := model.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeModelError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", model.Name())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the configured backend needs.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.CheckFFmpeg(cfg.FFmpegBinary())}
	if cfg.Model.Backend == config.BackendWhisperX {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{{
			Name:        "uvx",
			Command:     cfg.UVXBinary(),
			Description: "Required for WhisperX-driven transcription",
		}})...)
	}
	return statuses
}

// summarizeModelError produces a human-readable summary for health check failures.
func summarizeModelError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (model backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (model backend unreachable)"
	}
	return err.Error()
}
