package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"polyglot/internal/detect"
	"polyglot/internal/services"
)

// exitLowConfidence is returned when detection succeeded but the top
// language did not clear the confidence threshold.
const exitLowConfidence = 3

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if detect.IsLowConfidence(err) {
		return exitLowConfidence
	}
	return services.ExitCode(err)
}
