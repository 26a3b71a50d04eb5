package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"polyglot/internal/language"
	"polyglot/internal/services"
	"polyglot/internal/speech"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return newDecodeCommand(ctx, speech.TaskTranscribe,
		"transcribe <audio>",
		"Transcribe speech in its spoken language",
		"Spoken language (name or ISO code); empty lets the model detect it")
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	return newDecodeCommand(ctx, speech.TaskTranslate,
		"translate <audio>",
		"Translate speech into English text",
		"Source language (name or ISO code); empty detects it first")
}

func newDecodeCommand(ctx *commandContext, task speech.Task, use, short, languageUsage string) *cobra.Command {
	var hint string
	var verbose bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, ok := language.NormalizeHint(hint)
			if !ok {
				return services.Wrap(services.ErrValidation, "cli", string(task), fmt.Sprintf("unknown language %q", hint), nil)
			}
			path, err := ctx.resolveAudio(cmd, args[0])
			if err != nil {
				return err
			}
			pl, err := ctx.newPipeline(cmd.Context(), 0)
			if err != nil {
				return err
			}

			var result speech.Result
			if task == speech.TaskTranslate {
				result, err = pl.Translate(cmd.Context(), path, lang)
			} else {
				result, err = pl.Transcribe(cmd.Context(), path, lang)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}
			renderResult(cmd.OutOrStdout(), result, verbose)
			return nil
		},
	}

	cmd.Flags().StringVarP(&hint, "language", "l", "", languageUsage)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print timestamped segments")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the full result as JSON")
	return cmd
}

func renderResult(w io.Writer, result speech.Result, verbose bool) {
	if verbose {
		if result.Language != "" {
			fmt.Fprintf(w, "Detected language: %s\n", language.Label(result.Language))
		}
		for _, seg := range result.Segments {
			fmt.Fprintf(w, "[%s --> %s] %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Text)
		}
		if len(result.Segments) > 0 {
			return
		}
	}
	fmt.Fprintln(w, result.Text)
}

// formatTimestamp renders d as MM:SS.mmm, or HH:MM:SS.mmm past an hour.
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	millis := ms % 1000
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
	}
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
