package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"polyglot/internal/detect"
	"polyglot/internal/language"
	"polyglot/internal/pipeline"
	"polyglot/internal/services"
)

type detectOutput struct {
	Language   string            `json:"language"`
	Name       string            `json:"name"`
	Confidence float64           `json:"confidence"`
	Threshold  float64           `json:"threshold"`
	Confident  bool              `json:"confident"`
	Candidates []candidateOutput `json:"candidates,omitempty"`
	Text       string            `json:"text,omitempty"`
}

type candidateOutput struct {
	Language    string  `json:"language"`
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var top int
	var jsonOut bool
	var transcribe bool
	var allowLow bool

	cmd := &cobra.Command{
		Use:   "detect <audio>",
		Short: "Detect the spoken language of an audio file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Detection.ConfidenceThreshold
			} else if threshold < 0 || threshold > 1 {
				return services.Wrap(services.ErrValidation, "cli", "detect", "--threshold must be between 0 and 1", nil)
			}
			if cmd.Flags().Changed("top") && top < 1 {
				return services.Wrap(services.ErrValidation, "cli", "detect", "--top must be at least 1", nil)
			}

			path, err := ctx.resolveAudio(cmd, args[0])
			if err != nil {
				return err
			}
			pl, err := ctx.newPipeline(cmd.Context(), top)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if transcribe {
				return runDetectAndTranscribe(cmd, pl, path, threshold, allowLow, jsonOut)
			}

			det, err := pl.DetectLanguage(cmd.Context(), path)
			if err != nil {
				return err
			}
			gateErr := detect.CheckCandidate(logger, det.Top, threshold)
			out := detectOutput{
				Language:   det.Top.Language,
				Name:       language.DisplayName(det.Top.Language),
				Confidence: det.Top.Probability,
				Threshold:  threshold,
				Confident:  gateErr == nil,
				Candidates: candidateOutputs(det.Candidates),
			}
			if jsonOut {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				renderDetection(cmd.OutOrStdout(), out)
			}
			if gateErr != nil && !allowLow {
				return gateErr
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum confidence for the top language (default: detection.confidence_threshold)")
	cmd.Flags().IntVar(&top, "top", 0, "Number of candidate languages to report (default: detection.top_n)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&transcribe, "transcribe", false, "Transcribe the detection window in the detected language")
	cmd.Flags().BoolVar(&allowLow, "allow-low-confidence", false, "Report low-confidence detections without failing")
	return cmd
}

// runDetectAndTranscribe gates on threshold. With allowLow the gate is
// lowered to zero and a low result is reported as a warning instead.
func runDetectAndTranscribe(cmd *cobra.Command, pl *pipeline.Pipeline, path string, threshold float64, allowLow, jsonOut bool) error {
	gate := threshold
	if allowLow {
		gate = 0
	}
	res, err := pl.DetectAndTranscribe(cmd.Context(), path, gate)
	var lowErr *detect.LowConfidenceError
	if errors.As(err, &lowErr) {
		// Report what was detected before failing on the gate.
		out := detectOutput{
			Language:   lowErr.Language,
			Name:       language.DisplayName(lowErr.Language),
			Confidence: lowErr.Confidence,
			Threshold:  lowErr.Threshold,
		}
		if jsonOut {
			if werr := writeJSON(cmd, out); werr != nil {
				return werr
			}
		} else {
			renderDetection(cmd.OutOrStdout(), out)
		}
		return err
	}
	if err != nil {
		return err
	}
	out := detectOutput{
		Language:   res.Language,
		Name:       language.DisplayName(res.Language),
		Confidence: res.Confidence,
		Threshold:  threshold,
		Confident:  res.Confidence >= threshold,
		Text:       res.Text,
	}
	if jsonOut {
		return writeJSON(cmd, out)
	}
	renderDetection(cmd.OutOrStdout(), out)
	return nil
}

func candidateOutputs(cands []detect.Candidate) []candidateOutput {
	out := make([]candidateOutput, 0, len(cands))
	for _, c := range cands {
		out = append(out, candidateOutput{
			Language:    c.Language,
			Name:        language.DisplayName(c.Language),
			Probability: c.Probability,
		})
	}
	return out
}

func renderDetection(w io.Writer, out detectOutput) {
	fmt.Fprintf(w, "Detected language: %s\n", language.Label(out.Language))
	confidence := detect.FormatProbability(out.Confidence)
	if out.Confident {
		confidence = colorize(w, confidence, text.Colors{text.FgGreen})
	} else {
		confidence = colorize(w, confidence, text.Colors{text.FgYellow})
	}
	fmt.Fprintf(w, "Confidence: %s\n", confidence)
	if !out.Confident {
		fmt.Fprintf(w, "Warning: confidence is below threshold %s\n", detect.FormatProbability(out.Threshold))
	}
	if len(out.Candidates) > 0 {
		rows := make([][]string, 0, len(out.Candidates))
		for i, c := range out.Candidates {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				c.Name,
				c.Language,
				detect.FormatProbability(c.Probability),
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Language", "Code", "Probability"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		))
	}
	if out.Text != "" {
		fmt.Fprintf(w, "Transcript: %s\n", out.Text)
	}
}
