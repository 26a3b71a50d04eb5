package detect

import (
	"fmt"
	"log/slog"

	"polyglot/internal/logging"
)

// CheckConfidence returns a LowConfidenceError when confidence is below
// threshold, logging a warning first. Inputs are not range-checked.
func CheckConfidence(logger *slog.Logger, confidence, threshold float64) error {
	return CheckCandidate(logger, Candidate{Probability: confidence}, threshold)
}

// CheckCandidate gates a selected language against threshold.
func CheckCandidate(logger *slog.Logger, cand Candidate, threshold float64) error {
	if cand.Probability >= threshold {
		return nil
	}
	err := &LowConfidenceError{
		Language:   cand.Language,
		Confidence: cand.Probability,
		Threshold:  threshold,
	}
	logging.WarnWithContext(logger, "language confidence below threshold", "language_low_confidence",
		logging.String("language", cand.Language),
		logging.String("confidence", FormatProbability(cand.Probability)),
		logging.String("threshold", FormatProbability(threshold)),
		logging.String(logging.FieldErrorHint, "use a longer or cleaner clip, pass --language, or lower detection.confidence_threshold"),
		logging.String(logging.FieldImpact, fmt.Sprintf("results for %q may be unreliable", cand.Language)),
	)
	return err
}
