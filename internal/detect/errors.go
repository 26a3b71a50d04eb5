package detect

import (
	"errors"
	"fmt"
	"strings"
)

// LowConfidenceError reports a top language whose probability fell below
// the configured threshold.
type LowConfidenceError struct {
	Language   string
	Confidence float64
	Threshold  float64
}

func (e *LowConfidenceError) Error() string {
	subject := "detected language"
	if lang := strings.TrimSpace(e.Language); lang != "" {
		subject = fmt.Sprintf("detected language %q", lang)
	}
	return fmt.Sprintf("%s confidence %s is below threshold %s",
		subject, FormatProbability(e.Confidence), FormatProbability(e.Threshold))
}

// IsLowConfidence reports whether err carries a LowConfidenceError.
func IsLowConfidence(err error) bool {
	var target *LowConfidenceError
	return errors.As(err, &target)
}

// ProcessingError wraps a failure raised by an external collaborator
// (download, audio decoding, model inference).
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	op := strings.TrimSpace(e.Op)
	if op == "" {
		op = "processing failed"
	}
	if e.Err == nil {
		return op
	}
	return op + ": " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Wrap converts err into a ProcessingError for op. Nil stays nil, and
// LowConfidenceError or an existing ProcessingError pass through untouched
// so a failure is wrapped exactly once.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsLowConfidence(err) {
		return err
	}
	var existing *ProcessingError
	if errors.As(err, &existing) {
		return err
	}
	return &ProcessingError{Op: op, Err: err}
}

// FormatProbability renders a probability as "0.40 (40.0%)".
func FormatProbability(value float64) string {
	return fmt.Sprintf("%.2f (%.1f%%)", value, value*100)
}
