// Package pipeline runs the detect, gate, and decode walkthrough against a
// speech model.
//
// DetectLanguage loads a file, fits it to the 30 second window, builds the
// feature clip, and picks the most probable language. DetectAndTranscribe adds
// the confidence gate and decodes the clip in the detected language.
// Transcribe and Translate decode whole files.
//
// Error policy: a *detect.LowConfidenceError is returned unmodified; every
// other failure is wrapped exactly once in a *detect.ProcessingError naming
// the step that failed.
package pipeline
