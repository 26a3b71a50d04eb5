// Package detect owns the decision logic applied to a language-probability
// mapping returned by a speech model.
//
// It picks the most probable language, gates that pick against a confidence
// threshold, and ranks the mapping for top-N reporting. Everything upstream
// of the mapping (audio decoding, features, classification) belongs to the
// model collaborator in internal/speech.
//
// Errors are split in two: LowConfidenceError is a recoverable verdict the
// caller must explicitly accept or reject, while ProcessingError wraps any
// failure that originated in a collaborator.
package detect
