// Package speech defines the pretrained speech model collaborator.
//
// A Model classifies the spoken language of a feature clip and decodes audio
// into text, either in the spoken language (transcribe) or rendered in
// English (translate). Backends live under internal/services and are chosen
// by internal/models.
package speech
