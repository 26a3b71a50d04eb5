// Package whisperx runs WhisperX locally through uvx as a speech.Model.
//
// Transcription and translation invoke the whisperx CLI with --task and read
// the JSON transcript it writes. Language detection runs the same CLI without
// a language hint and parses the "Detected language: xx (0.97)" line, so it
// yields a single-entry probability mapping.
//
// Configuration options (model, CUDA, VAD method) are passed via Config.
package whisperx
