// Package audio prepares speech input for the model collaborator.
//
// Load decodes any ffmpeg-readable file into mono 16 kHz float samples,
// PadOrTrim fits a waveform to the model's fixed 30 second window, and
// ComputeFeatures materializes that window as a 16-bit PCM WAV clip. The
// clip is the opaque feature handle model backends consume; spectrogram
// math stays inside the model.
package audio
