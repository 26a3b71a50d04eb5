// Package whisperapi talks to a whisper ASR HTTP server.
//
// The server exposes POST /detect-language and POST /asr (multipart audio
// upload) plus GET /health. Client implements speech.Model on top of those
// endpoints with bearer authentication and exponential backoff for 5xx,
// 408/429, and network timeouts.
package whisperapi
