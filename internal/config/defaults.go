package config

// Supported model backends.
const (
	BackendRemote   = "remote"
	BackendWhisperX = "whisperx"
)

const (
	defaultConfigPath             = "~/.config/polyglot/config.toml"
	defaultDownloadDir            = "~/.local/share/polyglot/downloads"
	defaultWorkDir                = "~/.local/share/polyglot/work"
	defaultLogDir                 = "~/.local/share/polyglot/logs"
	defaultBackend                = BackendRemote
	defaultModelName              = "medium"
	defaultRemoteURL              = "http://127.0.0.1:9000"
	defaultModelTimeoutSeconds    = 300
	defaultModelRetries           = 2
	defaultVADMethod              = "silero"
	defaultConfidenceThreshold    = 0.5
	defaultTopN                   = 3
	defaultDownloadTimeoutSeconds = 120
	defaultUserAgent              = "polyglot/dev"
	defaultSampleURL              = "https://github.com/fenago/whisper/raw/refs/heads/main/test_audio_files/dutch_the_netherlands.mp3"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
		},
		Model: Model{
			Backend:        defaultBackend,
			Name:           defaultModelName,
			RemoteURL:      defaultRemoteURL,
			TimeoutSeconds: defaultModelTimeoutSeconds,
			Retries:        defaultModelRetries,
			VADMethod:      defaultVADMethod,
		},
		Detection: Detection{
			ConfidenceThreshold: defaultConfidenceThreshold,
			TopN:                defaultTopN,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
			UserAgent:      defaultUserAgent,
			SampleURL:      defaultSampleURL,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
