package config

const (
	defaultConfigPath                = "~/.config/podcut/config.toml"
	defaultWorkDir                   = "~/.local/share/podcut/work"
	defaultLogDir                    = "~/.local/share/podcut/logs"
	defaultCacheFileName             = "transcripts.db"
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultEngineTimeoutSeconds      = 600
	defaultProgressLogBucket         = 10
	defaultTranscriptionBaseURL      = "https://api.openai.com/v1"
	defaultTranscriptionModel        = "gpt-4o-transcribe-diarize"
	defaultTranscriptionFormat       = "diarized_json"
	defaultChunkingStrategy          = "auto"
	defaultMaxChunkMiB               = 24
	defaultMaxChunkSeconds           = 1200
	defaultMinBitrateBPS             = 64000
	defaultTranscriptionTimeout      = 300
	defaultTranscriptionRetryAttempt = 3
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultMaxFileMiB                = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Engine: Engine{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			TimeoutSeconds:    defaultEngineTimeoutSeconds,
			ProgressLogBucket: defaultProgressLogBucket,
		},
		Transcription: Transcription{
			BaseURL:          defaultTranscriptionBaseURL,
			Model:            defaultTranscriptionModel,
			ResponseFormat:   defaultTranscriptionFormat,
			ChunkingStrategy: defaultChunkingStrategy,
			MaxChunkMiB:      defaultMaxChunkMiB,
			MaxChunkSeconds:  defaultMaxChunkSeconds,
			MinBitrateBPS:    defaultMinBitrateBPS,
			TimeoutSeconds:   defaultTranscriptionTimeout,
			RetryAttempts:    defaultTranscriptionRetryAttempt,
		},
		Cache: Cache{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Validation: Validation{
			MaxFileMiB: defaultMaxFileMiB,
		},
	}
}
