package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. The transcription API key is
// not required here; commands that call the remote API check it through
// RequireAPIKey so offline commands keep working without one.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Validation.MaxFileMiB <= 0 {
		return errors.New("validation.max_file_mib must be positive")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.TimeoutSeconds <= 0 {
		return errors.New("engine.timeout_seconds must be positive")
	}
	if c.Engine.ProgressLogBucket > 100 {
		return errors.New("engine.progress_log_bucket must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if err := ensurePositiveMap(map[string]int{
		"transcription.max_chunk_mib":     c.Transcription.MaxChunkMiB,
		"transcription.max_chunk_seconds": c.Transcription.MaxChunkSeconds,
		"transcription.min_bitrate_bps":   c.Transcription.MinBitrateBPS,
	}); err != nil {
		return err
	}
	parsed, err := url.Parse(c.Transcription.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("transcription.base_url %q must be an absolute URL", c.Transcription.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

// RequireAPIKey reports a configuration error when no transcription key is set.
func (c *Config) RequireAPIKey() error {
	if c.Transcription.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("transcription.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'podcut config init')", defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
