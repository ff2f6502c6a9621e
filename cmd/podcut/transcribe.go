package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"podcut/internal/audiofile"
	"podcut/internal/config"
	"podcut/internal/fileutil"
	"podcut/internal/language"
	"podcut/internal/logging"
	"podcut/internal/services/whisperapi"
	"podcut/internal/textutil"
	"podcut/internal/transcriptcache"
	"podcut/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var noCache bool
	var outputPath string

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe an audio file with speaker labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			if _, err := audiofile.Validate(args[0], cfg.MaxFileBytes()); err != nil {
				return err
			}

			logger := ctx.log()
			var cache transcription.Cache
			if cfg.Cache.Enabled && !noCache {
				store, err := transcriptcache.Open(cfg)
				if err != nil {
					logging.WarnWithContext(logger, "transcript cache unavailable", "cache_open_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "transcripts will not be cached"),
					)
				} else {
					defer store.Close()
					cache = store
				}
			}

			service := newTranscriptionService(cfg, cache, logger)
			progress := newProgressReporter(cmd.ErrOrStderr(), "Transcribing")
			result, err := service.TranscribeFile(cmd.Context(), args[0], func(fraction float64) {
				progress.update(fraction*100, "transcribing")
			})
			if err != nil {
				progress.abandon()
				return err
			}
			if result.Cached {
				fmt.Fprintln(cmd.ErrOrStderr(), "Using cached transcript")
			}

			var buf bytes.Buffer
			if jsonOut {
				if err := encodeJSON(&buf, result.Transcript); err != nil {
					return err
				}
			} else {
				writeTranscriptText(&buf, result.Transcript)
			}

			if target := strings.TrimSpace(outputPath); target != "" {
				if err := fileutil.WriteAtomic(target, 0o644, func(w io.Writer) error {
					_, err := w.Write(buf.Bytes())
					return err
				}); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote transcript to %s\n", target)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the transcript as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore the transcript cache")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write the transcript to a file instead of stdout")
	return cmd
}

func newTranscriptionService(cfg *config.Config, cache transcription.Cache, logger *slog.Logger) *transcription.Service {
	client := whisperapi.NewClient(whisperapi.Config{
		APIKey:           cfg.Transcription.APIKey,
		BaseURL:          cfg.Transcription.BaseURL,
		Model:            cfg.Transcription.Model,
		ResponseFormat:   cfg.Transcription.ResponseFormat,
		ChunkingStrategy: cfg.Transcription.ChunkingStrategy,
		TimeoutSeconds:   cfg.Transcription.TimeoutSeconds,
	}, whisperapi.WithRetryMaxAttempts(cfg.Transcription.RetryAttempts))
	return transcription.NewService(client, cache, transcription.Options{
		Limits: transcription.Limits{
			MaxChunkBytes:   cfg.MaxChunkBytes(),
			MaxChunkSeconds: float64(cfg.Transcription.MaxChunkSeconds),
			MinBitrate:      float64(cfg.Transcription.MinBitrateBPS),
		},
		Logger: logger,
	})
}

func writeTranscriptText(w io.Writer, t transcription.Transcript) {
	fmt.Fprintf(w, "Language: %s  Duration: %s  Chunks: %d\n\n",
		language.DisplayName(t.Language), textutil.FormatClock(t.Duration), t.Chunks)
	if len(t.Segments) == 0 {
		fmt.Fprintln(w, t.Text)
		return
	}
	for _, seg := range t.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			fmt.Fprintf(w, "[%s] %s\n", textutil.FormatClock(seg.Start), seg.Text)
			continue
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", textutil.FormatClock(seg.Start), speaker, seg.Text)
	}
}
