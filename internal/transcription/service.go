package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"podcut/internal/fileutil"
	"podcut/internal/language"
	"podcut/internal/logging"
	"podcut/internal/services"
	"podcut/internal/textutil"
)

// Options configures a Service.
type Options struct {
	Limits Limits
	Logger *slog.Logger
}

// Result wraps a transcript with how it was obtained.
type Result struct {
	OperationID string
	Hash        string
	Cached      bool
	Transcript  Transcript
}

// Service orchestrates chunked transcription.
type Service struct {
	client Client
	cache  Cache
	limits Limits
	logger *slog.Logger
}

// NewService builds a Service. cache may be nil to disable caching.
func NewService(client Client, cache Cache, opts Options) *Service {
	return &Service{
		client: client,
		cache:  cache,
		limits: opts.Limits.withDefaults(),
		logger: logging.NewComponentLogger(opts.Logger, "transcription"),
	}
}

// TranscribeFile opens path and transcribes it.
func (s *Service) TranscribeFile(ctx context.Context, path string, onProgress ProgressFunc) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "open", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "stat", path, err)
	}
	return s.Transcribe(ctx, Source{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:        info.Size(),
		Reader:      f,
	}, onProgress)
}

// Transcribe returns the cached transcript for src when one exists, and
// otherwise sends src chunk by chunk and caches the stitched result.
func (s *Service) Transcribe(ctx context.Context, src Source, onProgress ProgressFunc) (Result, error) {
	if s.client == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "no client configured", nil)
	}
	if src.Reader == nil || src.Size <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "transcribe", "source is empty", nil)
	}

	opID := uuid.NewString()
	ctx = services.WithRequestID(services.WithOperation(ctx, "transcribe"), opID)
	logger := logging.WithContext(ctx, s.logger)

	hash, _, err := fileutil.HashReader(io.NewSectionReader(src.Reader, 0, src.Size))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "hash", src.Name, err)
	}

	if cached, ok := s.lookup(ctx, logger, hash); ok {
		logger.Info("using cached transcript",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("hash", hash),
		)
		return Result{OperationID: opID, Hash: hash, Cached: true, Transcript: cached}, nil
	}

	chunks := PlanChunks(src.Size, s.limits)
	logger.Info("transcription started",
		logging.String(logging.FieldEventType, "transcription_started"),
		logging.String("file", src.Name),
		logging.Int64("size_bytes", src.Size),
		logging.Float64("estimated_seconds", EstimateDuration(src.Size, s.limits.MinBitrate)),
		logging.Int("chunks", len(chunks)),
	)

	started := time.Now()
	transcript, err := s.transcribeChunks(ctx, logger, src, chunks, onProgress)
	if err != nil {
		return Result{}, err
	}

	if s.cache != nil {
		meta := Metadata{FileName: src.Name, Size: src.Size, Chunks: transcript.Chunks}
		if err := s.cache.Set(ctx, hash, transcript, meta); err != nil {
			logging.WarnWithContext(logger, "transcript cache write failed", "cache_write_failed",
				logging.String("hash", hash),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next run will transcribe this file again"),
				logging.String(logging.FieldErrorHint, "check cache.path is writable"),
			)
		}
	}

	logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Int("chunks", transcript.Chunks),
		logging.Int("segments", len(transcript.Segments)),
		logging.Float64("duration_seconds", transcript.Duration),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{OperationID: opID, Hash: hash, Transcript: transcript}, nil
}

// ClearCache drops every cached transcript.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

func (s *Service) lookup(ctx context.Context, logger *slog.Logger, hash string) (Transcript, bool) {
	if s.cache == nil {
		return Transcript{}, false
	}
	cached, ok, err := s.cache.Get(ctx, hash)
	if err != nil {
		logging.WarnWithContext(logger, "transcript cache read failed", "cache_read_failed",
			logging.String("hash", hash),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be transcribed again"),
		)
		return Transcript{}, false
	}
	return cached, ok
}

func (s *Service) transcribeChunks(ctx context.Context, logger *slog.Logger, src Source, chunks []Chunk, onProgress ProgressFunc) (Transcript, error) {
	count := len(chunks)
	texts := make([]string, 0, count)
	merged := Transcript{Segments: []Segment{}, Chunks: count}
	var cumulative float64

	for i, chunk := range chunks {
		chunkCtx := services.WithChunk(ctx, i+1, count)
		chunkLogger := logging.WithContext(chunkCtx, s.logger)

		upload := ChunkUpload{
			Index:       i,
			Count:       count,
			FileName:    chunkFileName(src.Name, i, count),
			ContentType: src.ContentType,
			Size:        chunk.Length,
			Body:        io.NewSectionReader(src.Reader, chunk.Offset, chunk.Length),
		}
		chunkLogger.Debug("uploading chunk",
			logging.Int64("offset", chunk.Offset),
			logging.Int64("length", chunk.Length),
		)
		res, err := s.client.TranscribeChunk(chunkCtx, upload)
		if err == nil {
			err = chunkCtx.Err()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				err = services.Wrap(services.ErrCanceled, "transcription", "transcribe", "", err)
			}
			return Transcript{}, &ChunkError{Index: i, Count: count, Err: err}
		}

		for _, seg := range res.Segments {
			seg.Start += cumulative
			seg.End += cumulative
			merged.Segments = append(merged.Segments, seg)
		}
		for _, w := range res.Words {
			w.Start += cumulative
			w.End += cumulative
			merged.Words = append(merged.Words, w)
		}
		texts = append(texts, res.Text)
		if i == 0 {
			merged.Language = language.Normalize(res.Language)
		}

		switch {
		case res.Duration > 0:
			cumulative += res.Duration
		case len(res.Segments) > 0:
			cumulative = merged.Segments[len(merged.Segments)-1].End
		case len(res.Words) > 0:
			cumulative = merged.Words[len(merged.Words)-1].End
		}

		chunkLogger.Info("chunk transcribed",
			logging.Int("segments", len(res.Segments)),
			logging.Float64("offset_seconds", cumulative),
		)
		if onProgress != nil {
			onProgress(float64(i+1) / float64(count))
		}
	}

	merged.Text = strings.Join(texts, " ")
	merged.Duration = cumulative
	return merged, nil
}

// chunkFileName keeps the sanitized original name for a single upload and
// otherwise names chunks chunk_<i>.<ext>.
func chunkFileName(name string, index, count int) string {
	if count <= 1 {
		if safe := textutil.SanitizeFileName(name); safe != "" {
			return safe
		}
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return fmt.Sprintf("chunk_%d", index)
	}
	return fmt.Sprintf("chunk_%d.%s", index, ext)
}
