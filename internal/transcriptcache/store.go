package transcriptcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"podcut/internal/config"
	"podcut/internal/transcription"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry summarizes one cached transcript.
type Entry struct {
	Hash      string
	FileName  string
	SizeBytes int64
	Chunks    int
	Duration  float64
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a SQLite-backed transcript cache.
type Store struct {
	db   *sql.DB
	path string
}

var _ transcription.Cache = (*Store)(nil)

// Open opens the cache database named by cfg.Cache.Path.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Cache.Path)
}

// OpenPath opens or creates the cache database at path.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open transcript cache: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the transcript cached under hash.
func (s *Store) Get(ctx context.Context, hash string) (transcription.Transcript, bool, error) {
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT transcript_json FROM transcripts WHERE hash = ?", hash,
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return transcription.Transcript{}, false, nil
	}
	if err != nil {
		return transcription.Transcript{}, false, fmt.Errorf("get transcript %s: %w", hash, err)
	}
	var transcript transcription.Transcript
	if err := json.Unmarshal([]byte(payload), &transcript); err != nil {
		return transcription.Transcript{}, false, fmt.Errorf("decode transcript %s: %w", hash, err)
	}
	return transcript, true, nil
}

// Set stores transcript under hash, replacing any previous entry.
func (s *Store) Set(ctx context.Context, hash string, transcript transcription.Transcript, meta transcription.Metadata) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("set transcript: hash required")
	}
	payload, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = s.execWithoutResultRetry(ctx, `
        INSERT INTO transcripts (
            hash, file_name, size_bytes, chunks, duration_seconds, language,
            transcript_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(hash) DO UPDATE SET
            file_name = excluded.file_name,
            size_bytes = excluded.size_bytes,
            chunks = excluded.chunks,
            duration_seconds = excluded.duration_seconds,
            language = excluded.language,
            transcript_json = excluded.transcript_json,
            updated_at = excluded.updated_at`,
		hash, meta.FileName, meta.Size, meta.Chunks, transcript.Duration, transcript.Language,
		string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("store transcript %s: %w", hash, err)
	}
	return nil
}

// List returns every entry, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT hash, file_name, size_bytes, chunks, duration_seconds, language, created_at, updated_at
        FROM transcripts ORDER BY updated_at DESC, hash`)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry            Entry
			created, updated string
		)
		if err := rows.Scan(&entry.Hash, &entry.FileName, &entry.SizeBytes, &entry.Chunks,
			&entry.Duration, &entry.Language, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		entry.CreatedAt = parseTime(created)
		entry.UpdatedAt = parseTime(updated)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return entries, nil
}

// Remove deletes the entry for hash. A unique hash prefix is accepted.
// It reports whether an entry was removed.
func (s *Store) Remove(ctx context.Context, hash string) (bool, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return false, errors.New("remove transcript: hash required")
	}
	full, err := s.resolvePrefix(ctx, hash)
	if err != nil || full == "" {
		return false, err
	}
	res, err := s.execWithRetry(ctx, "DELETE FROM transcripts WHERE hash = ?", full)
	if err != nil {
		return false, fmt.Errorf("remove transcript %s: %w", full, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove transcript %s: %w", full, err)
	}
	return n > 0, nil
}

// ErrAmbiguousHash is returned when a hash prefix matches several entries.
var ErrAmbiguousHash = errors.New("hash prefix matches more than one transcript")

func (s *Store) resolvePrefix(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT hash FROM transcripts WHERE substr(hash, 1, ?) = ? LIMIT 2", len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("resolve hash %s: %w", prefix, err)
	}
	defer rows.Close()
	var matches []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return "", fmt.Errorf("resolve hash %s: %w", prefix, err)
		}
		matches = append(matches, h)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve hash %s: %w", prefix, err)
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousHash, prefix)
	}
}

// Clear removes every cached transcript.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithoutResultRetry(ctx, "DELETE FROM transcripts"); err != nil {
		return fmt.Errorf("clear transcripts: %w", err)
	}
	return nil
}

// Count returns the number of cached transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM transcripts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return n, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
