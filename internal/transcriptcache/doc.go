// Package transcriptcache persists transcripts in SQLite, keyed by the
// SHA-256 hash of the audio content. It implements transcription.Cache and
// adds the listing and removal operations used by `podcut cache`.
//
// The database runs in WAL mode with a busy timeout; writes that still hit
// SQLITE_BUSY are retried with a short exponential backoff.
package transcriptcache
