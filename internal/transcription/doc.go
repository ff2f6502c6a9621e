// Package transcription turns an audio file into a single transcript by
// splitting it into byte-range chunks, sending each chunk to a remote
// transcription client in order, and stitching the responses back onto one
// continuous timeline.
//
// Results are cached by the SHA-256 hash of the file content, so a file that
// was transcribed before returns immediately without touching the client.
//
// Chunks are plain byte ranges. They are not aligned to codec frames, so the
// first and last few milliseconds of a chunk may decode poorly; the remote
// service tolerates this for the supported container formats.
package transcription
