package transcription

import (
	"context"
	"io"
)

// Segment is one diarized span of speech.
type Segment struct {
	ID      string  `json:"id,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Word is a single timed word, when the service reports them.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the stitched result. All timestamps are seconds from the
// start of the original file.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words,omitempty"`
	Duration float64   `json:"duration"`
	Language string    `json:"language"`
	Chunks   int       `json:"chunks"`
}

// Chunk is a contiguous byte range of the source file.
type Chunk struct {
	Index  int
	Offset int64
	Length int64
}

// ChunkUpload is what a Client receives for one chunk.
type ChunkUpload struct {
	Index       int
	Count       int
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ChunkResult is one chunk's response with timestamps relative to the chunk.
// A zero Duration means the service did not report one.
type ChunkResult struct {
	Text     string
	Segments []Segment
	Words    []Word
	Duration float64
	Language string
}

// Client sends a single chunk to the remote service.
type Client interface {
	TranscribeChunk(ctx context.Context, upload ChunkUpload) (ChunkResult, error)
}

// Metadata is stored next to a cached transcript.
type Metadata struct {
	FileName string
	Size     int64
	Chunks   int
}

// Cache stores transcripts keyed by content hash.
type Cache interface {
	Get(ctx context.Context, hash string) (Transcript, bool, error)
	Set(ctx context.Context, hash string, transcript Transcript, meta Metadata) error
	Clear(ctx context.Context) error
}

// ProgressFunc receives the completed fraction after each chunk.
type ProgressFunc func(fraction float64)

// Source describes the file to transcribe.
type Source struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReaderAt
}
