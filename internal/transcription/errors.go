package transcription

import (
	"fmt"

	"podcut/internal/services"
)

// ChunkError reports the chunk that aborted a transcription. Index is
// zero-based; the message uses the 1-based position.
type ChunkError struct {
	Index int
	Count int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d failed: %v", e.Index+1, e.Count, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Is matches the transcription marker.
func (e *ChunkError) Is(target error) bool {
	return target == services.ErrTranscription
}
