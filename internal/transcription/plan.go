package transcription

import "math"

const (
	DefaultMaxChunkBytes   int64   = 24 * 1024 * 1024
	DefaultMaxChunkSeconds float64 = 1200
	DefaultMinBitrate      float64 = 64000
)

// Limits bound the size of a single upload.
type Limits struct {
	MaxChunkBytes   int64
	MaxChunkSeconds float64
	// MinBitrate is a deliberately low bits-per-second guess used to
	// over-estimate duration from file size.
	MinBitrate float64
}

func (l Limits) withDefaults() Limits {
	if l.MaxChunkBytes <= 0 {
		l.MaxChunkBytes = DefaultMaxChunkBytes
	}
	if l.MaxChunkSeconds <= 0 {
		l.MaxChunkSeconds = DefaultMaxChunkSeconds
	}
	if l.MinBitrate <= 0 {
		l.MinBitrate = DefaultMinBitrate
	}
	return l
}

// EstimateDuration returns size*8/minBitrate seconds.
func EstimateDuration(size int64, minBitrate float64) float64 {
	if size <= 0 || minBitrate <= 0 {
		return 0
	}
	return float64(size) * 8 / minBitrate
}

// ChunkCount returns how many chunks are needed to respect both the byte and
// the estimated-duration limit. It is never less than 1.
func ChunkCount(size int64, limits Limits) int {
	limits = limits.withDefaults()
	bySize := int(math.Ceil(float64(size) / float64(limits.MaxChunkBytes)))
	byDuration := int(math.Ceil(EstimateDuration(size, limits.MinBitrate) / limits.MaxChunkSeconds))
	return max(bySize, byDuration, 1)
}

// PlanChunks splits size bytes into contiguous ranges of ceil(size/count)
// bytes. Rounding can produce fewer ranges than ChunkCount; callers use
// len(result). An empty file yields a single empty chunk.
func PlanChunks(size int64, limits Limits) []Chunk {
	if size <= 0 {
		return []Chunk{{Index: 0}}
	}
	count := int64(ChunkCount(size, limits))
	chunkSize := (size + count - 1) / count
	chunks := make([]Chunk, 0, count)
	for offset := int64(0); offset < size; offset += chunkSize {
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: offset,
			Length: min(chunkSize, size-offset),
		})
	}
	return chunks
}
