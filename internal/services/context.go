package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	operationKey contextKey = "operation"
	chunkKey     contextKey = "chunk"
)

// ChunkPosition identifies a chunk within a chunked transcription run.
type ChunkPosition struct {
	Index int // 1-based
	Count int
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the running operation name
// (e.g. "process", "transcribe").
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChunk annotates context with the chunk currently being transcribed.
func WithChunk(ctx context.Context, index, count int) context.Context {
	if index <= 0 || count <= 0 {
		return ctx
	}
	return context.WithValue(ctx, chunkKey, ChunkPosition{Index: index, Count: count})
}

// ChunkFromContext returns the chunk position if present.
func ChunkFromContext(ctx context.Context) (ChunkPosition, bool) {
	v, ok := ctx.Value(chunkKey).(ChunkPosition)
	return v, ok
}
