package transcription

import "testing"

func TestChunkCount(t *testing.T) {
	const mib = 1024 * 1024
	tests := []struct {
		name   string
		size   int64
		limits Limits
		want   int
	}{
		{"small file", 1 * mib, Limits{}, 1},
		{"size bound", 50 * mib, Limits{MinBitrate: 1e9}, 3},
		// 20 MiB at 64 kbps estimates ~2621s, which needs three 1200s chunks.
		{"duration bound", 20 * mib, Limits{}, 3},
		{"empty", 0, Limits{}, 1},
		{"custom limits", 100, Limits{MaxChunkBytes: 30, MaxChunkSeconds: 1e9}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkCount(tt.size, tt.limits); got != tt.want {
				t.Fatalf("ChunkCount(%d) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestEstimateDuration(t *testing.T) {
	if got := EstimateDuration(8000, 64000); got != 1 {
		t.Fatalf("EstimateDuration = %v, want 1", got)
	}
	if got := EstimateDuration(100, 0); got != 0 {
		t.Fatalf("EstimateDuration with zero bitrate = %v, want 0", got)
	}
}

func TestPlanChunksCoverFile(t *testing.T) {
	limits := Limits{MaxChunkBytes: 30, MaxChunkSeconds: 1e9}
	chunks := PlanChunks(100, limits)
	if len(chunks) != 4 {
		t.Fatalf("chunks = %d, want 4", len(chunks))
	}
	var next int64
	for i, c := range chunks {
		if c.Index != i || c.Offset != next {
			t.Fatalf("chunk %d = %+v, want offset %d", i, c, next)
		}
		next += c.Length
	}
	if next != 100 {
		t.Fatalf("chunks cover %d bytes, want 100", next)
	}
	if chunks[0].Length != 25 || chunks[3].Length != 25 {
		t.Fatalf("chunk sizes = %+v", chunks)
	}
}

func TestPlanChunksRoundingYieldsFewerRanges(t *testing.T) {
	// count 6 gives ceil(10/6)=2 byte chunks, which needs only 5 ranges.
	chunks := PlanChunks(10, Limits{MaxChunkBytes: 2, MaxChunkSeconds: 1e9})
	if len(chunks) != 5 {
		t.Fatalf("chunks = %d, want 5", len(chunks))
	}
	chunks = PlanChunks(11, Limits{MaxChunkBytes: 2, MaxChunkSeconds: 1e9})
	if len(chunks) != 6 || chunks[5].Length != 1 {
		t.Fatalf("chunks = %+v", chunks)
	}
}
