package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"podcut/internal/services"
)

type fakeClient struct {
	mu      sync.Mutex
	uploads []ChunkUpload
	bodies  [][]byte
	results []ChunkResult
	failAt  int
	err     error
}

func (c *fakeClient) TranscribeChunk(ctx context.Context, upload ChunkUpload) (ChunkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return ChunkResult{}, err
	}
	upload.Body = nil
	c.uploads = append(c.uploads, upload)
	c.bodies = append(c.bodies, body)
	if c.err != nil && upload.Index == c.failAt {
		return ChunkResult{}, c.err
	}
	if upload.Index < len(c.results) {
		return c.results[upload.Index], nil
	}
	return ChunkResult{Text: "x"}, nil
}

type fakeCache struct {
	entries map[string]Transcript
	meta    map[string]Metadata
	getErr  error
	setErr  error
	cleared bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]Transcript{}, meta: map[string]Metadata{}}
}

func (c *fakeCache) Get(_ context.Context, hash string) (Transcript, bool, error) {
	if c.getErr != nil {
		return Transcript{}, false, c.getErr
	}
	t, ok := c.entries[hash]
	return t, ok, nil
}

func (c *fakeCache) Set(_ context.Context, hash string, t Transcript, meta Metadata) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[hash] = t
	c.meta[hash] = meta
	return nil
}

func (c *fakeCache) Clear(context.Context) error {
	c.cleared = true
	clear(c.entries)
	return nil
}

func source(name string, data []byte) Source {
	return Source{Name: name, ContentType: "audio/mpeg", Size: int64(len(data)), Reader: bytes.NewReader(data)}
}

func threeChunkLimits() Limits {
	return Limits{MaxChunkBytes: 4, MaxChunkSeconds: 1e9}
}

func TestTranscribeStitchesChunks(t *testing.T) {
	client := &fakeClient{results: []ChunkResult{
		{
			Text:     "hello there",
			Segments: []Segment{{Speaker: "A", Start: 0, End: 4, Text: "hello there"}},
			Words:    []Word{{Word: "hello", Start: 0, End: 1}},
			Duration: 10,
			Language: "english",
		},
		{
			Text:     "second",
			Segments: []Segment{{Speaker: "B", Start: 1, End: 5, Text: "second"}},
			Language: "fr",
		},
		{
			Text:     "third",
			Segments: []Segment{{Speaker: "A", Start: 0.5, End: 2, Text: "third"}},
			Words:    []Word{{Word: "third", Start: 0.5, End: 2}},
			Duration: 3,
		},
	}}
	cache := newFakeCache()
	svc := NewService(client, cache, Options{Limits: threeChunkLimits()})

	var progress []float64
	res, err := svc.Transcribe(context.Background(), source("show.mp3", []byte("abcdefghij")), func(f float64) {
		progress = append(progress, f)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	tr := res.Transcript
	if tr.Chunks != 3 || len(client.uploads) != 3 {
		t.Fatalf("chunks = %d, uploads = %d", tr.Chunks, len(client.uploads))
	}
	if tr.Text != "hello there second third" {
		t.Fatalf("text = %q", tr.Text)
	}
	// Chunk 2 has no duration, so the offset becomes its last shifted end (15).
	wantStarts := []float64{0, 11, 15.5}
	for i, seg := range tr.Segments {
		if seg.Start != wantStarts[i] {
			t.Fatalf("segment %d start = %v, want %v", i, seg.Start, wantStarts[i])
		}
	}
	if tr.Words[1].Start != 15.5 || tr.Words[1].End != 17 {
		t.Fatalf("words = %+v", tr.Words)
	}
	if tr.Duration != 18 {
		t.Fatalf("duration = %v, want 18", tr.Duration)
	}
	if tr.Language != "en" {
		t.Fatalf("language = %q, want first chunk's", tr.Language)
	}
	if got := strings.Join([]string{client.uploads[0].FileName, client.uploads[2].FileName}, ","); got != "chunk_0.mp3,chunk_2.mp3" {
		t.Fatalf("chunk names = %s", got)
	}
	if got := string(bytes.Join(client.bodies, nil)); got != "abcdefghij" {
		t.Fatalf("uploaded bytes = %q", got)
	}
	if len(progress) != 3 || progress[0] != 1.0/3 || progress[2] != 1 {
		t.Fatalf("progress = %v", progress)
	}
	if meta := cache.meta[res.Hash]; meta.Chunks != 3 || meta.FileName != "show.mp3" || meta.Size != 10 {
		t.Fatalf("metadata = %+v", meta)
	}
}

func TestTranscribeSingleChunkKeepsName(t *testing.T) {
	client := &fakeClient{results: []ChunkResult{{
		Text:     "only",
		Segments: []Segment{{Start: 0, End: 7.5, Text: "only"}},
	}}}
	svc := NewService(client, nil, Options{})
	var progress []float64
	res, err := svc.Transcribe(context.Background(), source("episode.wav", []byte("data")), func(f float64) {
		progress = append(progress, f)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if client.uploads[0].FileName != "episode.wav" || client.uploads[0].Count != 1 {
		t.Fatalf("upload = %+v", client.uploads[0])
	}
	if res.Transcript.Chunks != 1 || res.Transcript.Duration != 7.5 {
		t.Fatalf("transcript = %+v", res.Transcript)
	}
	if res.Transcript.Language != "unknown" {
		t.Fatalf("language = %q, want unknown", res.Transcript.Language)
	}
	if len(progress) != 1 || progress[0] != 1 {
		t.Fatalf("progress = %v", progress)
	}
}

func TestTranscribeUsesCache(t *testing.T) {
	client := &fakeClient{}
	cache := newFakeCache()
	svc := NewService(client, cache, Options{})
	src := source("show.mp3", []byte("same bytes"))

	first, err := svc.Transcribe(context.Background(), src, nil)
	if err != nil || first.Cached {
		t.Fatalf("first run: cached=%v err=%v", first.Cached, err)
	}
	second, err := svc.Transcribe(context.Background(), source("renamed.mp3", []byte("same bytes")), nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Cached || second.Hash != first.Hash {
		t.Fatalf("second run should hit the cache: %+v", second)
	}
	if len(client.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(client.uploads))
	}

	if err := svc.ClearCache(context.Background()); err != nil || !cache.cleared {
		t.Fatalf("ClearCache: %v", err)
	}
}

func TestTranscribeCacheFailuresAreNotFatal(t *testing.T) {
	client := &fakeClient{}
	cache := newFakeCache()
	cache.getErr = errors.New("locked")
	cache.setErr = errors.New("disk full")
	var logs bytes.Buffer
	svc := NewService(client, cache, Options{Logger: slog.New(slog.NewJSONHandler(&logs, nil))})

	if _, err := svc.Transcribe(context.Background(), source("a.mp3", []byte("abc")), nil); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	for _, event := range []string{"cache_read_failed", "cache_write_failed"} {
		if !strings.Contains(logs.String(), event) {
			t.Fatalf("expected %s in logs: %s", event, logs.String())
		}
	}
}

func TestTranscribeChunkFailure(t *testing.T) {
	client := &fakeClient{failAt: 1, err: errors.New("http 500")}
	cache := newFakeCache()
	svc := NewService(client, cache, Options{Limits: threeChunkLimits()})

	_, err := svc.Transcribe(context.Background(), source("show.mp3", []byte("abcdefghij")), nil)
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("err = %v, want *ChunkError", err)
	}
	if chunkErr.Index != 1 || chunkErr.Count != 3 {
		t.Fatalf("chunk error = %+v", chunkErr)
	}
	if !strings.Contains(err.Error(), "chunk 2/3 failed") {
		t.Fatalf("message = %q", err.Error())
	}
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatal("chunk errors should match ErrTranscription")
	}
	if len(client.uploads) != 2 {
		t.Fatalf("uploads = %d, want abort after the failing chunk", len(client.uploads))
	}
	if len(cache.entries) != 0 {
		t.Fatal("failed transcription must not be cached")
	}
}

func TestTranscribeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{failAt: 0, err: context.Canceled}
	cancel()
	_, err := NewService(client, nil, Options{}).Transcribe(ctx, source("a.mp3", []byte("abc")), nil)
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
}

func TestTranscribeRejectsEmptySource(t *testing.T) {
	_, err := NewService(&fakeClient{}, nil, Options{}).Transcribe(context.Background(), source("a.mp3", nil), nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTranscribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{}
	if _, err := NewService(client, nil, Options{}).TranscribeFile(context.Background(), path, nil); err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if client.uploads[0].FileName != "clip.m4a" || client.uploads[0].Size != 5 {
		t.Fatalf("upload = %+v", client.uploads[0])
	}
}

func TestChunkFileName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		count int
		want  string
	}{
		{"show.mp3", 0, 1, "show.mp3"},
		{"show.mp3", 2, 4, "chunk_2.mp3"},
		{"noext", 0, 2, "chunk_0"},
		{"take: 2?.wav", 0, 1, "take- 2.wav"},
		{"", 0, 1, "chunk_0"},
	}
	for _, tt := range tests {
		if got := chunkFileName(tt.name, tt.index, tt.count); got != tt.want {
			t.Errorf("chunkFileName(%q, %d, %d) = %q, want %q", tt.name, tt.index, tt.count, got, tt.want)
		}
	}
}
