package whisperapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podcut/internal/services"
	"podcut/internal/transcription"
)

func upload(body string) transcription.ChunkUpload {
	return transcription.ChunkUpload{
		Index:       0,
		Count:       1,
		FileName:    "chunk_0.mp3",
		ContentType: "audio/mpeg",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func noSleep() Option {
	return WithSleeper(func(time.Duration) {})
}

func TestTranscribeChunkSendsForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		for field, want := range map[string]string{
			"model":             DefaultModel,
			"response_format":   DefaultResponseFormat,
			"chunking_strategy": DefaultChunkingStrategy,
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "chunk_0.mp3" || string(data) != "audio-bytes" {
			t.Errorf("file = %s %q", header.Filename, data)
		}
		if got := header.Header.Get("Content-Type"); got != "audio/mpeg" {
			t.Errorf("file content type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"text": " hello world ",
			"duration": 12.5,
			"language": "english",
			"segments": [
				{"id": "seg_0", "speaker": "A", "start": 0, "end": 4.2, "text": "hello"},
				{"id": 1, "speaker": "B", "start": 4.2, "end": 12.5, "text": " world"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL + "/v1/"})
	res, err := client.TranscribeChunk(context.Background(), upload("audio-bytes"))
	if err != nil {
		t.Fatalf("TranscribeChunk: %v", err)
	}
	if res.Text != "hello world" || res.Duration != 12.5 || res.Language != "english" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Segments) != 2 || res.Segments[0].ID != "seg_0" || res.Segments[1].ID != "1" {
		t.Fatalf("segments = %+v", res.Segments)
	}
	if res.Segments[1].Speaker != "B" || res.Segments[1].Text != "world" {
		t.Fatalf("segment = %+v", res.Segments[1])
	}
}

func TestTranscribeChunkRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, "slow down")
			return
		}
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	res, err := client.TranscribeChunk(context.Background(), upload("abc"))
	if err != nil {
		t.Fatalf("TranscribeChunk: %v", err)
	}
	if res.Text != "ok" || calls.Load() != 2 {
		t.Fatalf("text = %q, calls = %d", res.Text, calls.Load())
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want Retry-After delay", slept)
	}
}

func TestTranscribeChunkGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, noSleep(), WithRetryMaxAttempts(3))
	_, err := client.TranscribeChunk(context.Background(), upload("abc"))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502 StatusError", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestTranscribeChunkDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad key"}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, noSleep())
	_, err := client.TranscribeChunk(context.Background(), upload("abc"))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(statusErr.Body, "bad key") {
		t.Fatalf("body = %q", statusErr.Body)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribeChunkMissingText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"segments":[]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, noSleep())
	_, err := client.TranscribeChunk(context.Background(), upload("abc"))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestTranscribeChunkRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}).TranscribeChunk(context.Background(), upload("abc"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestTranscribeChunkStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleeper(func(time.Duration) { cancel() }))
	_, err := client.TranscribeChunk(ctx, upload("abc"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 3*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := client.backoffDelay(i + 1); got != w {
			t.Fatalf("backoffDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("7"); !ok || d != 7*time.Second {
		t.Fatalf("parseRetryAfter(7) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative Retry-After should be ignored")
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty Retry-After should be ignored")
	}
}
