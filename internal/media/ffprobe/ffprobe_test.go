package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "mp3", "codec_type": "audio", "sample_rate": "44100", "channels": 2, "duration": "1801.5"}
  ],
  "format": {"filename": "episode.mp3", "nb_streams": 1, "duration": "1801.534000", "size": "28824576", "bit_rate": "128000", "format_name": "mp3"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("audio streams = %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 1801.534 {
		t.Fatalf("duration = %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 28824576 {
		t.Fatalf("size = %d", result.SizeBytes())
	}
	if result.BitRate() != 128000 {
		t.Fatalf("bitrate = %d", result.BitRate())
	}
	stream, ok := result.PrimaryAudio()
	if !ok || stream.Channels != 2 {
		t.Fatalf("primary audio = %+v, %v", stream, ok)
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", Duration: "42.5"}}}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("duration = %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAudioDurationWithStub(t *testing.T) {
	stub := writeStub(t, "cat <<'JSON'\n"+sampleJSON+"\nJSON\n")
	d, err := AudioDuration(context.Background(), stub, "episode.mp3")
	if err != nil {
		t.Fatalf("AudioDuration: %v", err)
	}
	if d != 1801.534 {
		t.Fatalf("duration = %v", d)
	}
}

func TestAudioDurationNoAudio(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"codec_type":"video"}],"format":{"duration":"10"}}'`+"\n")
	_, err := AudioDuration(context.Background(), stub, "clip.mp4")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("err = %v, want ErrNoAudio", err)
	}
}

func TestInspectReportsStderr(t *testing.T) {
	stub := writeStub(t, "echo 'episode.mp3: Invalid data found when processing input' >&2\nexit 1\n")
	_, err := Inspect(context.Background(), stub, "episode.mp3")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "Invalid data found") {
		t.Fatalf("error should carry stderr, got %q", got)
	}
}
