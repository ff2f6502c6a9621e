package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FFmpegMode selects the behaviour of the stub ffmpeg binary.
type FFmpegMode int

const (
	// FFmpegCopy copies the -i input to the final argument and prints
	// progress lines.
	FFmpegCopy FFmpegMode = iota
	// FFmpegBadInput fails the way ffmpeg does on undecodable input.
	FFmpegBadInput
	// FFmpegOutOfMemory fails with an allocation error.
	FFmpegOutOfMemory
	// FFmpegHang sleeps long enough for timeouts to fire.
	FFmpegHang
)

const copyScript = `in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    *) out="$1"; shift ;;
  esac
done
printf 'Input #0, mp3, from %s:\n' "$in" >&2
printf 'size=       1kB time=00:00:01.00 bitrate=  8.0kbits/s speed=10x\r' >&2
printf 'size=       2kB time=00:00:02.50 bitrate=  8.0kbits/s speed=10x\n' >&2
cp "$in" "$out"
`

// WriteFFmpegStub writes an ffmpeg stand-in into dir and returns its path.
func WriteFFmpegStub(t testing.TB, dir string, mode FFmpegMode) string {
	t.Helper()
	var body string
	switch mode {
	case FFmpegCopy:
		body = copyScript
	case FFmpegBadInput:
		body = "echo 'input.mp3: Invalid data found when processing input' >&2\nexit 1\n"
	case FFmpegOutOfMemory:
		body = "echo 'Error while filtering: Cannot allocate memory' >&2\nexit 1\n"
	case FFmpegHang:
		body = "exec sleep 30\n"
	default:
		t.Fatalf("unknown ffmpeg stub mode %d", mode)
	}
	return writeScript(t, dir, "ffmpeg", body)
}

// WriteFFprobeStub writes an ffprobe stand-in reporting one audio stream of
// the given duration.
func WriteFFprobeStub(t testing.TB, dir string, durationSeconds float64) string {
	t.Helper()
	payload := fmt.Sprintf(`{"streams":[{"index":0,"codec_name":"mp3","codec_type":"audio","channels":2}],"format":{"duration":"%g","format_name":"mp3"}}`, durationSeconds)
	return writeScript(t, dir, "ffprobe", "echo '"+payload+"'\n")
}

func writeScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binaries require a POSIX shell")
	}
	mkdirAll(t, dir)
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
