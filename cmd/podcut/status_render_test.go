package main

import (
	"fmt"
	"strings"
	"testing"

	"podcut/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Cache", statusOK, "3 transcript(s)", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestCheckLines(t *testing.T) {
	lines := checkLines([]preflight.Result{
		{Name: "Work directory", Passed: true, Detail: "/tmp/work (read/write ok)"},
		{Name: "FFmpeg", Detail: `binary "ffmpeg" not found`},
		{Name: "FFprobe"},
	}, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] /tmp/work") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[2], "[ERROR] not available") {
		t.Fatalf("expected default detail, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[WARN] FFmpeg, FFprobe") {
		t.Fatalf("expected failing summary, got %q", lines[3])
	}
}

func TestProgressReporterPlainOutput(t *testing.T) {
	var buf strings.Builder
	r := newProgressReporter(&buf, "Applying")
	r.update(0, "loading engine")
	r.update(5, "loading engine")
	r.update(10, "input staged")
	r.update(100, "complete")
	want := "  0% Loading Engine\n 10% Input Staged\n100% Complete\n"
	if buf.String() != want {
		t.Fatalf("progress output = %q, want %q", buf.String(), want)
	}
}
