package engine

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"podcut/internal/services"
	"podcut/internal/testsupport"
)

func TestParseProgressTime(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"size=  512kB time=00:01:02.50 bitrate= 64.0kbits/s", 62.5, true},
		{"frame=1 time=01:00:00.00", 3600, true},
		{"time=00:00:07", 7, true},
		{"size=N/A time=N/A bitrate=N/A", 0, false},
		{"time=-00:00:00.02", 0, false},
		{"Input #0, mp3, from 'input.mp3':", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseProgressTime(tt.line)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseProgressTime(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func newLoadedEngine(t *testing.T, mode testsupport.FFmpegMode) *FFmpeg {
	t.Helper()
	base := t.TempDir()
	bin := testsupport.WriteFFmpegStub(t, filepath.Join(base, "bin"), mode)
	eng := NewFFmpeg(Options{Binary: bin, Root: filepath.Join(base, "work"), Workspace: "ws"})
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestFFmpegRoundTrip(t *testing.T) {
	eng := newLoadedEngine(t, testsupport.FFmpegCopy)
	ctx := context.Background()

	var mu sync.Mutex
	var lines []string
	remove := eng.OnLog(func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	defer remove()

	if err := eng.WriteFile(ctx, "input.mp3", strings.NewReader("audio-bytes")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := eng.Exec(ctx, []string{"-i", "input.mp3", "-c", "copy", "output.mp3"}); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	var out bytes.Buffer
	n, err := eng.ReadFile(ctx, "output.mp3", &out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n != int64(len("audio-bytes")) || out.String() != "audio-bytes" {
		t.Fatalf("ReadFile = %d %q", n, out.String())
	}

	mu.Lock()
	defer mu.Unlock()
	var progress []float64
	for _, line := range lines {
		if v, ok := ParseProgressTime(line); ok {
			progress = append(progress, v)
		}
	}
	if len(progress) != 2 || progress[0] != 1 || progress[1] != 2.5 {
		t.Fatalf("progress lines split wrong: %v from %q", progress, lines)
	}

	if err := eng.DeleteFile(ctx, "output.mp3"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := eng.DeleteFile(ctx, "output.mp3"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("second delete err = %v, want not-exist", err)
	}
}

func TestFFmpegExecFailureCarriesTail(t *testing.T) {
	eng := newLoadedEngine(t, testsupport.FFmpegBadInput)
	err := eng.Exec(context.Background(), []string{"-i", "input.mp3", "output.mp3"})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want *ExecError", err)
	}
	if execErr.ExitCode != 1 {
		t.Fatalf("exit code = %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Output(), "Invalid data found") {
		t.Fatalf("tail = %q", execErr.Output())
	}
}

func TestFFmpegExecHonoursDeadline(t *testing.T) {
	eng := newLoadedEngine(t, testsupport.FFmpegHang)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := eng.Exec(ctx, []string{"-i", "input.mp3", "output.mp3"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("exec was not killed promptly")
	}
}

func TestFFmpegRejectsUnsafeNames(t *testing.T) {
	eng := newLoadedEngine(t, testsupport.FFmpegCopy)
	for _, name := range []string{"", "../escape.mp3", "sub/dir.mp3", lockFileName} {
		if err := eng.WriteFile(context.Background(), name, strings.NewReader("x")); err == nil {
			t.Fatalf("WriteFile(%q) should fail", name)
		}
	}
}

func TestFFmpegRequiresLoad(t *testing.T) {
	eng := NewFFmpeg(Options{Binary: "ffmpeg", Root: t.TempDir()})
	if err := eng.WriteFile(context.Background(), "input.mp3", strings.NewReader("x")); !errors.Is(err, errNotLoaded) {
		t.Fatalf("err = %v, want errNotLoaded", err)
	}
	if err := eng.Exec(context.Background(), nil); !errors.Is(err, errNotLoaded) {
		t.Fatalf("err = %v, want errNotLoaded", err)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	eng := NewFFmpeg(Options{Binary: filepath.Join(t.TempDir(), "no-ffmpeg"), Root: t.TempDir()})
	err := eng.Load(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool error", err)
	}
}

func TestWorkspaceLockAndPrune(t *testing.T) {
	base := t.TempDir()
	bin := testsupport.WriteFFmpegStub(t, filepath.Join(base, "bin"), testsupport.FFmpegCopy)
	root := filepath.Join(base, "work")

	active := NewFFmpeg(Options{Binary: bin, Root: root, Workspace: "active"})
	if err := active.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer active.Close()

	second := NewFFmpeg(Options{Binary: bin, Root: root, Workspace: "active"})
	if err := second.Load(context.Background()); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second Load err = %v, want busy", err)
	}

	stale := filepath.Join(root, "stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}

	workspaces, err := ListWorkspaces(root)
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(workspaces) != 2 {
		t.Fatalf("workspaces = %+v", workspaces)
	}
	for _, ws := range workspaces {
		if ws.Active != (ws.Name == "active") {
			t.Fatalf("unexpected activity for %+v", ws)
		}
	}

	removed, err := PruneWorkspaces(root)
	if err != nil {
		t.Fatalf("PruneWorkspaces: %v", err)
	}
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("removed = %v", removed)
	}
	if _, err := os.Stat(active.Dir()); err != nil {
		t.Fatalf("active workspace removed: %v", err)
	}

	if err := active.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(active.Dir()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("workspace should be removed on Close, stat err = %v", err)
	}
}
