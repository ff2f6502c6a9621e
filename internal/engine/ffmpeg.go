package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"podcut/internal/logging"
	"podcut/internal/services"
)

const (
	lockFileName  = ".podcut.lock"
	tailLineLimit = 20
	waitDelay     = 5 * time.Second
)

var errNotLoaded = errors.New("engine not loaded")

// Options configures an FFmpeg engine.
type Options struct {
	Binary string
	// Root is the directory workspaces are created under.
	Root string
	// Workspace names the workspace directory below Root. A random name is
	// used when empty.
	Workspace string
	Logger    *slog.Logger
}

// ExecError reports a failed engine invocation with the tail of its log.
type ExecError struct {
	ExitCode int
	Tail     []string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if len(e.Tail) > 0 {
		msg += ": " + e.Tail[len(e.Tail)-1]
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// Output joins the captured log tail.
func (e *ExecError) Output() string {
	return strings.Join(e.Tail, "\n")
}

// FFmpeg runs the ffmpeg binary inside a private workspace directory. The
// workspace is locked with a file lock while loaded so two processes never
// share one.
type FFmpeg struct {
	binary string
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	lock   *flock.Flock
	loaded bool

	listenerSeq int
	listeners   map[int]func(string)
}

// NewFFmpeg constructs an engine. Nothing touches the filesystem until Load.
func NewFFmpeg(opts Options) *FFmpeg {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	name := strings.TrimSpace(opts.Workspace)
	if name == "" {
		name = uuid.NewString()
	}
	root := opts.Root
	if root == "" {
		root = os.TempDir()
	}
	return &FFmpeg{
		binary:    binary,
		dir:       filepath.Join(root, name),
		logger:    logging.NewComponentLogger(opts.Logger, "engine"),
		listeners: make(map[int]func(string)),
	}
}

// Dir returns the workspace directory.
func (f *FFmpeg) Dir() string {
	return f.dir
}

// Load resolves the binary, creates the workspace, and takes its lock.
func (f *FFmpeg) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := exec.LookPath(f.binary); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "load",
			fmt.Sprintf("ffmpeg binary %q not found", f.binary), err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(f.dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return services.Wrap(services.ErrBusy, "engine", "load",
			fmt.Sprintf("workspace %s is in use by another process", f.dir), nil)
	}
	f.lock = lock
	f.loaded = true
	f.logger.Debug("engine workspace ready", logging.String("workspace", f.dir), logging.String("binary", f.binary))
	return nil
}

func (f *FFmpeg) requireLoaded() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return errNotLoaded
	}
	return nil
}

func (f *FFmpeg) path(name string) (string, error) {
	if err := f.requireLoaded(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || name == lockFileName {
		return "", fmt.Errorf("invalid working file name %q", name)
	}
	return filepath.Join(f.dir, name), nil
}

// WriteFile stores src under name in the workspace.
func (f *FFmpeg) WriteFile(ctx context.Context, name string, src io.Reader) error {
	target, err := f.path(name)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := io.Copy(out, contextReader{ctx: ctx, r: src}); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadFile copies the named workspace file into dst.
func (f *FFmpeg) ReadFile(ctx context.Context, name string, dst io.Writer) (int64, error) {
	source, err := f.path(name)
	if err != nil {
		return 0, err
	}
	in, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	defer in.Close()
	n, err := io.Copy(dst, contextReader{ctx: ctx, r: in})
	if err != nil {
		return n, fmt.Errorf("read %s: %w", name, err)
	}
	return n, nil
}

// DeleteFile removes the named workspace file. The returned error wraps
// fs.ErrNotExist when the file is already gone.
func (f *FFmpeg) DeleteFile(_ context.Context, name string) error {
	target, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// OnLog registers fn for ffmpeg stderr lines.
func (f *FFmpeg) OnLog(fn func(line string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenerSeq++
	id := f.listenerSeq
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *FFmpeg) emit(line string) {
	f.mu.Lock()
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.listeners[id])
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(line)
	}
}

// Exec runs ffmpeg in the workspace. Relative file arguments resolve against
// the workspace directory. Cancelling ctx kills the process.
func (f *FFmpeg) Exec(ctx context.Context, args []string) error {
	if err := f.requireLoaded(); err != nil {
		return err
	}
	full := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	cmd := exec.CommandContext(ctx, f.binary, full...)
	cmd.Dir = f.dir
	cmd.WaitDelay = waitDelay
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	f.logger.Debug("ffmpeg command", logging.String("args", strings.Join(full, " ")))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "exec", "start ffmpeg", err)
	}

	tail := make([]string, 0, tailLineLimit)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLogLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(tail) == tailLineLimit {
			tail = append(tail[:0], tail[1:]...)
		}
		tail = append(tail, line)
		f.emit(line)
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ExecError{ExitCode: code, Tail: tail, Err: waitErr}
	}
	if scanErr != nil {
		return fmt.Errorf("read ffmpeg output: %w", scanErr)
	}
	return nil
}

// Close releases the workspace lock and removes the workspace directory.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return nil
	}
	f.loaded = false
	var errs []error
	if err := os.RemoveAll(f.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove workspace: %w", err))
	}
	if f.lock != nil {
		if err := f.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("unlock workspace: %w", err))
		}
		f.lock = nil
	}
	return errors.Join(errs...)
}

// scanLogLines splits on \n and on the bare \r ffmpeg uses for status lines.
func scanLogLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
