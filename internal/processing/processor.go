package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"podcut/internal/cuts"
	"podcut/internal/engine"
	"podcut/internal/filtergraph"
	"podcut/internal/fileutil"
	"podcut/internal/logging"
	"podcut/internal/segments"
	"podcut/internal/services"
	"podcut/internal/textutil"
)

const (
	defaultTimeout   = 10 * time.Minute
	defaultExtension = "mp3"

	progressStaged   = 10.0
	progressRendered = 80.0
	progressDone     = 100.0
)

// ProgressFunc receives overall progress in percent and a short stage label.
type ProgressFunc func(percent float64, stage string)

// Request describes one processing run.
type Request struct {
	InputPath string
	// OutputPath defaults to output.<ext> next to the input.
	OutputPath    string
	Regions       []cuts.Region
	TotalDuration float64
	OnProgress    ProgressFunc
}

// Result describes a completed run.
type Result struct {
	OperationID      string
	OutputPath       string
	Bytes            int64
	ExpectedDuration float64
	SegmentCount     int
	DirectCopy       bool
	Graph            string
	Elapsed          time.Duration
}

// Options configures a Processor.
type Options struct {
	Timeout time.Duration
	// ProgressLogBucket throttles progress log lines to this many percent.
	ProgressLogBucket float64
	Logger            *slog.Logger
}

// Processor runs cut operations against an engine, one at a time.
type Processor struct {
	engine  engine.Engine
	timeout time.Duration
	bucket  float64
	logger  *slog.Logger

	running  atomic.Bool
	canceled atomic.Bool
}

// New constructs a Processor around eng. The caller owns eng and closes it.
func New(eng engine.Engine, opts Options) *Processor {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Processor{
		engine:  eng,
		timeout: timeout,
		bucket:  opts.ProgressLogBucket,
		logger:  logging.NewComponentLogger(opts.Logger, "processing"),
	}
}

// Busy reports whether a run is in flight.
func (p *Processor) Busy() bool {
	return p.running.Load()
}

// Cancel asks the in-flight run to stop at its next checkpoint.
func (p *Processor) Cancel() {
	if p.running.Load() {
		p.canceled.Store(true)
	}
}

// OutputName returns the engine output name for an input path: output.<ext>,
// or output.mp3 when the input has no extension.
func OutputName(inputPath string) string {
	return "output." + extension(inputPath)
}

func extension(path string) string {
	ext := textutil.SanitizeFileName(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// Process applies req.Regions to req.InputPath and writes the result.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, services.Wrap(services.ErrBusy, "processing", "process", "", nil)
	}
	defer p.running.Store(false)
	p.canceled.Store(false)

	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	planned, err := segments.Compute(req.Regions, req.TotalDuration)
	if err != nil {
		return Result{}, err
	}
	plan := filtergraph.Build(planned)

	opID := uuid.NewString()
	ctx = services.WithRequestID(services.WithOperation(ctx, "process"), opID)
	logger := logging.WithContext(ctx, p.logger)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	ext := extension(req.InputPath)
	inputName := "input." + ext
	outputName := "output." + ext
	outputPath := req.OutputPath
	if strings.TrimSpace(outputPath) == "" {
		outputPath = filepath.Join(filepath.Dir(req.InputPath), outputName)
	}

	sampler := logging.NewProgressSampler(p.bucket)
	report := func(percent float64, stage string) {
		if sampler.ShouldLog(percent, stage) {
			logger.Info("processing progress",
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.String(logging.FieldProgressStage, stage),
			)
		}
		if req.OnProgress != nil {
			req.OnProgress(percent, stage)
		}
	}

	logger.Info("processing started",
		logging.String(logging.FieldEventType, "process_started"),
		logging.String("input", req.InputPath),
		logging.Int("keep_segments", plan.SegmentCount),
		logging.Bool("direct_copy", plan.NoOp),
		logging.Float64("expected_seconds", planned.ExpectedDuration),
	)

	var staged []string
	defer func() { p.cleanup(logger, staged) }()

	report(0, "loading engine")
	if err := p.engine.Load(ctx); err != nil {
		return Result{}, p.failure(ctx, err)
	}
	if err := p.checkpoint(ctx); err != nil {
		return Result{}, err
	}

	in, err := os.Open(req.InputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "processing", "open input", req.InputPath, err)
	}
	staged = append(staged, inputName)
	err = p.engine.WriteFile(ctx, inputName, in)
	_ = in.Close()
	if err != nil {
		return Result{}, p.failure(ctx, err)
	}
	report(progressStaged, "input staged")
	if err := p.checkpoint(ctx); err != nil {
		return Result{}, err
	}

	remove := p.engine.OnLog(func(line string) {
		logger.Debug("ffmpeg", logging.String("line", line))
		if t, ok := engine.ParseProgressTime(line); ok && planned.ExpectedDuration > 0 {
			fraction := min(t/planned.ExpectedDuration, 1)
			report(progressStaged+fraction*(progressRendered-progressStaged), "rendering")
		}
	})
	staged = append(staged, outputName)
	err = p.engine.Exec(ctx, plan.Args(inputName, outputName))
	remove()
	if err != nil {
		return Result{}, p.failure(ctx, err)
	}
	report(progressRendered, "rendered")
	if err := p.checkpoint(ctx); err != nil {
		return Result{}, err
	}

	var written int64
	err = fileutil.WriteAtomic(outputPath, 0o644, func(w io.Writer) error {
		n, err := p.engine.ReadFile(ctx, outputName, w)
		if err != nil {
			return p.failure(ctx, err)
		}
		written = n
		return p.checkpoint(ctx)
	})
	if err != nil {
		if IsCanceled(err) || errors.Is(err, services.ErrEngine) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("write output %s: %w", outputPath, err)
	}
	report(progressDone, "complete")

	result := Result{
		OperationID:      opID,
		OutputPath:       outputPath,
		Bytes:            written,
		ExpectedDuration: planned.ExpectedDuration,
		SegmentCount:     plan.SegmentCount,
		DirectCopy:       plan.NoOp,
		Graph:            plan.Graph.String(),
		Elapsed:          time.Since(started),
	}
	logger.Info("processing completed",
		logging.String(logging.FieldEventType, "process_completed"),
		logging.String("output", outputPath),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return services.Wrap(services.ErrValidation, "processing", "validate", "input path is required", nil)
	}
	complete := 0
	for _, r := range req.Regions {
		if r.Complete() {
			complete++
		}
	}
	if complete == 0 {
		return services.Wrap(services.ErrValidation, "processing", "validate", "no cuts to apply", nil)
	}
	if req.TotalDuration <= 0 {
		return services.Wrap(services.ErrValidation, "processing", "validate",
			fmt.Sprintf("invalid total duration %v", req.TotalDuration), nil)
	}
	return nil
}

// checkpoint turns a pending cancel or an expired context into an error.
func (p *Processor) checkpoint(ctx context.Context) error {
	if p.canceled.Load() {
		return services.Wrap(services.ErrCanceled, "processing", "process", "canceled by user", nil)
	}
	if err := ctx.Err(); err != nil {
		return p.failure(ctx, err)
	}
	return nil
}

func (p *Processor) failure(ctx context.Context, err error) error {
	if IsCanceled(err) {
		return err
	}
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return err
	}
	if p.canceled.Load() || errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrCanceled, "processing", "process", "", err)
	}
	if errors.Is(err, services.ErrBusy) || errors.Is(err, services.ErrExternalTool) {
		return err
	}
	return classify(ctx, err)
}

func (p *Processor) cleanup(logger *slog.Logger, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, name := range names {
		err := p.engine.DeleteFile(ctx, name)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		logging.WarnWithContext(logger, "working file cleanup failed", "cleanup_failed",
			logging.String("file", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale file left in the engine workspace"),
			logging.String(logging.FieldErrorHint, "run 'podcut status --prune' to remove stale workspaces"),
		)
	}
}
