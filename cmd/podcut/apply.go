package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podcut/internal/audiofile"
	"podcut/internal/config"
	"podcut/internal/cuts"
	"podcut/internal/engine"
	"podcut/internal/logging"
	"podcut/internal/preflight"
	"podcut/internal/processing"
	"podcut/internal/textutil"
)

// applyRequest is the shared input of `podcut apply` and the edit session's
// apply command.
type applyRequest struct {
	audioPath  string
	outputPath string
	regions    []cuts.Region
	total      float64
}

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var flags cutFlags
	var outputPath string

	cmd := &cobra.Command{
		Use:   "apply <audio>",
		Short: "Remove the cut regions from an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			regions, err := flags.regions()
			if err != nil {
				return err
			}
			total, err := flags.totalDuration(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			return applyCuts(cmd, ctx, applyRequest{
				audioPath:  args[0],
				outputPath: outputPath,
				regions:    regions,
				total:      total,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output path (default output.<ext> next to the input)")
	return cmd
}

func applyCuts(cmd *cobra.Command, ctx *commandContext, req applyRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if _, err := audiofile.Validate(req.audioPath, cfg.MaxFileBytes()); err != nil {
		return err
	}
	if err := preflight.Require(cmd.Context(), cfg); err != nil {
		return err
	}

	logger := ctx.log()
	eng := engine.NewFFmpeg(engine.Options{
		Binary: cfg.Engine.FFmpegBinary,
		Root:   cfg.Paths.WorkDir,
		Logger: logger,
	})
	defer func() {
		if err := eng.Close(); err != nil {
			logging.WarnWithContext(logger, "engine close failed", "engine_close_failed", logging.Error(err))
		}
	}()
	proc := processing.New(eng, processing.Options{
		Timeout:           cfg.EngineTimeout(),
		ProgressLogBucket: float64(cfg.Engine.ProgressLogBucket),
		Logger:            logger,
	})

	runCtx, stop := interruptContext(cmd.Context(), cmd.ErrOrStderr(), proc)
	defer stop()

	out := cmd.OutOrStdout()
	progress := newProgressReporter(out, "Applying cuts")
	result, err := proc.Process(runCtx, processing.Request{
		InputPath:     req.audioPath,
		OutputPath:    req.outputPath,
		Regions:       req.regions,
		TotalDuration: req.total,
		OnProgress:    progress.update,
	})
	if err != nil {
		progress.abandon()
		if processing.IsCanceled(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Processing canceled")
			return err
		}
		var engErr *processing.EngineError
		if errors.As(err, &engErr) {
			logging.ErrorWithContext(logger, "apply failed", "apply_failed", err,
				logging.String("input", req.audioPath),
				logging.String(logging.FieldErrorHint, engErr.Hint()),
			)
			return fmt.Errorf("%w (hint: %s)", err, engErr.Hint())
		}
		logging.ErrorWithContext(logger, "apply failed", "apply_failed", err, logging.String("input", req.audioPath))
		return err
	}
	writeApplySummary(out, cfg, req, result)
	return nil
}

func writeApplySummary(w io.Writer, cfg *config.Config, req applyRequest, result processing.Result) {
	fmt.Fprintf(w, "Wrote %s (%s)\n", result.OutputPath, humanize.IBytes(uint64(max(result.Bytes, 0))))
	if result.DirectCopy {
		fmt.Fprintln(w, "No cuts applied; the audio was copied unchanged")
	} else {
		fmt.Fprintf(w, "Kept %d segment(s): %s -> %s\n", result.SegmentCount,
			textutil.FormatClock(req.total), textutil.FormatClock(result.ExpectedDuration))
	}
	if cfg.Logging.Level == "debug" && strings.TrimSpace(result.Graph) != "" {
		fmt.Fprintf(w, "Filter graph: %s\n", result.Graph)
	}
}

// interruptContext turns the first SIGINT into a cooperative cancel of the
// running processor and the second into a hard context cancellation.
func interruptContext(parent context.Context, stderr io.Writer, proc *processing.Processor) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT)
	done := make(chan struct{})
	go func() {
		count := 0
		for {
			select {
			case <-done:
				return
			case <-signals:
				count++
				if count == 1 {
					fmt.Fprintln(stderr, "\nCanceling after the current step (press Ctrl+C again to abort)")
					proc.Cancel()
					continue
				}
				cancel()
				return
			}
		}
	}()
	return ctx, func() {
		signal.Stop(signals)
		close(done)
		cancel()
	}
}
