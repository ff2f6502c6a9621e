package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"podcut/internal/cuts"
	"podcut/internal/filtergraph"
	"podcut/internal/logging"
	"podcut/internal/segments"
	"podcut/internal/textutil"
)

type planOutput struct {
	TotalDuration    float64             `json:"total_duration"`
	ExpectedDuration float64             `json:"expected_duration"`
	DirectCopy       bool                `json:"direct_copy"`
	Cuts             []segments.Interval `json:"cuts"`
	Keep             []segments.Interval `json:"keep"`
	FilterGraph      string              `json:"filter_graph,omitempty"`
	Args             []string            `json:"args"`
}

func buildPlanOutput(regions []cuts.Region, total float64, audioPath string) (planOutput, error) {
	result, err := segments.Compute(regions, total)
	if err != nil {
		return planOutput{}, err
	}
	plan := filtergraph.Build(result)
	out := planOutput{
		TotalDuration:    result.TotalDuration,
		ExpectedDuration: result.ExpectedDuration,
		DirectCopy:       plan.NoOp,
		Cuts:             result.Merged,
		Keep:             result.Keep,
		FilterGraph:      plan.Graph.String(),
		Args:             plan.Args(filepath.Base(audioPath), "output"+filepath.Ext(audioPath)),
	}
	if out.Cuts == nil {
		out.Cuts = []segments.Interval{}
	}
	if out.Keep == nil {
		out.Keep = []segments.Interval{}
	}
	return out, nil
}

func writePlanText(w io.Writer, p planOutput) {
	fmt.Fprintf(w, "Duration: %s -> %s\n", textutil.FormatClock(p.TotalDuration), textutil.FormatClock(p.ExpectedDuration))
	if p.DirectCopy {
		fmt.Fprintln(w, "No cuts: the audio would be copied unchanged")
		return
	}
	fmt.Fprintf(w, "Cuts: %d merged, removing %s\n", len(p.Cuts), textutil.FormatClock(p.TotalDuration-p.ExpectedDuration))

	rows := make([][]string, 0, len(p.Keep))
	for i, k := range p.Keep {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			textutil.FormatClock(k.Start),
			textutil.FormatClock(k.End),
			textutil.FormatSeconds(k.Length()),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "From", "To", "Length"}, rows, []columnAlignment{alignRight, alignRight, alignRight, alignRight}))
	fmt.Fprintf(w, "Filter graph: %s\n", p.FilterGraph)
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags cutFlags
	var jsonOut bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "plan <audio>",
		Short: "Show the keep segments and ffmpeg filter graph for a set of cuts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			audioPath := args[0]
			total, err := flags.totalDuration(cmd.Context(), cfg, audioPath)
			if err != nil {
				return err
			}

			render := func() error {
				regions, err := flags.regions()
				if err != nil {
					return err
				}
				out, err := buildPlanOutput(regions, total, audioPath)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, out)
				}
				writePlanText(cmd.OutOrStdout(), out)
				return nil
			}

			if err := render(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if strings.TrimSpace(flags.cutsFile) == "" {
				return errors.New("--watch requires --cuts")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl+C to stop)\n", flags.cutsFile)
			logger := logging.NewComponentLogger(ctx.log(), "plan")
			return watchFile(cmd.Context(), flags.cutsFile, func() {
				if err := render(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Plan failed: %v\n", err)
					logger.Warn("re-plan failed", logging.Error(err))
				}
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-plan whenever the --cuts file changes")
	return cmd
}

// watchFile calls fn each time path is written or recreated until ctx ends.
// The parent directory is watched because editors replace files on save.
func watchFile(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("watch %s: directory unavailable", dir)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				// let the writer finish before reading
				time.Sleep(50 * time.Millisecond)
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
