package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podcut/internal/config"
	"podcut/internal/cutlist"
	"podcut/internal/cuts"
	"podcut/internal/media/ffprobe"
	"podcut/internal/textutil"
)

// cutFlags collects the flags shared by commands that take a set of cuts.
type cutFlags struct {
	cutsFile string
	ranges   []string
	duration string
}

func (f *cutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cutsFile, "cuts", "", "Cut list JSON file to read")
	cmd.Flags().StringArrayVar(&f.ranges, "cut", nil, "Cut range START-END (repeatable, e.g. 1:05-1:30)")
	cmd.Flags().StringVar(&f.duration, "duration", "", "Total duration of the audio (skips ffprobe)")
}

// regions loads the cut list file, if any, then appends the --cut ranges.
// The result is normalized through a store so ids are unique and
// incomplete entries are dropped.
func (f *cutFlags) regions() ([]cuts.Region, error) {
	var loaded []cuts.Region
	if path := strings.TrimSpace(f.cutsFile); path != "" {
		doc, err := cutlist.ReadFile(path)
		if err != nil {
			return nil, err
		}
		loaded = doc.Regions()
	}
	for _, value := range f.ranges {
		start, end, err := textutil.ParseRange(value)
		if err != nil {
			return nil, fmt.Errorf("--cut %q: %w", value, err)
		}
		loaded = append(loaded, cuts.NewRegion("", start, end))
	}
	store := cuts.NewStore()
	store.Load(loaded)
	return store.Regions(), nil
}

// totalDuration returns --duration when given, otherwise asks ffprobe.
func (f *cutFlags) totalDuration(ctx context.Context, cfg *config.Config, audioPath string) (float64, error) {
	if value := strings.TrimSpace(f.duration); value != "" {
		seconds, err := textutil.ParseClock(value)
		if err != nil {
			return 0, fmt.Errorf("--duration: %w", err)
		}
		return seconds, nil
	}
	return ffprobe.AudioDuration(ctx, cfg.Engine.FFprobeBinary, audioPath)
}
