// Package segments turns a set of cut regions into the keep segments that
// survive an edit.
package segments

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"podcut/internal/cuts"
	"podcut/internal/services"
)

// ErrNothingRemains reports that the cuts cover the entire recording.
var ErrNothingRemains = errors.New("no audio would remain after cuts")

// Interval is a half-open time span in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End-Start.
func (i Interval) Length() float64 {
	return i.End - i.Start
}

// Result is the outcome of planning a set of cuts against a total duration.
type Result struct {
	Merged           []Interval
	Keep             []Interval
	DirectCopy       bool
	TotalDuration    float64
	ExpectedDuration float64
}

// Merge drops incomplete regions, sorts the rest by start (stable), and
// coalesces overlapping or touching intervals.
func Merge(regions []cuts.Region) []Interval {
	complete := make([]Interval, 0, len(regions))
	for _, r := range regions {
		if !r.Complete() {
			continue
		}
		complete = append(complete, Interval{Start: r.Start, End: *r.End})
	}
	if len(complete) == 0 {
		return nil
	}
	slices.SortStableFunc(complete, func(a, b Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Interval, 0, len(complete))
	running := complete[0]
	for _, next := range complete[1:] {
		if next.Start <= running.End {
			running.End = math.Max(running.End, next.End)
			continue
		}
		merged = append(merged, running)
		running = next
	}
	return append(merged, running)
}

// Keep inverts merged cut intervals over [0, total). Segments are clamped to
// the recording, so cuts past the end simply leave no trailing segment.
func Keep(merged []Interval, total float64) []Interval {
	keep := make([]Interval, 0, len(merged)+1)
	cursor := 0.0
	for _, cut := range merged {
		end := math.Min(cut.Start, total)
		if end > cursor {
			keep = append(keep, Interval{Start: cursor, End: end})
		}
		cursor = math.Max(cursor, cut.End)
	}
	if cursor < total {
		keep = append(keep, Interval{Start: cursor, End: total})
	}
	return keep
}

// ExpectedOutputDuration returns total minus the merged cut lengths that fall
// inside [0, total]. It is computed from the merge pass alone so it can
// cross-check Keep.
func ExpectedOutputDuration(regions []cuts.Region, total float64) float64 {
	return total - removedWithin(Merge(regions), total)
}

// removedWithin sums the merged intervals clipped to [0, total].
func removedWithin(merged []Interval, total float64) float64 {
	removed := 0.0
	for _, m := range merged {
		start := math.Max(m.Start, 0)
		end := math.Min(m.End, total)
		if end > start {
			removed += end - start
		}
	}
	return removed
}

// Compute plans regions against a recording of the given total duration.
// With no complete regions the result is a direct copy. A non-positive total
// is a validation error and full coverage returns ErrNothingRemains.
func Compute(regions []cuts.Region, total float64) (Result, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Result{}, services.Wrap(services.ErrValidation, "segments", "compute",
			fmt.Sprintf("invalid total duration %v", total), nil)
	}
	merged := Merge(regions)
	if len(merged) == 0 {
		return Result{DirectCopy: true, TotalDuration: total, ExpectedDuration: total}, nil
	}
	keep := Keep(merged, total)
	if len(keep) == 0 {
		return Result{}, services.Wrap(services.ErrPlanning, "segments", "compute", "", ErrNothingRemains)
	}
	return Result{
		Merged:           merged,
		Keep:             keep,
		TotalDuration:    total,
		ExpectedDuration: total - removedWithin(merged, total),
	}, nil
}

// KeptDuration sums the keep segment lengths.
func (r Result) KeptDuration() float64 {
	if r.DirectCopy {
		return r.TotalDuration
	}
	sum := 0.0
	for _, k := range r.Keep {
		sum += k.Length()
	}
	return sum
}
