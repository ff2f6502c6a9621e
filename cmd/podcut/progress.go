package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var stageCaser = cases.Title(language.English)

// progressReporter draws a bar on a terminal and falls back to one line per
// stage change elsewhere, so piped output stays readable.
type progressReporter struct {
	mu        sync.Mutex
	out       io.Writer
	bar       *progressbar.ProgressBar
	lastStage string
}

func newProgressReporter(out io.Writer, description string) *progressReporter {
	r := &progressReporter{out: out}
	if isTerminal(out) {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
		)
	}
	return r
}

// update records percent complete (0-100) with a short stage label.
func (r *progressReporter) update(percent float64, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	label := stageCaser.String(stage)
	if r.bar != nil {
		if label != "" && label != r.lastStage {
			r.bar.Describe(label)
		}
		_ = r.bar.Set(int(percent))
		r.lastStage = label
		return
	}
	if label != "" && label != r.lastStage {
		fmt.Fprintf(r.out, "%3.0f%% %s\n", percent, label)
		r.lastStage = label
	}
}

// abandon clears a partially drawn bar after a failure.
func (r *progressReporter) abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Clear()
		fmt.Fprintln(r.out)
	}
}
