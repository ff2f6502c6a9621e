package engine

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Engine is the media engine contract used by processing.
type Engine interface {
	// Load prepares the engine. It is idempotent.
	Load(ctx context.Context) error
	// WriteFile stores src under name in the engine's working area.
	WriteFile(ctx context.Context, name string, src io.Reader) error
	// Exec runs one engine invocation with the given arguments.
	Exec(ctx context.Context, args []string) error
	// ReadFile copies the named working file into dst.
	ReadFile(ctx context.Context, name string, dst io.Writer) (int64, error)
	// DeleteFile removes the named working file.
	DeleteFile(ctx context.Context, name string) error
	// OnLog registers fn for engine log lines and returns a function that
	// removes it.
	OnLog(fn func(line string)) (remove func())
	// Close releases the working area.
	Close() error
}

var progressTimePattern = regexp.MustCompile(`time=\s*(-?\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseProgressTime extracts the output position from an ffmpeg status line
// such as "size=  512kB time=00:01:02.50 bitrate=...". It returns false for
// lines without a time field and for negative or N/A values.
func ParseProgressTime(line string) (float64, bool) {
	m := progressTimePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	if strings.HasPrefix(m[1], "-") {
		return 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(mins)*60 + secs, true
}
