package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podcut/internal/engine"
	"podcut/internal/services"
)

// Category classifies engine failures.
type Category string

const (
	CategoryTimeout Category = "timeout"
	CategoryFormat  Category = "format"
	CategoryMemory  Category = "memory"
	CategoryOther   Category = "other"
)

// EngineError reports a failed engine run.
type EngineError struct {
	Category Category
	Err      error
}

func (e *EngineError) Error() string {
	switch e.Category {
	case CategoryTimeout:
		return fmt.Sprintf("processing timed out: %v", e.Err)
	case CategoryFormat:
		return fmt.Sprintf("unsupported or corrupt audio: %v", e.Err)
	case CategoryMemory:
		return fmt.Sprintf("media engine ran out of memory: %v", e.Err)
	default:
		return fmt.Sprintf("media engine failed: %v", e.Err)
	}
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is lets errors.Is match the engine marker, and the timeout marker for
// timeout failures.
func (e *EngineError) Is(target error) bool {
	if target == services.ErrEngine {
		return true
	}
	return target == services.ErrTimeout && e.Category == CategoryTimeout
}

// Hint returns operator guidance for the failure category.
func (e *EngineError) Hint() string {
	switch e.Category {
	case CategoryTimeout:
		return "raise engine.timeout_seconds or process a shorter file"
	case CategoryFormat:
		return "check that the input is a supported, undamaged audio file"
	case CategoryMemory:
		return "try a smaller file or free system memory"
	default:
		return "rerun with logging.level = \"debug\" to see the ffmpeg output"
	}
}

// IsCanceled reports whether err came from a user cancellation, so callers
// can skip error UI.
func IsCanceled(err error) bool {
	return errors.Is(err, services.ErrCanceled)
}

var (
	formatMarkers = []string{
		"invalid data found",
		"could not find codec",
		"unknown format",
		"does not contain any stream",
		"error while decoding",
		"invalid argument",
		"no such file or directory",
		"unsupported",
	}
	memoryMarkers = []string{
		"cannot allocate memory",
		"out of memory",
		"enomem",
		"memory allocation",
	}
)

func classify(ctx context.Context, err error) *EngineError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &EngineError{Category: CategoryTimeout, Err: err}
	}
	text := strings.ToLower(err.Error())
	var execErr *engine.ExecError
	if errors.As(err, &execErr) {
		text = strings.ToLower(execErr.Output())
	}
	for _, marker := range memoryMarkers {
		if strings.Contains(text, marker) {
			return &EngineError{Category: CategoryMemory, Err: err}
		}
	}
	for _, marker := range formatMarkers {
		if strings.Contains(text, marker) {
			return &EngineError{Category: CategoryFormat, Err: err}
		}
	}
	return &EngineError{Category: CategoryOther, Err: err}
}
