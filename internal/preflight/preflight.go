package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"podcut/internal/config"
	"podcut/internal/deps"
	"podcut/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks that gate processing: working, log and
// cache directories plus the media binaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Cache.Enabled && cfg.Cache.Path != "" {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}
	for _, status := range deps.CheckMedia(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
			if status.Version != "" {
				result.Detail = fmt.Sprintf("%s (%s)", status.Command, status.Version)
			}
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Require runs RunAll and turns any failure into a configuration error that
// lists every failing check.
func Require(ctx context.Context, cfg *config.Config) error {
	failed := Failed(RunAll(ctx, cfg))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check",
		strings.Join(parts, "; "), errors.New("preflight failed"))
}
