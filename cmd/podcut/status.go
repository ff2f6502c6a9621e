package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podcut/internal/config"
	"podcut/internal/engine"
	"podcut/internal/preflight"
	"podcut/internal/transcriptcache"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var prune bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, cache and workspace health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeSection(stdout, "Configuration", colorize)
			configLabel := ctx.configPath
			if !ctx.configSeen {
				configLabel += " (defaults)"
			}
			fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, configLabel, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Log format", statusInfo, cfg.Logging.Format+" / "+cfg.Logging.Level, colorize))
			fmt.Fprintln(stdout)

			writeSection(stdout, "System Checks", colorize)
			for _, line := range checkLines(preflight.RunAll(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			writeSection(stdout, "Transcription", colorize)
			fmt.Fprintln(stdout, transcriptionStatusLine(cmd, cfg, offline, colorize))
			fmt.Fprintln(stdout, cacheStatusLine(cmd, cfg, colorize))
			fmt.Fprintln(stdout)

			writeSection(stdout, "Workspaces", colorize)
			if prune {
				removed, err := engine.PruneWorkspaces(cfg.Paths.WorkDir)
				if err != nil {
					fmt.Fprintln(stdout, renderStatusLine("Prune", statusWarn, err.Error(), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Prune", statusOK, fmt.Sprintf("removed %d stale workspace(s)", len(removed)), colorize))
				}
			}
			return writeWorkspaces(stdout, cfg.Paths.WorkDir)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the transcription API reachability check")
	cmd.Flags().BoolVar(&prune, "prune", false, "Remove workspaces left behind by interrupted runs")
	return cmd
}

func writeSection(w io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results)+1)
	var failed []string
	for _, r := range results {
		if r.Passed {
			lines = append(lines, renderStatusLine(r.Name, statusOK, r.Detail, colorize))
			continue
		}
		detail := strings.TrimSpace(r.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(r.Name, statusError, detail, colorize))
		failed = append(failed, r.Name)
	}
	if len(failed) > 0 {
		lines = append(lines, renderStatusLine("Failing checks", statusWarn, strings.Join(failed, ", "), colorize))
	}
	return lines
}

func transcriptionStatusLine(cmd *cobra.Command, cfg *config.Config, offline bool, colorize bool) string {
	const label = "Transcription API"
	if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
		return renderStatusLine(label, statusWarn, "API key missing (set OPENAI_API_KEY)", colorize)
	}
	if offline {
		return renderStatusLine(label, statusInfo, fmt.Sprintf("%s (%s, not checked)", cfg.Transcription.BaseURL, cfg.Transcription.Model), colorize)
	}
	result := preflight.CheckTranscriptionAPI(cmd.Context(), cfg.Transcription)
	if result.Passed {
		return renderStatusLine(label, statusOK, fmt.Sprintf("%s (%s)", result.Detail, cfg.Transcription.Model), colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}

func cacheStatusLine(cmd *cobra.Command, cfg *config.Config, colorize bool) string {
	const label = "Transcript cache"
	if !cfg.Cache.Enabled {
		return renderStatusLine(label, statusWarn, "Disabled", colorize)
	}
	store, err := transcriptcache.Open(cfg)
	if err != nil {
		return renderStatusLine(label, statusError, err.Error(), colorize)
	}
	defer store.Close()
	count, err := store.Count(cmd.Context())
	if err != nil {
		return renderStatusLine(label, statusError, err.Error(), colorize)
	}
	return renderStatusLine(label, statusOK, fmt.Sprintf("%d transcript(s) in %s", count, store.Path()), colorize)
}

func writeWorkspaces(w io.Writer, root string) error {
	workspaces, err := engine.ListWorkspaces(root)
	if err != nil {
		return err
	}
	if len(workspaces) == 0 {
		fmt.Fprintln(w, "No engine workspaces")
		return nil
	}
	rows := make([][]string, 0, len(workspaces))
	for _, ws := range workspaces {
		state := "stale"
		if ws.Active {
			state = "active"
		}
		rows = append(rows, []string{ws.Name, state, humanize.Time(ws.ModTime)})
	}
	fmt.Fprintln(w, renderTable([]string{"Workspace", "State", "Modified"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
	return nil
}
