package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podcut/internal/language"
	"podcut/internal/textutil"
	"podcut/internal/transcriptcache"
	"podcut/internal/transcription"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func openCache(ctx *commandContext) (*transcriptcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return transcriptcache.Open(cfg)
}

type cacheEntryJSON struct {
	Hash      string  `json:"hash"`
	FileName  string  `json:"file_name"`
	SizeBytes int64   `json:"size_bytes"`
	Chunks    int     `json:"chunks"`
	Duration  float64 `json:"duration_seconds"`
	Language  string  `json:"language"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				items := make([]cacheEntryJSON, 0, len(entries))
				for _, e := range entries {
					items = append(items, cacheEntryJSON{
						Hash:      e.Hash,
						FileName:  e.FileName,
						SizeBytes: e.SizeBytes,
						Chunks:    e.Chunks,
						Duration:  e.Duration,
						Language:  e.Language,
						CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
						UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
					})
				}
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Transcript cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortHash(e.Hash),
					e.FileName,
					humanize.IBytes(uint64(max(e.SizeBytes, 0))),
					textutil.FormatClock(e.Duration),
					language.DisplayName(e.Language),
					fmt.Sprintf("%d", e.Chunks),
					humanize.Time(e.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Hash", "File", "Size", "Duration", "Language", "Chunks", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d transcript(s) in %s\n", len(entries), store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove a cached transcript by hash or unique hash prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no cached transcript matches %s", strings.TrimSpace(args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached transcript %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			service := transcription.NewService(nil, store, transcription.Options{Logger: ctx.log()})
			if err := service.ClearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached transcript(s)\n", count)
			return nil
		},
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
