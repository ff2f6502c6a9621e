package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podcut/internal/cutlist"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags cutFlags
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <audio>",
		Short: "Write the cut list for an audio file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regions, err := flags.regions()
			if err != nil {
				return err
			}
			target := exportTarget(args[0], outputPath)
			doc, err := cutlist.Export(target, filepath.Base(args[0]), regions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cut(s) to %s\n", len(doc.Cuts), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.cutsFile, "cuts", "", "Cut list JSON file to read")
	cmd.Flags().StringArrayVar(&flags.ranges, "cut", nil, "Cut range START-END (repeatable)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Destination (default <name>-cuts.json next to the audio)")
	return cmd
}

func exportTarget(audioPath, outputPath string) string {
	if target := strings.TrimSpace(outputPath); target != "" {
		return target
	}
	return filepath.Join(filepath.Dir(audioPath), cutlist.ExportFilename(filepath.Base(audioPath)))
}
